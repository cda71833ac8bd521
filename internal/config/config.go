package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"corsOrigins"`
		// APIKeys protects the API when non-empty
		APIKeys   []string `yaml:"apiKeys"`
		RateLimit struct {
			RequestsPerMinute int `yaml:"requestsPerMinute"`
			Burst             int `yaml:"burst"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`

	Database struct {
		// Driver: memory, sqlite, mysql, postgres or pgx
		Driver   string `yaml:"driver"`
		URL      string `yaml:"url"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
		Path     string `yaml:"path"`
		Migrate  bool   `yaml:"migrate"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	GitHub struct {
		APIBase           string        `yaml:"apiBase"`
		Token             string        `yaml:"token"`
		Hosts             []string      `yaml:"hosts"`
		RequestTimeout    time.Duration `yaml:"requestTimeout"`
		SnapshotCacheTTL  time.Duration `yaml:"snapshotCacheTTL"`
		SnapshotCacheSize int           `yaml:"snapshotCacheSize"`
	} `yaml:"github"`

	AI struct {
		// GatewayURL sends analyses to a remote model service instead of
		// calling the OpenAI compatible API directly.
		GatewayURL      string `yaml:"gatewayURL"`
		GatewayKey      string `yaml:"gatewayKey"`
		APIKey          string `yaml:"apiKey"`
		BaseURL         string `yaml:"baseURL"`
		Model           string `yaml:"model"`
		MaxContentChars int    `yaml:"maxContentChars"`
	} `yaml:"ai"`

	Analysis struct {
		MaxFiles          int           `yaml:"maxFiles"`
		TruncateThreshold int           `yaml:"truncateThreshold"`
		TruncatePrefix    int           `yaml:"truncatePrefix"`
		ExtraPathRules    []string      `yaml:"extraPathRules"`
		RunTimeout        time.Duration `yaml:"runTimeout"`
		LeaseTTL          time.Duration `yaml:"leaseTTL"`
	} `yaml:"analysis"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.CORSOrigins = []string{"*"}
	c.Server.RateLimit.RequestsPerMinute = 120
	c.Server.RateLimit.Burst = 20
	c.Log.Level = "info"
	c.Database.Driver = "memory"
	c.Database.SSLMode = "disable"
	c.Database.Path = "autoarchitect.db"
	c.Minio.Region = "us-east-1"
	c.Minio.BucketName = "autoarchitect"
	c.GitHub.APIBase = "https://api.github.com"
	c.GitHub.Hosts = []string{"github.com"}
	c.GitHub.RequestTimeout = 30 * time.Second
	c.GitHub.SnapshotCacheTTL = 2 * time.Minute
	c.GitHub.SnapshotCacheSize = 128
	c.AI.Model = "gpt-4o-mini"
	c.AI.MaxContentChars = 80000
	c.Analysis.MaxFiles = 30
	c.Analysis.TruncateThreshold = 10000
	c.Analysis.TruncatePrefix = 5000
	c.Analysis.RunTimeout = 10 * time.Minute
	c.Analysis.LeaseTTL = 15 * time.Minute
	return &c
}

// Load baca file config.yaml (boleh tidak ada), lalu .env dan environment
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString("LOG_LEVEL", &c.Log.Level)
	setString("DB_DRIVER", &c.Database.Driver)
	setString("DATABASE_URL", &c.Database.URL)
	setString("DB_PASSWORD", &c.Database.Password)
	setString("OPENAI_API_KEY", &c.AI.APIKey)
	setString("OPENAI_BASE_URL", &c.AI.BaseURL)
	setString("AI_GATEWAY_URL", &c.AI.GatewayURL)
	setString("AI_GATEWAY_KEY", &c.AI.GatewayKey)
	setString("GITHUB_TOKEN", &c.GitHub.Token)
	setString("MINIO_ENDPOINT", &c.Minio.Endpoint)
	setString("MINIO_ACCESS_KEY", &c.Minio.AccessKey)
	setString("MINIO_SECRET_KEY", &c.Minio.SecretKey)
	setString("MINIO_BUCKET", &c.Minio.BucketName)

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		port, err := strconv.Atoi(strings.TrimPrefix(v, ":"))
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := strings.TrimSpace(os.Getenv("API_KEYS")); v != "" {
		c.Server.APIKeys = splitList(v)
	}
	return nil
}

// Validate rejects settings the services cannot work with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "sqlite", "mysql", "postgres", "pgx":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Analysis.MaxFiles <= 0 {
		return errors.New("analysis.maxFiles must be positive")
	}
	if c.Analysis.TruncatePrefix <= 0 || c.Analysis.TruncatePrefix > c.Analysis.TruncateThreshold {
		return errors.New("analysis.truncatePrefix must be positive and not above truncateThreshold")
	}
	if c.AI.MaxContentChars <= 0 {
		return errors.New("ai.maxContentChars must be positive")
	}
	return nil
}

// MinioEnabled reports whether run archives should be written.
func (c *Config) MinioEnabled() bool {
	return c.Minio.Endpoint != "" && c.Minio.AccessKey != ""
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN works for both lib/pq and pgx.
func (c *Config) PostgresDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
