package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bryanwahyu/autoarchitect/internal/application"
	appanalysis "github.com/bryanwahyu/autoarchitect/internal/application/analysis"
	appprojects "github.com/bryanwahyu/autoarchitect/internal/application/projects"
	"github.com/bryanwahyu/autoarchitect/internal/config"
	"github.com/bryanwahyu/autoarchitect/internal/domain/ai"
	"github.com/bryanwahyu/autoarchitect/internal/domain/projects"
	"github.com/bryanwahyu/autoarchitect/internal/domain/sources"
	"github.com/bryanwahyu/autoarchitect/internal/infra/ai/gateway"
	aiopenai "github.com/bryanwahyu/autoarchitect/internal/infra/ai/openai"
	"github.com/bryanwahyu/autoarchitect/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/autoarchitect/internal/infra/db/mysql"
	"github.com/bryanwahyu/autoarchitect/internal/infra/db/postgres"
	"github.com/bryanwahyu/autoarchitect/internal/infra/db/sqlite"
	"github.com/bryanwahyu/autoarchitect/internal/infra/github"
	"github.com/bryanwahyu/autoarchitect/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/autoarchitect/internal/infra/storage"
	"github.com/bryanwahyu/autoarchitect/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

type storage struct {
	projects projects.Repository
	results  projects.ResultRepository
	db       *sql.DB
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Database.Driver {
	case "memory":
		return &storage{projects: memory.NewProjectRepository(), results: memory.NewResultRepository()}, nil
	case "sqlite":
		// local file, schema is always applied
		if db, err = sqlite.Connect(ctx, cfg.Database.Path); err == nil {
			err = sqlite.Migrate(ctx, db)
		}
		if err != nil {
			return nil, err
		}
		// sqlite shares the mysql placeholder dialect
		return &storage{projects: mysqlp.NewProjectRepository(db), results: mysqlp.NewResultRepository(db), db: db}, nil
	case "mysql":
		if db, err = mysqlp.Connect(ctx, cfg.MySQLDSN()); err == nil && cfg.Database.Migrate {
			err = mysqlp.Migrate(ctx, db)
		}
		if err != nil {
			return nil, err
		}
		return &storage{projects: mysqlp.NewProjectRepository(db), results: mysqlp.NewResultRepository(db), db: db}, nil
	default:
		if db, err = postgres.Connect(ctx, cfg.Database.Driver, cfg.PostgresDSN()); err == nil && cfg.Database.Migrate {
			err = postgres.Migrate(ctx, db)
		}
		if err != nil {
			return nil, err
		}
		return &storage{projects: postgres.NewProjectRepository(db), results: postgres.NewResultRepository(db), db: db}, nil
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	if store.db != nil {
		defer store.db.Close()
	}
	logger.Info("storage ready", zap.String("driver", cfg.Database.Driver))

	// snapshotter
	rules := sources.DefaultRules()
	if len(cfg.Analysis.ExtraPathRules) > 0 {
		extra, err := sources.ParseRules(cfg.Analysis.ExtraPathRules)
		if err != nil {
			return fmt.Errorf("analysis.extraPathRules: %w", err)
		}
		rules = rules.With(extra...)
	}
	gh := github.NewSnapshotter(
		github.NewClient(cfg.GitHub.APIBase, cfg.GitHub.Token, cfg.GitHub.RequestTimeout),
		cfg.GitHub.Hosts, rules, logger.Named("github"),
	)
	gh.MaxFiles = cfg.Analysis.MaxFiles
	gh.TruncateThreshold = cfg.Analysis.TruncateThreshold
	gh.TruncatePrefix = cfg.Analysis.TruncatePrefix
	var snapshotter sources.Snapshotter = gh
	if cfg.GitHub.SnapshotCacheTTL > 0 {
		snapshotter = github.NewCachedSnapshotter(gh, cfg.GitHub.SnapshotCacheSize, cfg.GitHub.SnapshotCacheTTL)
	}

	// model: direct OpenAI compatible API, and optionally a remote model service
	var direct ai.StreamClient
	if cfg.AI.APIKey != "" {
		oc := aiopenai.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model, nil)
		oc.MaxContentChars = cfg.AI.MaxContentChars
		oc.Logger = logger.Named("openai")
		direct = oc
	}
	model := direct
	if cfg.AI.GatewayURL != "" {
		model = gateway.NewClient(cfg.AI.GatewayURL, cfg.AI.GatewayKey)
	}
	if model == nil {
		return errors.New("no model configured: set OPENAI_API_KEY or AI_GATEWAY_URL")
	}

	metrics := middleware.NewMetrics()
	health := map[string]middleware.HealthChecker{}
	ready := map[string]middleware.HealthChecker{}
	if store.db != nil {
		health["database"] = &middleware.DatabaseHealthChecker{DB: store.db}
		ready["database"] = health["database"]
	}

	clock := application.SystemClock{}
	analysis := &appanalysis.Service{
		Projects:    store.projects,
		Results:     store.results,
		Snapshotter: snapshotter,
		Model:       model,
		Metrics:     metrics,
		Clock:       clock,
		Logger:      logger.Named("analysis"),
		Config: appanalysis.Config{
			LeaseTTL:   cfg.Analysis.LeaseTTL,
			RunTimeout: cfg.Analysis.RunTimeout,
		},
	}

	// init minio (optional)
	var archive *minioStore.Store
	if cfg.MinioEnabled() {
		archive, err = minioStore.New(ctx, minioStore.Config{
			Endpoint:  cfg.Minio.Endpoint,
			Region:    cfg.Minio.Region,
			Bucket:    cfg.Minio.BucketName,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		analysis.Archive = archive
		health["archive"] = middleware.CheckFunc(archive.Ping)
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Burst, cfg.Server.RateLimit.RequestsPerMinute)
	defer limiter.Close()

	handler := httpserver.NewRouter(httpserver.Deps{
		Projects:    &appprojects.Service{Repo: store.projects, Results: store.results, Clock: clock},
		Analysis:    analysis,
		Snapshotter: snapshotter,
		Model:       direct,
		Archive:     archiveReader(archive),
		Metrics:     metrics,
		Logger:      logger,
	}, httpserver.Options{
		CORSOrigins:  cfg.Server.CORSOrigins,
		APIKeys:      middleware.ParseAPIKeys(cfg.Server.APIKeys),
		RateLimiter:  limiter,
		HealthChecks: health,
		ReadyChecks:  ready,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// event streams stay open for the whole run; runs are bounded by analysis.runTimeout
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		analysis.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx2.Done():
		// leases of unfinished runs expire after analysis.leaseTTL
		logger.Warn("background runs still active at shutdown")
	}
	return nil
}

// archiveReader keeps a nil store a nil interface.
func archiveReader(s *minioStore.Store) projects.ArchiveReader {
	if s == nil {
		return nil
	}
	return s
}
