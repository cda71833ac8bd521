package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/autoarchitect/internal/domain/projects"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(ClientFromContext(r.Context())))
})

func TestValidateSourceURL(t *testing.T) {
	valid := []string{"https://github.com/acme/shop", "github.com/acme/shop", "http://drive.google.com/file/d/1"}
	for _, u := range valid {
		assert.NoError(t, ValidateSourceURL(u), u)
	}
	invalid := []string{"", "ftp://github.com/a/b", "http://localhost:8080/x", "http://127.0.0.1/x",
		"http://10.0.0.4/x", "http://172.20.1.1/x", "http://192.168.1.1/x", "http://[::1]/x", "http://169.254.169.254/latest"}
	for _, u := range invalid {
		assert.Error(t, ValidateSourceURL(u), u)
	}
}

func TestValidateProjectID(t *testing.T) {
	assert.NoError(t, ValidateProjectID("5d0c8f5e-1a0b-4c8e-9a43-0f4b1c3e2d11"))
	assert.Error(t, ValidateProjectID(""))
	assert.Error(t, ValidateProjectID("../etc/passwd"))
	assert.EqualError(t, ValidateRunID("nope"), "invalid run ID format")
}

func TestValidateDiagramTypes(t *testing.T) {
	got, err := ValidateDiagramTypes([]string{" Component Diagram ", "Data Flow (L1)"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Component Diagram", "Data Flow (L1)"}, got)

	_, err = ValidateDiagramTypes([]string{"", "Sequence Diagram"})
	assert.EqualError(t, err, "diagram type 1 is empty")

	_, err = ValidateDiagramTypes([]string{"<script>"})
	assert.Error(t, err)
	_, err = ValidateDiagramTypes(make([]string, 11))
	assert.Error(t, err)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "ab\tc", SanitizeString("  a\x00b\x07\tc \r"))
}

func TestValidateLimit(t *testing.T) {
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(1000))
	assert.Equal(t, 7, ValidateLimit(7))
}

func TestTokenBucket(t *testing.T) {
	now := time.Unix(1000, 0)
	tb := NewTokenBucket(2, 1, now)
	assert.True(t, tb.Allow(now))
	assert.True(t, tb.Allow(now))
	assert.False(t, tb.Allow(now))
	assert.False(t, tb.Allow(now.Add(500*time.Millisecond)))
	assert.True(t, tb.Allow(now.Add(1500*time.Millisecond)))
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(1, 60)
	defer limiter.Close()
	now := time.Unix(1000, 0)
	limiter.now = func() time.Time { return now }

	h := RateLimit(limiter, "/livez")(okHandler)
	do := func(path, addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("/v1/projects", "1.2.3.4:5000").Code)
	// same IP, different port shares the bucket
	rec := do("/v1/projects", "1.2.3.4:6000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded, please try again later"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, do("/v1/projects", "5.6.7.8:5000").Code)
	assert.Equal(t, http.StatusOK, do("/livez", "1.2.3.4:5000").Code)

	now = now.Add(2 * time.Second)
	assert.Equal(t, http.StatusOK, do("/v1/projects", "1.2.3.4:5000").Code)

	now = now.Add(time.Hour)
	limiter.evict(10 * time.Minute)
	limiter.mu.Lock()
	assert.Empty(t, limiter.buckets)
	limiter.mu.Unlock()
}

func TestAPIKeyAuth(t *testing.T) {
	keys := ParseAPIKeys([]string{"web=abc", "xyz", " "})
	assert.Equal(t, map[string]string{"web": "abc", "client-2": "xyz"}, keys)

	h := APIKeyAuth(keys, "/healthz")(okHandler)
	cases := []struct {
		name   string
		path   string
		header string
		value  string
		code   int
		client string
	}{
		{"bearer", "/v1/projects", "Authorization", "Bearer abc", http.StatusOK, "web"},
		{"x-api-key", "/v1/projects", "X-API-Key", "xyz", http.StatusOK, "client-2"},
		{"missing", "/v1/projects", "", "", http.StatusUnauthorized, ""},
		{"wrong", "/v1/projects", "Authorization", "Bearer nope", http.StatusUnauthorized, ""},
		{"open path", "/healthz", "", "", http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.code, rec.Code)
			if tc.code == http.StatusOK {
				assert.Equal(t, tc.client, rec.Body.String())
			}
		})
	}

	// no keys configured: auth is off
	rec := httptest.NewRecorder()
	APIKeyAuth(nil)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/projects", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.RunStarted()
	m.RunStarted()
	m.RunFinished(projects.StatusCompleted, 2*time.Second)
	m.RunFinished(projects.StatusFailed, time.Second)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad", nil))

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap["runs_total"])
	assert.Equal(t, int64(0), snap["runs_running"])
	assert.Equal(t, uint64(1), snap["runs_completed"])
	assert.Equal(t, uint64(1), snap["runs_failed"])
	assert.Equal(t, uint64(3000), snap["run_millis_total"])
	assert.Equal(t, uint64(2), snap["requests_total"])
	assert.Equal(t, uint64(1), snap["requests_failed"])
}

func TestHealthHandler(t *testing.T) {
	checks := map[string]HealthChecker{
		"db":      CheckFunc(func(context.Context) error { return nil }),
		"archive": CheckFunc(func(context.Context) error { return errors.New("bucket gone") }),
	}
	rec := httptest.NewRecorder()
	HealthHandler(checks)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "bucket gone")

	rec = httptest.NewRecorder()
	ReadinessHandler(map[string]HealthChecker{"db": checks["db"]})(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready"`)
}
