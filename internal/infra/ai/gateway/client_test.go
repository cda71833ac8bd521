package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/autoarchitect/internal/domain/ai"
)

func TestClient_StreamReturnsBody(t *testing.T) {
	var got ai.AnalyzeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	body, err := c.Stream(context.Background(), ai.AnalyzeRequest{
		Content: "code", Focus: "Full Architecture", DiagramTypes: []string{"Data Flow"}, ProjectID: "p-1",
	})
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "data: [DONE]\n\n", string(raw))
	assert.Equal(t, ai.AnalyzeRequest{Content: "code", Focus: "Full Architecture", DiagramTypes: []string{"Data Flow"}, ProjectID: "p-1"}, got)
}

func TestClient_StreamErrors(t *testing.T) {
	cases := []struct {
		status  int
		body    string
		is      error
		message string
	}{
		{http.StatusTooManyRequests, `{"error":"Rate limit exceeded. Please try again later."}`, ai.ErrRateLimited, "Rate limit exceeded. Please try again later."},
		{http.StatusPaymentRequired, `{"error":"Payment required. Please add credits."}`, ai.ErrQuotaExceeded, "Payment required. Please add credits."},
		{http.StatusBadGateway, "bad gateway", ai.ErrRequestFailed, "bad gateway"},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "").Stream(context.Background(), ai.AnalyzeRequest{Content: "x"})
			require.ErrorIs(t, err, tc.is)
			var re *ai.RequestError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tc.status, re.StatusCode)
			assert.Equal(t, tc.message, re.Message)
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "").Stream(context.Background(), ai.AnalyzeRequest{Content: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ai.ErrRequestFailed)
}
