// Package gateway talks to a remote model service that accepts
// {content, focus, diagramTypes, projectId} and answers with an event stream.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bryanwahyu/autoarchitect/internal/domain/ai"
)

const maxErrorBody = 8 << 10

type Client struct {
	URL    string
	APIKey string
	HTTP   *http.Client
}

// NewClient has no client-side timeout; streams are bounded by the caller's context.
func NewClient(url, apiKey string) *Client {
	return &Client{URL: url, APIKey: apiKey, HTTP: &http.Client{}}
}

// Stream implements ai.StreamClient.
func (c *Client) Stream(ctx context.Context, req ai.AnalyzeRequest) (io.ReadCloser, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("model service: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp.Body, nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(raw))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return nil, &ai.RequestError{StatusCode: resp.StatusCode, Message: msg}
}
