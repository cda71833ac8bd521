package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bryanwahyu/autoarchitect/internal/domain/sources"
)

const (
	DefaultAPIBaseURL = "https://api.github.com"
	defaultUserAgent  = "autoarchitect"
	maxErrorBody      = 4 << 10
)

// Client is a minimal read-only GitHub REST client.
type Client struct {
	BaseURL        string
	Token          string
	UserAgent      string
	RequestTimeout time.Duration
	HTTP           *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &Client{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		Token:          token,
		UserAgent:      defaultUserAgent,
		RequestTimeout: timeout,
		HTTP:           http.DefaultClient,
	}
}

type treeResponse struct {
	Tree      []sources.TreeEntry `json:"tree"`
	Truncated bool                `json:"truncated"`
}

type contentResponse struct {
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// Tree lists the default branch recursively.
func (c *Client) Tree(ctx context.Context, ref sources.Reference) ([]sources.TreeEntry, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/trees/HEAD?recursive=1",
		c.BaseURL, url.PathEscape(ref.Owner), url.PathEscape(ref.Repo))

	var out treeResponse
	status, body, err := c.getJSON(ctx, endpoint, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sources.ErrUpstreamUnavailable, err)
	}
	if status < 200 || status > 299 {
		return nil, &sources.UpstreamError{Status: status, Body: body}
	}
	return out.Tree, nil
}

// File returns the decoded content of one blob. Non-base64 or empty
// payloads are reported as errors so callers can skip them.
func (c *Client) File(ctx context.Context, ref sources.Reference, path string) (string, error) {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.BaseURL, url.PathEscape(ref.Owner), url.PathEscape(ref.Repo), strings.Join(segs, "/"))

	var out contentResponse
	status, body, err := c.getJSON(ctx, endpoint, &out)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", fmt.Errorf("contents %s: status %d: %s", path, status, body)
	}
	if out.Encoding != "base64" || out.Content == "" {
		return "", fmt.Errorf("contents %s: unsupported encoding %q", path, out.Encoding)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(out.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("contents %s: %w", path, err)
	}
	return string(raw), nil
}

// getJSON decodes 2xx bodies into v; for other statuses it returns the
// (bounded) body text instead.
func (c *Client) getJSON(ctx context.Context, endpoint string, v any) (int, string, error) {
	if c.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.RequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", c.UserAgent)
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, strings.TrimSpace(string(b)), nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, "", fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return resp.StatusCode, "", nil
}
