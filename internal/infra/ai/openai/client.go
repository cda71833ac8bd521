package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bryanwahyu/autoarchitect/internal/domain/ai"
	"github.com/bryanwahyu/autoarchitect/internal/infra/ai/prompt"
)

const (
	defaultModel = "gpt-4o-mini"
	maxTokens    = 8192
)

// Client streams architecture analyses from an OpenAI compatible endpoint and
// re-encodes the chunks as an event stream, so callers see the same bytes
// whether they talk to it in-process or through the HTTP model service.
type Client struct {
	*openai.Client
	Model           string
	MaxContentChars int
	Logger          *zap.Logger
}

func NewClient(apiKey, baseURL, model string, httpClient *http.Client) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &Client{
		Client:          openai.NewClientWithConfig(cfg),
		Model:           model,
		MaxContentChars: prompt.DefaultMaxContentChars,
		Logger:          zap.NewNop(),
	}
}

func (c *Client) request(req ai.AnalyzeRequest) openai.ChatCompletionRequest {
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	out := openai.ChatCompletionRequest{
		Model:  model,
		Stream: true,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt(req.Focus, req.DiagramTypes)},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(req.Content, c.MaxContentChars)},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		out.MaxCompletionTokens = maxTokens
	} else {
		out.MaxTokens = maxTokens
	}
	return out
}

// Stream implements ai.StreamClient.
func (c *Client) Stream(ctx context.Context, req ai.AnalyzeRequest) (io.ReadCloser, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, &ai.RequestError{StatusCode: http.StatusBadRequest, Message: "content is required"}
	}

	ctx, cancel := context.WithCancel(ctx)
	stream, err := c.CreateChatCompletionStream(ctx, c.request(req))
	if err != nil {
		cancel()
		return nil, mapError(err)
	}

	pr, pw := io.Pipe()
	go c.relay(stream, pw, req.ProjectID)
	return &relayBody{PipeReader: pr, cancel: cancel}, nil
}

func (c *Client) relay(stream *openai.ChatCompletionStream, pw *io.PipeWriter, projectID string) {
	defer stream.Close()
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			_, err = io.WriteString(pw, "data: [DONE]\n\n")
			pw.CloseWithError(err)
			return
		}
		if err != nil {
			c.Logger.Warn("model stream aborted", zap.String("project_id", projectID), zap.Error(err))
			pw.CloseWithError(err)
			return
		}
		b, err := json.Marshal(resp)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := fmt.Fprintf(pw, "data: %s\n\n", b); err != nil {
			// reader went away
			return
		}
	}
}

// relayBody cancels the upstream request when the reader is closed.
type relayBody struct {
	*io.PipeReader
	cancel context.CancelFunc
}

func (b *relayBody) Close() error {
	b.cancel()
	return b.PipeReader.Close()
}

func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &ai.RequestError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &ai.RequestError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return fmt.Errorf("failed to create chat completion stream: %w", err)
}
