package ai

import (
	"context"
	"io"
)

// AnalyzeRequest is the body sent to the model service.
type AnalyzeRequest struct {
	Content      string   `json:"content"`
	Focus        string   `json:"focus"`
	DiagramTypes []string `json:"diagramTypes"`
	ProjectID    string   `json:"projectId,omitempty"`
}

// StreamClient opens a streamed analysis. The returned body is an
// event-stream of OpenAI style chat completion chunks; the caller owns it
// and must close it.
type StreamClient interface {
	Stream(ctx context.Context, req AnalyzeRequest) (io.ReadCloser, error)
}
