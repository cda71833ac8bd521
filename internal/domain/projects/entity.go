package projects

import (
	"fmt"
	"strings"
	"time"
)

// ID tipe untuk Project
type ProjectID string

// RunID identifies one analysis run; it doubles as the lease token on the project row.
type RunID string

// ResultID identifier type
type ResultID string

// Status enum
type Status string

const (
	StatusDraft      Status = "draft"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

const (
	DefaultFocus       = "Full Architecture"
	DefaultDiagramType = "Component Diagram"
)

// AnalysisOptions value object. DiagramTypes order matters: the i-th emitted
// diagram block is labelled with the i-th entry.
type AnalysisOptions struct {
	Focus        string   `json:"focus,omitempty"`
	DiagramTypes []string `json:"diagramTypes,omitempty"`
}

// WithDefaults fills the focus and diagram list when they are missing. The
// diagram list is kept as given, since labels are matched by position.
func (o AnalysisOptions) WithDefaults() AnalysisOptions {
	out := AnalysisOptions{Focus: o.Focus}
	if out.Focus == "" {
		out.Focus = DefaultFocus
	}
	out.DiagramTypes = append([]string(nil), o.DiagramTypes...)
	if len(out.DiagramTypes) == 0 {
		out.DiagramTypes = []string{DefaultDiagramType}
	}
	return out
}

// Validate rejects blank diagram labels; dropping one would shift every
// later label onto the wrong block.
func (o AnalysisOptions) Validate() error {
	for i, d := range o.DiagramTypes {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("diagram type %d is empty", i+1)
		}
	}
	return nil
}

// Aggregate Root: Project
type Project struct {
	ID           ProjectID       `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Sources      []Source        `json:"sources"`
	Options      AnalysisOptions `json:"analysis_options"`
	Status       Status          `json:"status"`
	Version      int64           `json:"version"`
	RunID        RunID           `json:"run_id,omitempty"`
	RunStartedAt time.Time       `json:"run_started_at,omitempty"`
	LastError    string          `json:"last_error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// LeaseActive reports whether a run currently holds the project: it is
// processing, stamped with a run id, and the lease has not expired yet.
func (p *Project) LeaseActive(now time.Time, ttl time.Duration) bool {
	if p.Status != StatusProcessing || p.RunID == "" {
		return false
	}
	if ttl <= 0 {
		return true
	}
	return now.Before(p.RunStartedAt.Add(ttl))
}

// Summary is the free-text part of the model output, stored as {"text": ...}.
type Summary struct {
	Text string `json:"text"`
}

// Result is one persisted diagram. It points at its project by id only.
type Result struct {
	ID          ResultID  `json:"id"`
	ProjectID   ProjectID `json:"project_id"`
	RunID       RunID     `json:"run_id"`
	Position    int       `json:"position"`
	DiagramType string    `json:"diagram_type"`
	MermaidCode string    `json:"mermaid_code"`
	Summary     *Summary  `json:"summary"`
	CreatedAt   time.Time `json:"created_at"`
}
