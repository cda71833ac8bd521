package projects

import (
	"context"
	"fmt"
	"time"
)

// Repository port (interface untuk persistence)
type Repository interface {
	Create(ctx context.Context, p *Project) error
	Get(ctx context.Context, id ProjectID) (*Project, error)
	List(ctx context.Context, limit int) ([]*Project, error)
	Delete(ctx context.Context, id ProjectID) error

	// AcquireRun moves the project into processing and stamps runID, but only
	// if the stored version still equals expectedVersion. Otherwise it returns
	// ErrRunInProgress.
	AcquireRun(ctx context.Context, id ProjectID, expectedVersion int64, runID RunID, at time.Time) error
	// FinishRun writes the final status of a run. It returns ErrLeaseLost when
	// the project is no longer held by runID.
	FinishRun(ctx context.Context, id ProjectID, runID RunID, status Status, lastError string, at time.Time) error
}

// ResultRepository port for analysis results
type ResultRepository interface {
	Insert(ctx context.Context, r *Result) error
	DeleteByProject(ctx context.Context, id ProjectID) error
	ListByProject(ctx context.Context, id ProjectID) ([]*Result, error)
	CountByProject(ctx context.Context, id ProjectID) (int, error)
}

// ArchiveStore keeps run artefacts (repository snapshot, model transcript)
// outside the database.
type ArchiveStore interface {
	PutText(ctx context.Context, key, contentType, body string) (string, error)
}

// ArchiveReader reads archived run artefacts back.
type ArchiveReader interface {
	GetText(ctx context.Context, key string) (string, error)
}

// Archived artefacts of one run.
const (
	ArtifactSnapshot   = "snapshot.txt"
	ArtifactTranscript = "transcript.md"
)

// ValidArtifact reports whether name is an artefact runs archive.
func ValidArtifact(name string) bool {
	return name == ArtifactSnapshot || name == ArtifactTranscript
}

// ArchiveKey is the object key of one run artefact.
func ArchiveKey(id ProjectID, runID RunID, name string) string {
	return fmt.Sprintf("projects/%s/runs/%s/%s", id, runID, name)
}
