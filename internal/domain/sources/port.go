package sources

import "context"

// Snapshotter port: turns a repository reference into one text blob.
type Snapshotter interface {
	Snapshot(ctx context.Context, repoRef string) (string, error)
}
