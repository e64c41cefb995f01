package object

import (
	"context"
	"io"
)

// ObjectStore archives binary objects under caller-chosen keys. It holds
// page snapshots and raw LLM payloads for later inspection; relational
// state lives in the database.
type ObjectStore interface {
	Save(ctx context.Context, storageKey string, contentType string, r io.Reader) (sizeBytes int64, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
