// Package artifact archives the raw material of each generation run
// (rendered prompts and unparsed provider responses) for later inspection.
// Archiving is best effort; the engine never fails an operation over it.
package artifact

import "context"

type Store interface {
	Put(ctx context.Context, runID, path string, content []byte) error
	Get(ctx context.Context, runID, path string) ([]byte, error)
	List(ctx context.Context, runID string) ([]string, error)
}
