// Package history persists a short record of completed generations. The
// store is injected by the orchestrating caller and touched only at batch
// boundaries, never mid-pipeline.
package history

import (
	"context"

	"github.com/choicecert/certmill/internal/model"
)

// MaxEntries caps the persisted history; the oldest entries are evicted
// first once the cap is reached.
const MaxEntries = 10

// Store defines the history persistence interface.
type Store interface {
	// Append records one completed generation and evicts beyond MaxEntries.
	Append(ctx context.Context, entry model.HistoryEntry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]model.HistoryEntry, error)
	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
