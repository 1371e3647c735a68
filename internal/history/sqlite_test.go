package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choicecert/certmill/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestAppendAndRecent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, model.HistoryEntry{
		Name:        "Alice",
		ArtifactRef: "https://cdn.example.com/alice.pdf",
		Status:      model.HistoryEmailed,
	}))
	require.NoError(t, s.Append(ctx, model.HistoryEntry{
		Name:        "Bob",
		ArtifactRef: "https://cdn.example.com/bob.pdf",
		Status:      model.HistoryDownloaded,
	}))

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "Bob", entries[0].Name)
	assert.Equal(t, model.HistoryDownloaded, entries[0].Status)
	assert.Equal(t, "Alice", entries[1].Name)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestAppend_EvictsBeyondCap(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	for i := 0; i < MaxEntries+3; i++ {
		require.NoError(t, s.Append(ctx, model.HistoryEntry{
			Name:        fmt.Sprintf("entry-%02d", i),
			ArtifactRef: "https://cdn.example.com/x.pdf",
			Status:      model.HistoryDownloaded,
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := s.Recent(ctx, MaxEntries)
	require.NoError(t, err)
	require.Len(t, entries, MaxEntries)

	// The 3 oldest were evicted.
	assert.Equal(t, "entry-12", entries[0].Name)
	assert.Equal(t, "entry-03", entries[len(entries)-1].Name)
}

func TestRecent_LimitClamped(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, model.HistoryEntry{
			Name:        fmt.Sprintf("entry-%d", i),
			ArtifactRef: "ref",
			Status:      model.HistoryBoth,
		}))
	}

	entries, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 5)

	entries, err = s.Recent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestClear(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, model.HistoryEntry{
		Name: "Alice", ArtifactRef: "ref", Status: model.HistoryEmailed,
	}))
	require.NoError(t, s.Clear(ctx))

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
