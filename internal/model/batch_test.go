package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedgerCounts(t *testing.T) {
	t.Parallel()

	l := Ledger{
		{Row: RowRecord{Name: "Alice"}, ArtifactRef: "https://cdn.example.com/alice.pdf", EmailSent: true},
		{Row: RowRecord{Name: "Bob"}, ArtifactRef: "https://cdn.example.com/bob.pdf"},
		{Row: RowRecord{Name: "Carol"}, ErrorMessage: "rate limited"},
	}

	assert.Equal(t, 2, l.Generated())
	assert.Equal(t, 1, l.Failed())
	assert.Equal(t, 1, l.Emailed())
}

func TestGenerationOutcome_Generated(t *testing.T) {
	t.Parallel()

	assert.True(t, GenerationOutcome{ArtifactRef: "ref"}.Generated())
	assert.False(t, GenerationOutcome{ErrorMessage: "boom"}.Generated())
	assert.False(t, GenerationOutcome{}.Generated())
}

func TestLedgerCounts_Empty(t *testing.T) {
	t.Parallel()

	var l Ledger
	assert.Equal(t, 0, l.Generated())
	assert.Equal(t, 0, l.Failed())
	assert.Equal(t, 0, l.Emailed())
}
