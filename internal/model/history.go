package model

import "time"

// HistoryStatus records how a generated artifact was delivered.
type HistoryStatus string

const (
	HistoryDownloaded HistoryStatus = "downloaded"
	HistoryEmailed    HistoryStatus = "emailed"
	HistoryBoth       HistoryStatus = "both"
)

// HistoryEntry is one persisted record of a completed generation. The store
// keeps only the 10 most recent entries, oldest evicted first.
type HistoryEntry struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	ArtifactRef string        `json:"artifact_ref"`
	Status      HistoryStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}
