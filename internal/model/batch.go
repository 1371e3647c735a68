package model

import "time"

// ArtifactKind selects what the remote generator produces for a row.
type ArtifactKind string

const (
	KindCertificate ArtifactKind = "certificate"
	KindCredentials ArtifactKind = "credentials"
)

// OutputMode is the terminal action for generated artifacts, fixed for the
// lifetime of one batch run.
type OutputMode string

const (
	ModeEmail   OutputMode = "email"
	ModeArchive OutputMode = "zip"
)

// BatchState is the orchestrator lifecycle. Preview holds validated rows
// with no side effects; entering Processing is a one-way transition.
type BatchState string

const (
	StatePreview    BatchState = "preview"
	StateProcessing BatchState = "processing"
	StateComplete   BatchState = "complete"
)

// BatchStatus is the terminal outcome of a run.
type BatchStatus string

const (
	StatusSuccess BatchStatus = "success"
	StatusPartial BatchStatus = "partial"
	StatusFatal   BatchStatus = "fatal"
)

// RowRecord is one validated roster row. Immutable once validated.
type RowRecord struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// GenerationOutcome records the result of processing a single row. Exactly
// one of ArtifactRef or ErrorMessage is set after the generation step.
type GenerationOutcome struct {
	Row          RowRecord `json:"row"`
	ArtifactRef  string    `json:"artifact_ref,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	EmailSent    bool      `json:"email_sent"`
	Timestamp    time.Time `json:"timestamp"`
}

// Generated reports whether the row produced a usable artifact.
func (o GenerationOutcome) Generated() bool {
	return o.ArtifactRef != ""
}

// Ledger is the ordered, append-only record of per-row outcomes for a run.
// Insertion order equals row processing order.
type Ledger []GenerationOutcome

// Generated counts outcomes that produced an artifact.
func (l Ledger) Generated() int {
	n := 0
	for _, o := range l {
		if o.Generated() {
			n++
		}
	}
	return n
}

// Failed counts outcomes that recorded a generation error.
func (l Ledger) Failed() int {
	return len(l) - l.Generated()
}

// Emailed counts outcomes that were delivered by email.
func (l Ledger) Emailed() int {
	n := 0
	for _, o := range l {
		if o.EmailSent {
			n++
		}
	}
	return n
}

// BatchProgress is a derived completion snapshot, recomputed after every
// unit of work. Percent is monotonically non-decreasing within a run.
type BatchProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

// BatchSummary is the consolidated outcome of one batch run. The caller
// receives both the terminal status and the full ledger so it can render
// which specific rows failed and why.
type BatchSummary struct {
	RunID          string       `json:"run_id"`
	Kind           ArtifactKind `json:"kind"`
	Mode           OutputMode   `json:"mode"`
	Status         BatchStatus  `json:"status"`
	Generated      int          `json:"generated"`
	Failed         int          `json:"failed"`
	Emailed        int          `json:"emailed"`
	DeliveryFailed int          `json:"delivery_failed"`
	FetchSkipped   int          `json:"fetch_skipped"`
	ArchivePath    string       `json:"archive_path,omitempty"`
	Ledger         Ledger       `json:"ledger"`
}
