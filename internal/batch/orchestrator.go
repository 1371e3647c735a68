// Package batch drives one bulk run from a validated row list to a ledger
// of per-row outcomes. Rows are processed strictly one at a time: the
// upstream generation and email endpoints are assumed not to tolerate
// concurrent bursts, and sequential processing keeps the progress percentage
// trivially monotonic and the ledger consistent without locking.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/choicecert/certmill/internal/archive"
	"github.com/choicecert/certmill/internal/history"
	"github.com/choicecert/certmill/internal/model"
	"github.com/choicecert/certmill/internal/roster"
	"github.com/choicecert/certmill/pkg/generator"
	"github.com/choicecert/certmill/pkg/mailer"
)

var (
	// ErrAlreadyStarted is returned when Run is called twice; entering
	// Processing is a one-way transition.
	ErrAlreadyStarted = eris.New("batch: processing already started")
	// ErrNoRows is returned for an empty validated row list.
	ErrNoRows = eris.New("batch: no rows to process")
	// ErrInvalidMode rejects archive mode for credential runs before any
	// side effect; passwords are not fetchable artifacts.
	ErrInvalidMode = eris.New("batch: credentials cannot be archived")
	// ErrNoArtifacts marks a run where every generation call failed. This is
	// the fatal terminal state, distinct from a partial success.
	ErrNoArtifacts = eris.New("batch: no artifacts generated")
)

// Archiver abstracts archive assembly for the orchestrator.
type Archiver interface {
	Build(ctx context.Context, entries []archive.Entry, destDir string, onFetch func(done, total int)) (*archive.Result, error)
}

// Options fixes the shape of one batch run. Mode and Kind never change
// mid-run.
type Options struct {
	Kind model.ArtifactKind
	Mode model.OutputMode

	// Template is the certificate email body; ${name} is replaced per row.
	Template string
	// Subject lines per message kind.
	Subject            string
	CredentialsSubject string
	// Tokens is the opaque mail credential. Nil disables delivery without
	// erroring: rows are still generated.
	Tokens json.RawMessage

	// OutDir receives the archive in archive mode.
	OutDir string

	Reporter Reporter
	// History, when non-nil, receives one entry per successful row after the
	// run terminates. It is never touched mid-pipeline.
	History history.Store

	// Now is injectable for testing.
	Now func() time.Time
}

// Runner executes one batch run. Preview holds the validated rows with no
// side effects; Run performs the one-way transition into Processing.
type Runner struct {
	rows   []model.RowRecord
	gen    generator.Client
	mail   mailer.Client
	arch   Archiver
	opts   Options
	state  model.BatchState
	ledger model.Ledger

	deliveryFailed int
}

// New creates a runner in the Preview state.
func New(rows []model.RowRecord, gen generator.Client, mail mailer.Client, arch Archiver, opts Options) *Runner {
	if opts.Kind == "" {
		opts.Kind = model.KindCertificate
	}
	if opts.Mode == "" {
		opts.Mode = model.ModeEmail
	}
	if opts.OutDir == "" {
		opts.OutDir = "."
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{
		rows:  rows,
		gen:   gen,
		mail:  mail,
		arch:  arch,
		opts:  opts,
		state: model.StatePreview,
	}
}

// State returns the current lifecycle state.
func (r *Runner) State() model.BatchState {
	return r.state
}

// Rows returns the validated-but-unprocessed rows for preview rendering.
func (r *Runner) Rows() []model.RowRecord {
	return r.rows
}

// Ledger returns the outcomes recorded so far.
func (r *Runner) Ledger() model.Ledger {
	return r.ledger
}

// Run processes every row in order and returns the consolidated summary.
// A single row's failure never aborts the batch; the error return is
// reserved for fatal terminal states (zero usable artifacts, an empty
// archive) and for an aborted context. On a fatal terminal state the
// summary is still returned alongside the error so the caller can render
// which rows failed and why.
func (r *Runner) Run(ctx context.Context) (*model.BatchSummary, error) {
	if r.state != model.StatePreview {
		return nil, ErrAlreadyStarted
	}
	if len(r.rows) == 0 {
		return nil, ErrNoRows
	}
	if r.opts.Mode == model.ModeArchive && r.opts.Kind == model.KindCredentials {
		return nil, ErrInvalidMode
	}
	r.state = model.StateProcessing

	runID := uuid.New().String()
	log := zap.L().With(
		zap.String("run_id", runID),
		zap.String("kind", string(r.opts.Kind)),
		zap.String("mode", string(r.opts.Mode)),
	)
	log.Info("processing batch", zap.Int("rows", len(r.rows)))

	genScale := 100
	if r.opts.Mode == model.ModeArchive {
		genScale = 50
	}
	track := newTracker(r.opts.Reporter, len(r.rows), genScale)

	summary := &model.BatchSummary{
		RunID: runID,
		Kind:  r.opts.Kind,
		Mode:  r.opts.Mode,
	}

	var entries []archive.Entry
	for _, row := range r.rows {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "batch: processing aborted")
		}

		outcome := r.processRow(ctx, log, row)
		r.ledger = append(r.ledger, outcome)

		if outcome.Generated() && r.opts.Mode == model.ModeArchive {
			entries = append(entries, archive.Entry{Name: row.Name, ArtifactRef: outcome.ArtifactRef})
		}
		track.rowDone()
	}

	summary.Ledger = r.ledger
	summary.Generated = r.ledger.Generated()
	summary.Failed = r.ledger.Failed()
	summary.Emailed = r.ledger.Emailed()
	summary.DeliveryFailed = r.deliveryFailed

	if summary.Generated == 0 {
		r.state = model.StateComplete
		summary.Status = model.StatusFatal
		log.Error("batch fatal: no artifacts generated", zap.Int("rows", len(r.rows)))
		return summary, ErrNoArtifacts
	}

	if r.opts.Mode == model.ModeArchive {
		result, err := r.arch.Build(ctx, entries, r.opts.OutDir, track.fetchDone)
		if err != nil {
			r.state = model.StateComplete
			summary.Status = model.StatusFatal
			log.Error("batch fatal: archive assembly failed", zap.Error(err))
			return summary, eris.Wrap(err, "batch: assemble archive")
		}
		summary.ArchivePath = result.Path
		summary.FetchSkipped = result.Skipped
	}

	r.state = model.StateComplete

	if summary.Failed > 0 || summary.DeliveryFailed > 0 || summary.FetchSkipped > 0 {
		summary.Status = model.StatusPartial
	} else {
		summary.Status = model.StatusSuccess
	}

	r.writeHistory(ctx, log)

	log.Info("batch complete",
		zap.String("status", string(summary.Status)),
		zap.Int("generated", summary.Generated),
		zap.Int("failed", summary.Failed),
		zap.Int("emailed", summary.Emailed),
		zap.Int("delivery_failed", summary.DeliveryFailed),
		zap.Int("fetch_skipped", summary.FetchSkipped),
	)
	return summary, nil
}

// processRow runs the generation call and, in email mode, the delivery
// branch for a single row. Errors are captured in the outcome and never
// escape the row boundary.
func (r *Runner) processRow(ctx context.Context, log *zap.Logger, row model.RowRecord) model.GenerationOutcome {
	outcome := model.GenerationOutcome{
		Row:       row,
		Timestamp: r.opts.Now().UTC(),
	}

	var ref string
	var err error
	switch r.opts.Kind {
	case model.KindCredentials:
		ref, err = r.gen.GenerateCredentials(ctx, row.Name, row.Email, row.Phone)
	default:
		ref, err = r.gen.GenerateCertificate(ctx, row.Name)
	}
	if err != nil {
		outcome.ErrorMessage = err.Error()
		log.Warn("generation failed",
			zap.String("name", row.Name),
			zap.Error(err),
		)
		return outcome
	}
	outcome.ArtifactRef = ref

	if r.opts.Mode == model.ModeEmail {
		r.deliver(ctx, log, row, ref, &outcome)
	}

	return outcome
}

// deliver emails the artifact when the row carries a dispatchable address
// and a credential is present. A delivery failure is recorded but does not
// revert the generation success.
func (r *Runner) deliver(ctx context.Context, log *zap.Logger, row model.RowRecord, ref string, outcome *model.GenerationOutcome) {
	if len(r.opts.Tokens) == 0 || !roster.ValidEmail(row.Email) {
		return
	}

	msg := mailer.Message{To: row.Email}
	switch r.opts.Kind {
	case model.KindCredentials:
		msg.Kind = mailer.KindCredentials
		msg.Subject = r.opts.CredentialsSubject
		msg.Body = credentialsBody(row.Name, row.Email, ref)
	default:
		msg.Kind = mailer.KindCertificate
		msg.Subject = r.opts.Subject
		msg.Body = RenderTemplate(r.opts.Template, row.Name)
		msg.AttachmentURL = ref
	}

	if err := r.mail.Send(ctx, msg, r.opts.Tokens); err != nil {
		r.deliveryFailed++
		log.Warn("delivery failed",
			zap.String("name", row.Name),
			zap.String("to", row.Email),
			zap.Error(err),
		)
		return
	}
	outcome.EmailSent = true
}

// writeHistory records one entry per successful row once the run has
// terminated. Store failures are logged, never fatal.
func (r *Runner) writeHistory(ctx context.Context, log *zap.Logger) {
	if r.opts.History == nil {
		return
	}

	for _, outcome := range r.ledger {
		if !outcome.Generated() {
			continue
		}
		status := model.HistoryDownloaded
		if outcome.EmailSent {
			status = model.HistoryEmailed
		}
		entry := model.HistoryEntry{
			Name:        outcome.Row.Name,
			ArtifactRef: outcome.ArtifactRef,
			Status:      status,
			CreatedAt:   outcome.Timestamp,
		}
		if err := r.opts.History.Append(ctx, entry); err != nil {
			log.Warn("history write failed",
				zap.String("name", outcome.Row.Name),
				zap.Error(err),
			)
		}
	}
}

// RenderTemplate substitutes the ${name} placeholder in an email template.
func RenderTemplate(template, name string) string {
	return strings.ReplaceAll(template, "${name}", name)
}

func credentialsBody(name, email, password string) string {
	return fmt.Sprintf("Dear %s,\n\nHere are your Swayam login credentials:\n\nEmail: %s\nPassword: %s\n\nBest regards", name, email, password)
}
