package batch

import (
	"math"

	"github.com/choicecert/certmill/internal/model"
)

// Reporter is a passive sink the orchestrator notifies after every unit of
// work. Implementations must not block.
type Reporter interface {
	Progress(p model.BatchProgress)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(model.BatchProgress)

func (f ReporterFunc) Progress(p model.BatchProgress) {
	f(p)
}

// tracker derives completion percentages and keeps them monotone across the
// generation half and, in archive mode, the fetch half of a run.
type tracker struct {
	reporter    Reporter
	rows        int
	genScale    int
	completed   int
	lastPercent int
}

// newTracker creates a tracker for a run of rows generation units. genScale
// is 100 for pure generation and 50 when an archive fetch phase follows.
func newTracker(reporter Reporter, rows, genScale int) *tracker {
	return &tracker{reporter: reporter, rows: rows, genScale: genScale}
}

func (t *tracker) rowDone() {
	t.completed++
	t.emit(t.completed, t.rows, scaled(t.completed, t.rows, t.genScale))
}

func (t *tracker) fetchDone(done, total int) {
	t.emit(done, total, 50+scaled(done, total, 50))
}

func (t *tracker) emit(completed, total, percent int) {
	if percent < t.lastPercent {
		percent = t.lastPercent
	}
	t.lastPercent = percent
	if t.reporter != nil {
		t.reporter.Progress(model.BatchProgress{
			Completed: completed,
			Total:     total,
			Percent:   percent,
		})
	}
}

func scaled(done, total, scale int) int {
	if total == 0 {
		return scale
	}
	return int(math.Round(float64(done) / float64(total) * float64(scale)))
}
