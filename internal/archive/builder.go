// Package archive assembles generated certificates into a single
// downloadable zip. Artifacts are fetched through the retrieval proxy
// because the artifact host disallows direct cross-origin requests.
package archive

import (
	"archive/zip"
	"compress/flate"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/choicecert/certmill/pkg/proxy"
)

// deflateLevel balances archive size against assembly time.
const deflateLevel = 6

// ErrEmptyArchive is returned when every entry failed retrieval and the
// finalized container would hold zero payload bytes.
var ErrEmptyArchive = eris.New("archive: no entries could be retrieved")

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9]`)

// Entry is one artifact to pack: the recipient name and the artifact URL.
type Entry struct {
	Name        string
	ArtifactRef string
}

// Result summarizes a finished archive build.
type Result struct {
	Path    string
	Added   int
	Skipped int
	Bytes   int64
}

// Builder fetches artifacts one at a time and packs them into a zip.
type Builder struct {
	proxy proxy.Client
	now   func() time.Time
}

// NewBuilder creates an archive builder backed by the given retrieval proxy.
func NewBuilder(p proxy.Client) *Builder {
	return &Builder{
		proxy: p,
		now:   time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (b *Builder) WithNow(fn func() time.Time) *Builder {
	b.now = fn
	return b
}

// SanitizeName maps a recipient name onto an archive-safe file stem: every
// character outside [A-Za-z0-9] becomes an underscore. Identical sanitized
// names collide and the later entry wins.
func SanitizeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// FileName returns the deterministic archive name for the given date.
func FileName(t time.Time) string {
	return "certificates-" + t.UTC().Format("2006-01-02") + ".zip"
}

// Build fetches every entry through the proxy and writes the archive into
// destDir. A failed fetch skips that entry and continues; onFetch, when
// non-nil, is called after every attempt. The archive holds one file per
// retrieved entry at certificates/<sanitized>.pdf.
func (b *Builder) Build(ctx context.Context, entries []Entry, destDir string, onFetch func(done, total int)) (*Result, error) {
	path := filepath.Join(destDir, FileName(b.now()))

	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrap(err, "archive: create file")
	}

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, deflateLevel)
	})

	result := &Result{Path: path}
	seen := make(map[string]bool, len(entries))

	for i, entry := range entries {
		data, fetchErr := b.proxy.Fetch(ctx, entry.ArtifactRef)
		if fetchErr != nil {
			result.Skipped++
			zap.L().Warn("archive: skipping entry after failed fetch",
				zap.String("name", entry.Name),
				zap.Error(fetchErr),
			)
			report(onFetch, i+1, len(entries))
			continue
		}

		name := "certificates/" + SanitizeName(entry.Name) + ".pdf"
		if seen[name] {
			zap.L().Warn("archive: sanitized name collision, later entry wins",
				zap.String("entry", name),
			)
		}
		seen[name] = true

		w, createErr := zw.Create(name)
		if createErr != nil {
			_ = zw.Close()
			_ = f.Close()
			return nil, eris.Wrap(createErr, "archive: create entry")
		}
		if _, writeErr := w.Write(data); writeErr != nil {
			_ = zw.Close()
			_ = f.Close()
			return nil, eris.Wrap(writeErr, "archive: write entry")
		}

		result.Added++
		result.Bytes += int64(len(data))
		report(onFetch, i+1, len(entries))
	}

	if err := zw.Close(); err != nil {
		_ = f.Close()
		return nil, eris.Wrap(err, "archive: finalize")
	}
	if err := f.Close(); err != nil {
		return nil, eris.Wrap(err, "archive: close file")
	}

	if result.Added == 0 || result.Bytes == 0 {
		_ = os.Remove(path)
		return nil, ErrEmptyArchive
	}

	zap.L().Info("archive assembled",
		zap.String("path", path),
		zap.Int("added", result.Added),
		zap.Int("skipped", result.Skipped),
		zap.Int64("bytes", result.Bytes),
	)

	return result, nil
}

func report(onFetch func(done, total int), done, total int) {
	if onFetch != nil {
		onFetch(done, total)
	}
}
