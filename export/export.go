// Package export drives a full wiki export: it resets the output directory, walks
// every page title, saves non-redirect wikitext to one file per page and optionally
// builds a combined corpus.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/olgasafonova/mediawiki-export/metrics"
	"github.com/olgasafonova/mediawiki-export/tracing"
)

// Source supplies titles and page content, normally a *wiki.Client
type Source interface {
	ListAllTitles(ctx context.Context) ([]string, error)
	FetchContent(ctx context.Context, title string) string
}

// Pacer spaces out consecutive page fetches
type Pacer interface {
	Wait(ctx context.Context) error
}

// Summary reports the outcome of one run
type Summary struct {
	RunID        string
	Total        int
	Processed    int
	Redirects    int
	Unavailable  int
	CombinedPath string
	CombinedFrom int
	WordCount    int
	Duration     time.Duration
}

// Exporter runs exports for one wiki. It is not safe for concurrent use.
type Exporter struct {
	source Source
	pacer  Pacer
	opts   Options
	logger *slog.Logger
	runID  string
}

// New creates an exporter; each exporter gets its own run ID for logs and traces
func New(source Source, pacer Pacer, opts Options, logger *slog.Logger) *Exporter {
	runID := uuid.NewString()
	return &Exporter{
		source: source,
		pacer:  pacer,
		opts:   opts,
		logger: logger.With("run_id", runID),
		runID:  runID,
	}
}

// RunID returns the identifier attached to this exporter's logs and spans
func (e *Exporter) RunID() string {
	return e.runID
}

// Run performs the export. Only a failed reset, a failed title enumeration, a
// filesystem write error or cancellation stop it early; pages that cannot be
// fetched are skipped.
func (e *Exporter) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{RunID: e.runID}

	ctx, span := tracing.StartSpan(ctx, "export.run")
	defer span.End()
	tracing.AddRunAttributes(span, e.runID, e.opts.OutputDir)

	fail := func(err error) (Summary, error) {
		tracing.RecordError(span, err)
		summary.Duration = time.Since(start)
		return summary, err
	}

	if err := e.reset(); err != nil {
		return fail(err)
	}

	titles, err := e.source.ListAllTitles(ctx)
	if err != nil {
		e.logger.Error("Title enumeration failed", "error", err)
		return fail(fmt.Errorf("failed to enumerate titles: %w", err))
	}
	summary.Total = len(titles)
	e.logger.Info("Found pages", "total", summary.Total)

	for i, title := range titles {
		e.logger.Info("Processing page",
			"index", i+1,
			"total", summary.Total,
			"title", title)

		content := e.source.FetchContent(ctx, title)
		kind := Classify(content)

		switch kind {
		case KindRedirect:
			e.logger.Info("Skipping redirect page", "title", title)
			summary.Redirects++
		case KindUnavailable:
			e.logger.Warn("Skipping page without content", "title", title)
			summary.Unavailable++
		case KindContent:
			path, err := e.save(title, content)
			if err != nil {
				return fail(err)
			}
			e.logger.Info("Saved", "path", path, "bytes", len(content))
			summary.Processed++
		}
		metrics.RecordPage(kind.String(), len(content), kind == KindContent)

		if err := e.pacer.Wait(ctx); err != nil {
			return fail(err)
		}
	}

	e.logger.Info("Finished",
		"processed", summary.Processed,
		"skipped_redirects", summary.Redirects,
		"unavailable", summary.Unavailable)

	if !e.opts.SkipCombine {
		result, err := Combine(ctx, e.opts.OutputDir, e.opts.CombinedFilename)
		if err != nil {
			return fail(err)
		}
		summary.CombinedPath = result.Path
		summary.CombinedFrom = result.Files
		summary.WordCount = result.Words
		metrics.SetCombinedWords(result.Words)
		e.logger.Info("Combined file", "path", result.Path, "files", result.Files)
		e.logger.Info("Word count in combined file", "words", result.Words)
	}

	summary.Duration = time.Since(start)
	metrics.SetRunDuration(summary.Duration.Seconds())
	return summary, nil
}

// reset wipes and recreates the output directory, logging what it did
func (e *Exporter) reset() error {
	removed, err := Reset(e.opts.OutputDir)
	if err != nil {
		return err
	}
	if removed {
		e.logger.Info("Removed existing folder", "dir", e.opts.OutputDir)
	}
	e.logger.Info("Created empty folder", "dir", e.opts.OutputDir)
	return nil
}

// save writes content verbatim to the page's file, replacing any existing file
func (e *Exporter) save(title, content string) (string, error) {
	path := filepath.Join(e.opts.OutputDir, SanitizeFilename(title)+textExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to save page %q: %w", title, err)
	}
	return path, nil
}

// Reset removes dir and everything under it, then creates it empty.
// It reports whether an existing directory was removed.
func Reset(dir string) (bool, error) {
	if err := checkResettable(dir); err != nil {
		return false, err
	}

	removed := false
	if _, err := os.Stat(dir); err == nil {
		if err := os.RemoveAll(dir); err != nil {
			return false, fmt.Errorf("failed to remove %s: %w", dir, err)
		}
		removed = true
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to inspect %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return removed, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return removed, nil
}

// checkResettable rejects paths that must never be wiped
func checkResettable(dir string) error {
	if dir == "" {
		return errors.New("output directory must not be empty")
	}
	clean := filepath.Clean(dir)
	if clean == "." || clean == ".." || clean == filepath.VolumeName(clean)+string(filepath.Separator) {
		return fmt.Errorf("refusing to wipe %q", dir)
	}
	return nil
}
