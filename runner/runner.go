// Package runner sequences one conversion run: unpack the archive, locate
// the message entries, extract and render each one, write the EML files,
// and report the outcome. The run is single-threaded; entries are processed
// to completion one at a time, and a per-entry failure never aborts the
// run. Only an archive-level failure does.
package runner

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dhcgn/olm-to-eml/config"
	"github.com/dhcgn/olm-to-eml/eml"
	"github.com/dhcgn/olm-to-eml/extract"
	"github.com/dhcgn/olm-to-eml/mbox"
	"github.com/dhcgn/olm-to-eml/olm"
	"github.com/dhcgn/olm-to-eml/progress"
	"github.com/dhcgn/olm-to-eml/state"
	"github.com/dhcgn/olm-to-eml/stats"
)

// Runner owns the state of one conversion run, including the output
// sequence counter. A fresh Runner is required per run.
type Runner struct {
	cfg       config.Config
	logger    *slog.Logger
	extractor *extract.Extractor
	collector *stats.Collector
	tracker   *state.MemoryTracker

	// now supplies the Date fallback for messages without a recorded date.
	now func() time.Time

	// seq numbers output files. Every attempted entry consumes a number,
	// including ones that fail; duplicates skipped by --dedupe do not.
	seq int
}

func New(cfg config.Config, logger *slog.Logger) (*Runner, error) {
	extractor, err := extract.New(extract.Options{
		MinPrintableRun: cfg.MinPrintableRun,
		AddressPattern:  cfg.AddressPattern,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}

	return &Runner{
		cfg:       cfg,
		logger:    logger,
		extractor: extractor,
		collector: stats.NewCollector(),
		tracker:   state.NewMemoryTracker(),
		now:       time.Now,
	}, nil
}

// Run executes the conversion and returns the report. The scratch
// directory is removed on every exit path past unpacking, including
// archive-level failure.
func (r *Runner) Run() (stats.Summary, error) {
	reporter := stats.NewReporter(r.collector, r.logger)

	scratch, err := olm.ExtractArchive(r.cfg.OLMPath, r.logger)
	if err != nil {
		return reporter.Finish(), err
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil && r.logger != nil {
			r.logger.Warn("scratch dir not removed", "dir", scratch, "err", err)
		}
	}()

	entries, err := olm.LocateEntries(scratch)
	if err != nil {
		if errors.Is(err, olm.ErrNoMessagesFound) {
			// Unrecognized internal layout is a reportable condition, not a
			// crash: the run completes with zero output files.
			if r.logger != nil {
				r.logger.Warn("no messages found", "olm", r.cfg.OLMPath, "err", err)
			}
			return reporter.Finish(), nil
		}
		return reporter.Finish(), err
	}

	for _, entry := range entries {
		r.collector.Apply(stats.Event{Stage: stats.StageLocate, Type: stats.EventTypeDiscovered, Entry: filepath.Base(entry)})
	}

	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return reporter.Finish(), fmt.Errorf("create output dir: %w", err)
	}

	var mirror *mbox.Mirror
	if r.cfg.MboxPath != "" {
		mirror, err = mbox.NewMirror(r.cfg.MboxPath)
		if err != nil {
			return reporter.Finish(), err
		}
		defer func() {
			if err := mirror.Close(); err != nil && r.logger != nil {
				r.logger.Warn("mbox mirror close failed", "err", err)
			}
		}()
	}

	bar := progress.New(len(entries), r.cfg.LogLevel)
	defer bar.Stop()

	for _, entry := range entries {
		r.processEntry(entry, mirror, bar)
	}

	return reporter.Finish(), nil
}

// processEntry converts a single entry. Failures are recorded in the
// report and never propagate.
func (r *Runner) processEntry(path string, mirror *mbox.Mirror, bar *progress.Bar) {
	name := filepath.Base(path)
	emit := func(evt stats.Event) {
		evt.Entry = name
		r.collector.Apply(evt)
		bar.Update(evt)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		r.seq++
		emit(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeFailed, Err: fmt.Errorf("read entry: %w", err)})
		return
	}

	if r.cfg.Dedupe {
		hash := state.Hash(raw)
		if r.tracker.AlreadyProcessed(hash) {
			emit(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeDuplicate})
			if r.logger != nil {
				r.logger.Debug("duplicate entry skipped", "entry", name)
			}
			return
		}
		r.tracker.MarkProcessed(hash, name)
	}

	r.seq++

	msg, extractErr := r.extractor.Extract(raw, name)

	rendered, err := eml.Build(msg, r.now())
	if err != nil {
		emit(stats.Event{Stage: stats.StageRender, Type: stats.EventTypeFailed, Err: err})
		return
	}

	outPath := filepath.Join(r.cfg.OutputDir, eml.Filename(r.seq))
	if err := os.WriteFile(outPath, rendered, 0o644); err != nil {
		emit(stats.Event{Stage: stats.StageWrite, Type: stats.EventTypeFailed, Err: fmt.Errorf("write %s: %w", outPath, err)})
		return
	}

	if mirror != nil {
		from := msg.Sender.Email
		if from == "" {
			from = eml.PlaceholderSender
		}
		date, ok := eml.ParseDate(msg.Date)
		if !ok {
			date = r.now()
		}
		if err := mirror.Append(from, date, rendered); err != nil && r.logger != nil {
			r.logger.Warn("mbox mirror append failed", "entry", name, "err", err)
		}
	}

	if extractErr != nil {
		// The placeholder output above keeps numbering and downstream
		// tooling consistent, but the entry counts as failed.
		emit(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeFailed, Err: extractErr})
		return
	}

	if msg.IsEmpty() {
		emit(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeDegraded, Detail: "no fields recovered"})
	}
	emit(stats.Event{Stage: stats.StageWrite, Type: stats.EventTypeConverted})
	if r.logger != nil {
		r.logger.Debug("converted entry", "entry", name, "out", filepath.Base(outPath))
	}
}
