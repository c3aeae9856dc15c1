package stats

import (
	"log/slog"
	"sync"
	"time"
)

type Stage string

const (
	StageArchive Stage = "archive"
	StageLocate  Stage = "locate"
	StageExtract Stage = "extract"
	StageRender  Stage = "render"
	StageWrite   Stage = "write"
)

type EventType string

const (
	EventTypeDiscovered EventType = "discovered"
	EventTypeConverted  EventType = "converted"
	EventTypeDuplicate  EventType = "duplicate"
	EventTypeDegraded   EventType = "degraded"
	EventTypeFailed     EventType = "failed"
)

// Event is one observation emitted by the conversion run.
type Event struct {
	Stage  Stage
	Type   EventType
	Entry  string
	Err    error
	Detail string
}

// Summary is the conversion report: how many entries were discovered,
// converted, skipped as duplicates, or failed, plus the failure reasons.
type Summary struct {
	Discovered int
	Converted  int
	Duplicates int
	Degraded   int
	Failed     int
	Reasons    []string
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"discovered", s.Discovered,
		"converted", s.Converted,
		"duplicates", s.Duplicates,
		"degraded", s.Degraded,
		"failed", s.Failed,
	}
	if n := len(s.Reasons); n > 0 {
		attrs = append(attrs, "lastReason", s.Reasons[n-1])
	}
	return attrs
}

// Collector accumulates events into a Summary. The conversion run is
// single-threaded, but the collector stays safe for concurrent use so the
// progress bar may observe it.
type Collector struct {
	mu      sync.Mutex
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Apply(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch evt.Type {
	case EventTypeDiscovered:
		c.summary.Discovered++
	case EventTypeConverted:
		c.summary.Converted++
	case EventTypeDuplicate:
		c.summary.Duplicates++
	case EventTypeDegraded:
		c.summary.Degraded++
	case EventTypeFailed:
		c.summary.Failed++
		if evt.Err != nil {
			c.summary.Reasons = append(c.summary.Reasons, evt.Err.Error())
		} else if evt.Detail != "" {
			c.summary.Reasons = append(c.summary.Reasons, evt.Detail)
		}
	}
}

func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	summary := c.summary
	summary.Reasons = append([]string(nil), c.summary.Reasons...)
	c.mu.Unlock()
	return summary
}

// Reporter logs the final summary of a run.
type Reporter struct {
	collector *Collector
	logger    *slog.Logger
	started   time.Time
}

func NewReporter(collector *Collector, logger *slog.Logger) *Reporter {
	return &Reporter{collector: collector, logger: logger, started: time.Now()}
}

func (r *Reporter) Finish() Summary {
	summary := r.collector.Snapshot()
	if r.logger != nil {
		attrs := append(summary.LogAttrs(), "duration", time.Since(r.started))
		r.logger.Info("conversion summary", attrs...)
	}
	return summary
}
