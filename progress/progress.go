package progress

import (
	"sync"

	"github.com/pterm/pterm"

	"github.com/dhcgn/olm-to-eml/stats"
)

// Bar manages a progress bar for tracking entry conversion.
type Bar struct {
	pb      *pterm.ProgressbarPrinter
	mu      sync.Mutex
	enabled bool
}

// New creates a progress bar over total entries when logLevel is "info".
// Other levels either want silence or full logs, not a bar.
func New(total int, logLevel string) *Bar {
	bar := &Bar{enabled: logLevel == "info" && total > 0}

	if bar.enabled {
		pb, _ := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle("Converting messages").
			Start()
		bar.pb = pb

		pterm.Info.Printf("Messages discovered in archive: %d\n", total)
		pterm.Println()
	}

	return bar
}

// Update advances the bar based on the event type.
func (b *Bar) Update(evt stats.Event) {
	if !b.enabled || b.pb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch evt.Type {
	case stats.EventTypeConverted, stats.EventTypeFailed, stats.EventTypeDuplicate:
		b.pb.Increment()
		if evt.Entry != "" {
			display := evt.Entry
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			b.pb.UpdateTitle("Converting: " + display)
		}
	}
}

// Stop finalizes the bar output.
func (b *Bar) Stop() {
	if !b.enabled || b.pb == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = b.pb.Stop()
}
