// Package extract turns raw message entry bytes into a NormalizedMessage.
// Entries come in two encodings without a shared schema: an OPF XML document
// or an opaque blob. A detector picks the strategy per entry; both
// strategies degrade to a partial or empty record instead of failing the
// run.
package extract

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dhcgn/olm-to-eml/config"
	"github.com/dhcgn/olm-to-eml/model"
)

// Options tunes the blob scanner. Zero values fall back to the config
// defaults so thresholds stay in one place.
type Options struct {
	MinPrintableRun int
	AddressPattern  string
}

// Extractor converts entry bytes into NormalizedMessages.
type Extractor struct {
	minRun int
	addrRe *regexp.Regexp
	logger *slog.Logger
}

// New compiles the scanner configuration into an Extractor.
func New(opts Options, logger *slog.Logger) (*Extractor, error) {
	minRun := opts.MinPrintableRun
	if minRun <= 0 {
		minRun = config.DefaultMinPrintableRun
	}
	pattern := opts.AddressPattern
	if pattern == "" {
		pattern = config.DefaultAddressPattern
	}
	addrRe, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile address pattern: %w", err)
	}
	return &Extractor{minRun: minRun, addrRe: addrRe, logger: logger}, nil
}

// Extract picks the strategy for one entry and runs it. The returned error
// is advisory: the message is always usable, and a markup parse failure
// still yields an empty record the builder can render.
func (e *Extractor) Extract(raw []byte, name string) (model.NormalizedMessage, error) {
	if DetectFormat(raw, name) == model.FormatMarkup {
		msg, err := e.fromMarkup(raw)
		if err != nil {
			if e.logger != nil {
				e.logger.Warn("markup parse failed, entry degraded", "entry", name, "err", err)
			}
			return model.NormalizedMessage{}, fmt.Errorf("parse markup entry %s: %w", name, err)
		}
		return msg, nil
	}
	return e.fromBlob(raw), nil
}

// DetectFormat decides which storage encoding an entry uses. Markup wins
// when the name matches the generic XML message pattern or the content
// starts with an XML declaration; everything else is treated as a blob.
func DetectFormat(raw []byte, name string) model.StorageFormat {
	if strings.HasPrefix(name, "message_") && strings.HasSuffix(name, ".xml") {
		return model.FormatMarkup
	}
	if sniffMarkup(raw) {
		return model.FormatMarkup
	}
	return model.FormatBlob
}

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

func sniffMarkup(raw []byte) bool {
	head := bytes.TrimPrefix(raw, utf8BOM)
	head = bytes.TrimLeft(head, " \t\r\n")
	return bytes.HasPrefix(head, []byte("<?xml")) || bytes.HasPrefix(head, []byte("<email"))
}
