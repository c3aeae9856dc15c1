package extract

import (
	"regexp"
	"strings"

	"github.com/dhcgn/olm-to-eml/model"
)

// Header-like lines the blob scanner recognizes inside printable text runs.
var (
	blobSubjectRe = regexp.MustCompile(`(?im)^subject:[ \t]*(.+)$`)
	blobFromRe    = regexp.MustCompile(`(?im)^from:[ \t]*(.+)$`)
	blobToRe      = regexp.MustCompile(`(?im)^to:[ \t]*(.+)$`)
	blobDateRe    = regexp.MustCompile(`(?im)^date:[ \t]*(.+)$`)
)

// maxSubjectSeedLen caps the subject candidate taken from the text
// preceding the first recognized address.
const maxSubjectSeedLen = 120

// fromBlob scans an opaque entry for recognizable text. There is no schema
// to follow, so this trades precision for robustness: it never fails, but
// the record may come back empty or only partially populated.
func (e *Extractor) fromBlob(raw []byte) model.NormalizedMessage {
	text := joinPrintableRuns(raw, e.minRun)
	if text == "" {
		return model.NormalizedMessage{}
	}

	var msg model.NormalizedMessage

	if m := blobSubjectRe.FindStringSubmatch(text); m != nil {
		msg.Subject = strings.TrimSpace(m[1])
	}
	if m := blobDateRe.FindStringSubmatch(text); m != nil {
		msg.Date = strings.TrimSpace(m[1])
	}
	if m := blobFromRe.FindStringSubmatch(text); m != nil {
		msg.Sender = splitAddress(strings.TrimSpace(m[1]), e.addrRe)
	}
	if m := blobToRe.FindStringSubmatch(text); m != nil {
		msg.Recipients = append(msg.Recipients, splitAddress(strings.TrimSpace(m[1]), e.addrRe))
	}

	addrLoc := e.addrRe.FindStringIndex(text)

	// No From line recognized: fall back to the first address-shaped
	// substring anywhere in the text.
	if msg.Sender.Empty() && addrLoc != nil {
		msg.Sender = model.Address{Email: text[addrLoc[0]:addrLoc[1]]}
	}

	// No Subject line either: the text immediately preceding the first
	// address is the best remaining seed.
	if msg.Subject == "" && addrLoc != nil {
		msg.Subject = subjectSeed(text[:addrLoc[0]])
	}

	msg.Body = blobBody(text)

	return msg
}

// joinPrintableRuns collects runs of printable bytes of at least minRun
// length and joins them with newlines.
func joinPrintableRuns(raw []byte, minRun int) string {
	var runs []string
	start := -1
	for i, b := range raw {
		if printable(b) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= minRun {
			runs = append(runs, strings.TrimSpace(string(raw[start:i])))
		}
		start = -1
	}
	if start >= 0 && len(raw)-start >= minRun {
		runs = append(runs, strings.TrimSpace(string(raw[start:])))
	}
	return strings.ReplaceAll(strings.Join(runs, "\n"), "\r\n", "\n")
}

// Line breaks count as printable so header-like lines survive the scan
// intact.
func printable(b byte) bool {
	return b == '\t' || b == '\n' || b == '\r' || (b >= 0x20 && b < 0x7f)
}

// splitAddress separates "Display Name <addr@host>" style text into its
// parts using the configured address pattern.
func splitAddress(field string, addrRe *regexp.Regexp) model.Address {
	addr := model.Address{}
	if loc := addrRe.FindStringIndex(field); loc != nil {
		addr.Email = field[loc[0]:loc[1]]
		name := strings.Trim(field[:loc[0]], " \t<>\"")
		addr.Name = strings.TrimSpace(name)
	} else {
		addr.Name = field
	}
	return addr
}

func subjectSeed(prefix string) string {
	lines := strings.Split(strings.TrimSpace(prefix), "\n")
	if len(lines) == 0 {
		return ""
	}
	seed := strings.Trim(lines[len(lines)-1], " \t<>\"")
	if len(seed) > maxSubjectSeedLen {
		seed = seed[len(seed)-maxSubjectSeedLen:]
	}
	return seed
}

// blobBody returns the text after the first blank line, mirroring the
// header/body split of a plain message. Empty when no separator exists.
func blobBody(text string) string {
	if _, body, ok := strings.Cut(text, "\n\n"); ok {
		return strings.TrimSpace(body)
	}
	return ""
}
