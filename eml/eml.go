// Package eml renders a NormalizedMessage into an RFC 5322 message.
package eml

import (
	"bytes"
	"fmt"
	"io"
	netmail "net/mail"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/dhcgn/olm-to-eml/model"
)

const (
	// PlaceholderSender is used when an entry carries no sender at all.
	// The From header is never omitted.
	PlaceholderSender = "unknown@localhost"
	// PlaceholderRecipient is used when the recipient list is empty.
	PlaceholderRecipient = "undisclosed-recipients@localhost"

	filePrefix = "message_"
	fileExt    = ".eml"
)

// Filename returns the output name for the given sequence number,
// zero-padded to five digits. The width grows naturally once the sequence
// exceeds 99999.
func Filename(seq int) string {
	return fmt.Sprintf("%s%05d%s", filePrefix, seq, fileExt)
}

// Build renders msg into a complete single-part message. The required
// headers are always present, even for a zero-value msg; now supplies the
// Date header when the source recorded none.
func Build(msg model.NormalizedMessage, now time.Time) ([]byte, error) {
	var h mail.Header
	h.SetAddressList("From", []*mail.Address{senderAddress(msg.Sender)})
	h.SetAddressList("To", recipientAddresses(msg.Recipients))
	h.SetSubject(msg.Subject)
	setDate(&h, msg.Date, now)
	if msg.MessageID != "" {
		h.SetMessageID(msg.MessageID)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	cte := msg.EncodingHint
	if cte == "" {
		cte = "quoted-printable"
	}
	h.Set("Content-Transfer-Encoding", cte)

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("render message: %w", err)
	}
	if _, err := io.WriteString(w, msg.Body); err != nil {
		w.Close()
		return nil, fmt.Errorf("render body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("render message: %w", err)
	}

	return buf.Bytes(), nil
}

func senderAddress(a model.Address) *mail.Address {
	switch {
	case a.Email != "":
		return &mail.Address{Name: a.Name, Address: a.Email}
	case a.Name != "":
		return &mail.Address{Name: a.Name, Address: PlaceholderSender}
	default:
		return &mail.Address{Address: PlaceholderSender}
	}
}

func recipientAddresses(list []model.Address) []*mail.Address {
	if len(list) == 0 {
		return []*mail.Address{{Address: PlaceholderRecipient}}
	}
	out := make([]*mail.Address, 0, len(list))
	for _, a := range list {
		switch {
		case a.Email != "":
			out = append(out, &mail.Address{Name: a.Name, Address: a.Email})
		case a.Name != "":
			out = append(out, &mail.Address{Name: a.Name, Address: PlaceholderRecipient})
		}
	}
	if len(out) == 0 {
		out = append(out, &mail.Address{Address: PlaceholderRecipient})
	}
	return out
}

// ParseDate accepts the date shapes Outlook records: RFC 3339 (the OPF
// SentTime/ReceivedTime format) or the RFC 5322 date grammar.
func ParseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := netmail.ParseDate(raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// setDate parses the recorded date when possible; free-form values are
// preserved verbatim, and a missing date falls back to the conversion time
// so the header is always present.
func setDate(h *mail.Header, raw string, now time.Time) {
	if raw == "" {
		h.SetDate(now)
		return
	}
	if t, ok := ParseDate(raw); ok {
		h.SetDate(t)
		return
	}
	h.Set("Date", raw)
}
