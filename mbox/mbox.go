// Package mbox mirrors converted messages into a single mbox file, for
// tools that prefer one archive over a directory of EML files.
package mbox

import (
	"fmt"
	"os"
	"time"

	mboxlib "github.com/emersion/go-mbox"
)

// Mirror appends converted messages to one mbox file.
type Mirror struct {
	file   *os.File
	writer *mboxlib.Writer
}

// NewMirror creates (or truncates) the mbox file at path.
func NewMirror(path string) (*Mirror, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create mbox %s: %w", path, err)
	}
	return &Mirror{file: file, writer: mboxlib.NewWriter(file)}, nil
}

// Append writes one rendered message. The from address and date feed the
// mbox separator line.
func (m *Mirror) Append(from string, date time.Time, raw []byte) error {
	w, err := m.writer.CreateMessage(from, date)
	if err != nil {
		return fmt.Errorf("mbox separator: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("mbox write: %w", err)
	}
	return nil
}

func (m *Mirror) Close() error {
	if err := m.writer.Close(); err != nil {
		m.file.Close()
		return fmt.Errorf("close mbox: %w", err)
	}
	return m.file.Close()
}
