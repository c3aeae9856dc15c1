package mbox

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mboxlib "github.com/emersion/go-mbox"
)

func TestMirror_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mbox")

	m, err := NewMirror(path)
	if err != nil {
		t.Fatalf("NewMirror() error = %v", err)
	}

	date := time.Date(2024, 5, 21, 13, 12, 19, 0, time.UTC)
	messages := []string{
		"Subject: First\r\n\r\nbody one\r\n",
		"Subject: Second\r\n\r\nbody two\r\n",
	}
	for _, raw := range messages {
		if err := m.Append("sender@example.com", date, []byte(raw)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open mbox: %v", err)
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)
	var subjects []string
	for {
		msg, err := reader.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextMessage() error = %v", err)
		}
		raw, err := io.ReadAll(msg)
		if err != nil {
			t.Fatalf("read message: %v", err)
		}
		for _, line := range strings.Split(string(raw), "\n") {
			if strings.HasPrefix(line, "Subject: ") {
				subjects = append(subjects, strings.TrimSpace(strings.TrimPrefix(line, "Subject: ")))
			}
		}
	}

	if len(subjects) != 2 || subjects[0] != "First" || subjects[1] != "Second" {
		t.Errorf("subjects = %v, want [First Second]", subjects)
	}
}

func TestNewMirror_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mbox")
	if err := os.WriteFile(path, []byte("stale content"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	m, err := NewMirror(path)
	if err != nil {
		t.Fatalf("NewMirror() error = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read mbox: %v", err)
	}
	if strings.Contains(string(raw), "stale") {
		t.Error("NewMirror must truncate an existing file")
	}
}
