package olm

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeArchive(t *testing.T, files map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.olm")
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}

	zw := zip.NewWriter(out)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("close archive file: %v", err)
	}

	return path
}

func TestExtractArchive(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"Local/Messages/message_00001.xml": "<?xml version=\"1.0\"?><email/>",
		"Accounts/work/note.olk15Message":  "blob",
	})

	scratch, err := ExtractArchive(path, nil)
	if err != nil {
		t.Fatalf("ExtractArchive() error = %v", err)
	}
	defer os.RemoveAll(scratch)

	raw, err := os.ReadFile(filepath.Join(scratch, "Local", "Messages", "message_00001.xml"))
	if err != nil {
		t.Fatalf("read extracted entry: %v", err)
	}
	if len(raw) == 0 {
		t.Error("extracted entry is empty")
	}
}

func TestExtractArchive_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.olm")
	if err := os.WriteFile(path, []byte("this is not a zip container"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := ExtractArchive(path, nil)
	if !errors.Is(err, ErrInvalidArchive) {
		t.Errorf("ExtractArchive() error = %v, want ErrInvalidArchive", err)
	}
}

func TestExtractArchive_RejectsEscapingPaths(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"../escape.txt": "nope",
	})

	_, err := ExtractArchive(path, nil)
	if !errors.Is(err, ErrInvalidArchive) {
		t.Errorf("ExtractArchive() error = %v, want ErrInvalidArchive", err)
	}
}

func TestLocateEntries(t *testing.T) {
	scratch := t.TempDir()
	files := []string{
		"Local/Messages/message_00001.xml",
		"Local/Messages/._message_00001.xml", // AppleDouble shadow, excluded
		"Local/old.olk14Message",
		"Accounts/work/mail.olk15Message",
		"Accounts/work/attachment.pdf",
	}
	for _, name := range files {
		full := filepath.Join(scratch, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	entries, err := LocateEntries(scratch)
	if err != nil {
		t.Fatalf("LocateEntries() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("LocateEntries() returned %d entries, want 3: %v", len(entries), entries)
	}
	for _, entry := range entries {
		name := filepath.Base(entry)
		if !IsMessageEntry(name) {
			t.Errorf("located entry %s does not match the entry patterns", name)
		}
	}
}

func TestLocateEntries_UnknownLayout(t *testing.T) {
	scratch := t.TempDir()
	if err := os.MkdirAll(filepath.Join(scratch, "Other"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	_, err := LocateEntries(scratch)
	if !errors.Is(err, ErrNoMessagesFound) {
		t.Errorf("LocateEntries() error = %v, want ErrNoMessagesFound", err)
	}
}

func TestIsMessageEntry(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"mail.olk15Message", true},
		{"mail.olk14Message", true},
		{"message_00042.xml", true},
		{"._mail.olk15Message", false},
		{"._message_00042.xml", false},
		{"notes.txt", false},
		{"message_00042.json", false},
		{"random.xml", false},
	}
	for _, tc := range cases {
		if got := IsMessageEntry(tc.name); got != tc.want {
			t.Errorf("IsMessageEntry(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
