package tabulate

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dhcgn/olm-to-eml/eml"
	"github.com/dhcgn/olm-to-eml/filter"
	"github.com/dhcgn/olm-to-eml/model"
)

var fixedNow = time.Date(2024, 5, 21, 13, 12, 19, 0, time.UTC)

func writeEML(t *testing.T, dir, name string, msg model.NormalizedMessage) {
	t.Helper()
	raw, err := eml.Build(msg, fixedNow)
	if err != nil {
		t.Fatalf("build %s: %v", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func sampleMessage(subject, body string) model.NormalizedMessage {
	return model.NormalizedMessage{
		Sender:     model.Address{Name: "Alice Example", Email: "alice@example.com"},
		Recipients: []model.Address{{Name: "Bob", Email: "bob@example.com"}},
		Subject:    subject,
		Date:       "2024-05-21T13:12:19Z",
		Body:       body,
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func TestFile(t *testing.T) {
	msg := sampleMessage("Quarterly report", "line one\nline two")
	msg.MessageID = "abc123@example.com"
	raw, err := eml.Build(msg, fixedNow)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	row, err := File("message_00001.eml", raw)
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}

	if row.Filename != "message_00001.eml" {
		t.Errorf("Filename = %q", row.Filename)
	}
	if row.Subject != msg.Subject {
		t.Errorf("Subject = %q, want %q", row.Subject, msg.Subject)
	}
	if row.FromName != "Alice Example" || row.FromEmail != "alice@example.com" {
		t.Errorf("From = %q <%s>", row.FromName, row.FromEmail)
	}
	if row.ToName != "Bob" || row.ToEmail != "bob@example.com" {
		t.Errorf("To = %q <%s>", row.ToName, row.ToEmail)
	}
	if row.DateParsed != "2024-05-21T13:12:19Z" {
		t.Errorf("DateParsed = %q, want 2024-05-21T13:12:19Z", row.DateParsed)
	}
	// Newlines collapse so the cell stays one line.
	if row.BodyText != "line one line two" {
		t.Errorf("BodyText = %q", row.BodyText)
	}
	if row.MessageID == "" {
		t.Error("MessageID missing")
	}
}

func TestFile_UnparseableAddress(t *testing.T) {
	raw := []byte("From: not an address at all\r\nSubject: x\r\n\r\nbody\r\n")

	row, err := File("broken.eml", raw)
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}
	if row.FromName != "not an address at all" || row.FromEmail != "" {
		t.Errorf("From fallback = %q <%s>", row.FromName, row.FromEmail)
	}
}

func TestDirectory(t *testing.T) {
	dir := t.TempDir()
	writeEML(t, dir, "message_00001.eml", sampleMessage("First", "hello"))
	writeEML(t, dir, "message_00002.eml", sampleMessage("Second", "world"))
	// Neither shadow files nor foreign extensions become rows.
	if err := os.WriteFile(filepath.Join(dir, "._message_00001.eml"), []byte("resource fork"), 0o644); err != nil {
		t.Fatalf("write shadow: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not mail"), 0o644); err != nil {
		t.Fatalf("write txt: %v", err)
	}

	csvPath := filepath.Join(t.TempDir(), "out.csv")
	n, err := Directory(dir, csvPath, Options{})
	if err != nil {
		t.Fatalf("Directory() error = %v", err)
	}
	if n != 2 {
		t.Errorf("rows written = %d, want 2", n)
	}

	rows := readCSV(t, csvPath)
	if len(rows) != 3 {
		t.Fatalf("csv rows = %d, want header + 2", len(rows))
	}
	if len(rows[0]) != len(Columns) {
		t.Errorf("header has %d columns, want %d", len(rows[0]), len(Columns))
	}
	for i, col := range Columns {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}
	if rows[1][1] != "First" || rows[2][1] != "Second" {
		t.Errorf("subjects = %q, %q", rows[1][1], rows[2][1])
	}
}

func TestDirectory_Filter(t *testing.T) {
	dir := t.TempDir()
	writeEML(t, dir, "message_00001.eml", sampleMessage("Invoice #42", "pay up"))
	writeEML(t, dir, "message_00002.eml", sampleMessage("Lunch", "sandwiches"))

	f, err := filter.New(filter.Options{IncludeHeader: []string{`(?i)subject: invoice`}})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}

	csvPath := filepath.Join(t.TempDir(), "out.csv")
	n, err := Directory(dir, csvPath, Options{Filter: f})
	if err != nil {
		t.Fatalf("Directory() error = %v", err)
	}
	if n != 1 {
		t.Errorf("rows written = %d, want 1", n)
	}

	rows := readCSV(t, csvPath)
	if len(rows) != 2 || rows[1][1] != "Invoice #42" {
		t.Errorf("filtered csv = %v", rows)
	}
}

func TestCleanText_Truncation(t *testing.T) {
	long := make([]rune, maxCellRunes+100)
	for i := range long {
		long[i] = 'a'
	}
	got := cleanText(string(long))
	if len([]rune(got)) != maxCellRunes+3 {
		t.Errorf("truncated length = %d, want %d", len([]rune(got)), maxCellRunes+3)
	}
}
