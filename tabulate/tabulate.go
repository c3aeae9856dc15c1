// Package tabulate parses converted EML files into tabular CSV records for
// downstream analysis.
package tabulate

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime/v2"

	"github.com/dhcgn/olm-to-eml/filter"
)

// Columns is the CSV header row, one column per extracted field.
var Columns = []string{
	"filename",
	"subject",
	"from_name",
	"from_email",
	"to_name",
	"to_email",
	"date",
	"date_parsed",
	"body_text",
	"body_html",
	"attachments",
	"message_id",
	"in_reply_to",
	"references",
}

// Row is one tabulated message.
type Row struct {
	Filename    string
	Subject     string
	FromName    string
	FromEmail   string
	ToName      string
	ToEmail     string
	Date        string
	DateParsed  string
	BodyText    string
	BodyHTML    string
	Attachments string
	MessageID   string
	InReplyTo   string
	References  string
}

func (r Row) values() []string {
	return []string{
		r.Filename, r.Subject, r.FromName, r.FromEmail, r.ToName, r.ToEmail,
		r.Date, r.DateParsed, r.BodyText, r.BodyHTML, r.Attachments,
		r.MessageID, r.InReplyTo, r.References,
	}
}

// Options configures a tabulation pass.
type Options struct {
	// Filter, when set, selects which messages become rows.
	Filter *filter.Filter
	Logger *slog.Logger
}

// Directory tabulates every .eml file under dir into one CSV file.
// Per-file parse errors are logged and skipped; the row count written is
// returned.
func Directory(dir, csvPath string, opts Options) (int, error) {
	names, err := emlNames(dir)
	if err != nil {
		return 0, err
	}

	out, err := os.Create(csvPath)
	if err != nil {
		return 0, fmt.Errorf("create csv %s: %w", csvPath, err)
	}
	defer out.Close()

	writer := csv.NewWriter(out)
	if err := writer.Write(Columns); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}

	written := 0
	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			logSkip(opts.Logger, name, err)
			continue
		}

		if opts.Filter != nil {
			header, body := splitRaw(raw)
			if !opts.Filter.Allows(string(header), string(body)) {
				continue
			}
		}

		row, err := File(name, raw)
		if err != nil {
			logSkip(opts.Logger, name, err)
			continue
		}
		if err := writer.Write(row.values()); err != nil {
			return written, fmt.Errorf("write csv row: %w", err)
		}
		written++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return written, fmt.Errorf("flush csv: %w", err)
	}
	return written, nil
}

// File parses one message into a Row.
func File(name string, raw []byte) (Row, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return Row{}, fmt.Errorf("parse %s: %w", name, err)
	}

	row := Row{
		Filename:   name,
		Subject:    cleanText(env.GetHeader("Subject")),
		Date:       env.GetHeader("Date"),
		MessageID:  env.GetHeader("Message-Id"),
		InReplyTo:  env.GetHeader("In-Reply-To"),
		References: env.GetHeader("References"),
		BodyText:   cleanText(env.Text),
		BodyHTML:   cleanText(env.HTML),
	}

	row.FromName, row.FromEmail = firstAddress(env, "From")
	row.ToName, row.ToEmail = firstAddress(env, "To")
	if t, err := netmail.ParseDate(row.Date); err == nil {
		row.DateParsed = t.Format("2006-01-02T15:04:05Z07:00")
	}

	var attachments []string
	for _, part := range env.Attachments {
		if part.FileName != "" {
			attachments = append(attachments, part.FileName)
		}
	}
	row.Attachments = strings.Join(attachments, "; ")

	return row, nil
}

func firstAddress(env *enmime.Envelope, key string) (name, email string) {
	list, err := env.AddressList(key)
	if err != nil || len(list) == 0 {
		// Fallback for unparseable address fields: recover a bare address
		// if one is present, otherwise keep the raw text as the name.
		raw := strings.TrimSpace(env.GetHeader(key))
		if m := bareAddressRe.FindString(raw); m != "" {
			return "", m
		}
		return raw, ""
	}
	return strings.TrimSpace(list[0].Name), strings.TrimSpace(list[0].Address)
}

var (
	bareAddressRe = regexp.MustCompile(`[\w.+-]+@[\w.-]+`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// maxCellRunes keeps individual CSV cells readable.
const maxCellRunes = 5000

func cleanText(text string) string {
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if runes := []rune(text); len(runes) > maxCellRunes {
		text = string(runes[:maxCellRunes]) + "..."
	}
	return text
}

// emlNames lists the .eml files in dir, skipping AppleDouble shadow files.
func emlNames(dir string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read eml dir %s: %w", dir, err)
	}
	var names []string
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, "._") || !strings.HasSuffix(name, ".eml") {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func splitRaw(raw []byte) (header, body []byte) {
	if idx := bytes.Index(raw, []byte("\r\n\r\n")); idx >= 0 {
		return raw[:idx], raw[idx+4:]
	}
	if idx := bytes.Index(raw, []byte("\n\n")); idx >= 0 {
		return raw[:idx], raw[idx+2:]
	}
	return raw, nil
}

func logSkip(logger *slog.Logger, name string, err error) {
	if logger != nil {
		logger.Warn("eml skipped", "file", name, "err", err)
	}
}
