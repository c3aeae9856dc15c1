package classify

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jhillyerd/enmime/v2"
)

// maxBodyRunes limits how much body text each message contributes to
// keyword matching.
const maxBodyRunes = 1000

// record is one processed message, sanitized for the training data CSV.
type record struct {
	Category    Category
	FromDomain  string
	Subject     string
	Attachments []string
	Keywords    []string
}

type vendorInfo struct {
	count              int
	domains            map[string]struct{}
	subjectPatterns    map[string]int
	attachmentPatterns map[string]int
}

// Report summarizes a classification pass.
type Report struct {
	Processed  int
	Vendors    int
	ByCategory map[Category]int
}

// Directory classifies every .eml file under dir and writes
// invoice_classification_data.csv and vendor_patterns.csv into outDir.
func Directory(dir, outDir string, logger *slog.Logger) (Report, error) {
	report := Report{ByCategory: make(map[Category]int)}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("read eml dir %s: %w", dir, err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return report, fmt.Errorf("create output dir: %w", err)
	}

	var records []record
	vendors := make(map[string]*vendorInfo)

	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, "._") || !strings.HasSuffix(name, ".eml") {
			continue
		}

		rec, vendor, err := processFile(filepath.Join(dir, name))
		if err != nil {
			if logger != nil {
				logger.Warn("eml skipped", "file", name, "err", err)
			}
			continue
		}

		records = append(records, rec)
		report.ByCategory[rec.Category]++
		if vendor != "" {
			updateVendor(vendors, vendor, rec)
		}
	}

	report.Processed = len(records)
	report.Vendors = len(vendors)

	if err := writeClassificationCSV(filepath.Join(outDir, "invoice_classification_data.csv"), records); err != nil {
		return report, err
	}
	if err := writeVendorCSV(filepath.Join(outDir, "vendor_patterns.csv"), vendors); err != nil {
		return report, err
	}

	if logger != nil {
		logger.Info("classification complete",
			"processed", report.Processed, "vendors", report.Vendors)
	}

	return report, nil
}

func processFile(path string) (record, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return record{}, "", err
	}
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return record{}, "", err
	}

	subject := env.GetHeader("Subject")
	body := bodyText(env)
	if runes := []rune(body); len(runes) > maxBodyRunes {
		body = string(runes[:maxBodyRunes])
	}

	var attachments []string
	for _, part := range env.Attachments {
		if part.FileName != "" {
			attachments = append(attachments, part.FileName)
		}
	}

	cat := Classify(subject, body, attachments)

	fromName, fromEmail := senderParts(env)
	rec := record{
		Category:    cat,
		FromDomain:  domainOf(fromEmail),
		Subject:     sanitize(subject),
		Attachments: sanitizeAll(attachments),
		Keywords:    Keywords(cat, subject, body, 10),
	}

	return rec, vendorName(fromName, rec.FromDomain), nil
}

func bodyText(env *enmime.Envelope) string {
	if env.Text != "" {
		return env.Text
	}
	// HTML-only message: strip the markup.
	return tagRe.ReplaceAllString(env.HTML, "")
}

func senderParts(env *enmime.Envelope) (name, email string) {
	list, err := env.AddressList("From")
	if err != nil || len(list) == 0 {
		return "", ""
	}
	return strings.TrimSpace(list[0].Name), strings.TrimSpace(list[0].Address)
}

var (
	tagRe           = regexp.MustCompile(`<[^>]+>`)
	digitsRe        = regexp.MustCompile(`\d+`)
	amountRe        = regexp.MustCompile(`\$[\d,]+\.?\d*`)
	dateRe          = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`)
	suffixRe        = regexp.MustCompile(`(?i)\s*(LLC|Inc|Corp|Co|Ltd)\.?$`)
	mailboxPrefixRe = regexp.MustCompile(`^(mail|info|ar|accounting|noreply)\.`)
)

// sanitize masks amounts, dates, and remaining digits so patterns group by
// shape rather than by value.
func sanitize(text string) string {
	text = amountRe.ReplaceAllString(text, "$$XXX.XX")
	text = dateRe.ReplaceAllString(text, "XX/XX/XXXX")
	return digitsRe.ReplaceAllString(text, "XXX")
}

func sanitizeAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, digitsRe.ReplaceAllString(item, "XXX"))
	}
	return out
}

func domainOf(email string) string {
	if _, domain, ok := strings.Cut(email, "@"); ok && domain != "" {
		return "@" + domain
	}
	return "@unknown.com"
}

// vendorName derives a vendor identity from the sender display name, or
// from the domain when no display name exists.
func vendorName(displayName, domain string) string {
	if displayName != "" {
		return strings.TrimSpace(suffixRe.ReplaceAllString(displayName, ""))
	}
	domain = strings.TrimPrefix(domain, "@")
	if domain == "" || domain == "unknown.com" {
		return ""
	}
	company, _, ok := strings.Cut(mailboxPrefixRe.ReplaceAllString(domain, ""), ".")
	if !ok || company == "" {
		return ""
	}
	return strings.ToUpper(company[:1]) + company[1:]
}

func updateVendor(vendors map[string]*vendorInfo, name string, rec record) {
	v := vendors[name]
	if v == nil {
		v = &vendorInfo{
			domains:            make(map[string]struct{}),
			subjectPatterns:    make(map[string]int),
			attachmentPatterns: make(map[string]int),
		}
		vendors[name] = v
	}
	v.count++
	v.domains[rec.FromDomain] = struct{}{}
	if rec.Subject != "" {
		v.subjectPatterns[rec.Subject]++
	}
	for _, att := range rec.Attachments {
		if att != "" {
			v.attachmentPatterns[att]++
		}
	}
}

func writeClassificationCSV(path string, records []record) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()

	writer := csv.NewWriter(out)
	if err := writer.Write([]string{"Email_Type", "From", "Subject", "Attachments", "Body_Keywords"}); err != nil {
		return err
	}
	for _, rec := range records {
		attachments := "none"
		if len(rec.Attachments) > 0 {
			attachments = strings.Join(rec.Attachments, "; ")
		}
		row := []string{
			string(rec.Category),
			rec.FromDomain,
			rec.Subject,
			attachments,
			strings.Join(rec.Keywords, ", "),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeVendorCSV(path string, vendors map[string]*vendorInfo) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()

	names := make([]string, 0, len(vendors))
	for name := range vendors {
		names = append(names, name)
	}
	sort.Strings(names)

	writer := csv.NewWriter(out)
	if err := writer.Write([]string{"Vendor_Name", "Email_Domain", "Subject_Pattern", "Attachment_Pattern", "Email_Count"}); err != nil {
		return err
	}
	for _, name := range names {
		v := vendors[name]

		domains := make([]string, 0, len(v.domains))
		for d := range v.domains {
			domains = append(domains, d)
		}
		sort.Strings(domains)

		row := []string{
			name,
			strings.Join(domains, ", "),
			mostCommon(v.subjectPatterns),
			mostCommon(v.attachmentPatterns),
			fmt.Sprintf("%d", v.count),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func mostCommon(counts map[string]int) string {
	best := ""
	bestCount := 0
	for value, count := range counts {
		if count > bestCount || (count == bestCount && value < best) {
			best = value
			bestCount = count
		}
	}
	return best
}
