// Package chunk splits a tabulated email CSV into per-month files keyed by
// the parsed date column.
package chunk

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// DefaultPrefix names the monthly output files when no prefix is given.
const DefaultPrefix = "emails"

// dateLayouts are tried in order against the date_parsed column.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
}

// Result summarizes one chunking pass.
type Result struct {
	TotalRows   int
	SkippedRows int
	// Months maps YYYY_MM keys to the number of rows written for that month.
	Months map[string]int
}

// ByMonth reads the CSV at inputPath and writes one file per month into
// outDir, named <prefix>_YYYY_MM.csv. Rows without a parseable date are
// counted and skipped.
func ByMonth(inputPath, outDir, prefix string, logger *slog.Logger) (Result, error) {
	res := Result{Months: make(map[string]int)}
	if prefix == "" {
		prefix = DefaultPrefix
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return res, fmt.Errorf("open csv %s: %w", inputPath, err)
	}
	defer in.Close()

	reader := csv.NewReader(in)
	header, err := reader.Read()
	if err != nil {
		return res, fmt.Errorf("read csv header: %w", err)
	}
	dateCol := columnIndex(header, "date_parsed")
	if dateCol < 0 {
		return res, fmt.Errorf("csv has no date_parsed column")
	}

	monthly := make(map[string][][]string)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read csv row: %w", err)
		}
		res.TotalRows++

		key, ok := monthKey(record[dateCol])
		if !ok {
			res.SkippedRows++
			if logger != nil {
				logger.Debug("row skipped, unparseable date", "row", res.TotalRows, "date", record[dateCol])
			}
			continue
		}
		monthly[key] = append(monthly[key], record)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return res, fmt.Errorf("create output dir: %w", err)
	}

	for key, rows := range monthly {
		path := filepath.Join(outDir, fmt.Sprintf("%s_%s.csv", prefix, key))
		if err := writeMonth(path, header, rows); err != nil {
			return res, err
		}
		res.Months[key] = len(rows)
	}

	if logger != nil {
		logger.Info("csv chunked",
			"rows", res.TotalRows, "skipped", res.SkippedRows, "months", len(res.Months))
	}

	return res, nil
}

// SortedMonths returns the month keys in chronological order.
func (r Result) SortedMonths() []string {
	keys := make([]string, 0, len(r.Months))
	for key := range r.Months {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func monthKey(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return fmt.Sprintf("%04d_%02d", t.Year(), int(t.Month())), true
		}
	}
	return "", false
}

func writeMonth(path string, header []string, rows [][]string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()

	writer := csv.NewWriter(out)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return writer.Error()
}

// columnIndex finds name in the header row. Freshly tabulated files always
// carry the column, but foreign CSVs may order columns differently.
func columnIndex(header []string, name string) int {
	for i, col := range header {
		if col == name {
			return i
		}
	}
	return -1
}
