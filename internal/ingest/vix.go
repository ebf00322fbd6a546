package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quantfolio/quantfolio/internal/schema"
)

// vixDateFormats are tried in order when parsing the history's date column.
var vixDateFormats = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// LoadVIXHistory reads the optional historical volatility table. A missing
// file surfaces as an error wrapping os.ErrNotExist so callers can treat it
// as the recoverable "no history yet" condition rather than a failure.
func LoadVIXHistory(path string) ([]schema.VixRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open VIX history %s: %w", path, err)
	}
	defer f.Close()
	return ReadVIXHistory(f)
}

// ReadVIXHistory decodes a CSV with date and vix columns (header matched
// case-insensitively) into chronological records, preserving file order.
func ReadVIXHistory(r io.Reader) ([]schema.VixRecord, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read VIX history header: %w", err)
	}

	dateCol, vixCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "date":
			dateCol = i
		case "vix":
			vixCol = i
		}
	}
	if dateCol < 0 || vixCol < 0 {
		return nil, fmt.Errorf("VIX history missing date/vix columns, got %v", header)
	}

	var records []schema.VixRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read VIX history row: %w", err)
		}

		date, err := parseVIXDate(row[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		vix, err := strconv.ParseFloat(strings.TrimSpace(row[vixCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad vix value %q", line, row[vixCol])
		}

		records = append(records, schema.VixRecord{Date: date, VIX: vix})
	}

	return records, nil
}

func parseVIXDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range vixDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
