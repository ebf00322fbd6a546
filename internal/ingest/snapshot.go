package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/quantfolio/quantfolio/internal/schema"
)

// Source identifies which ingest path produced a snapshot.
type Source string

const (
	SourceJSON Source = "json"
	SourceCSV  Source = "csv"
)

// LoadSnapshot reads the portfolio scoring table: the JSON document is
// preferred, and the flat-file CSV is the fallback when the JSON input is
// absent or invalid. Only when neither path yields a table does the load
// fail — that is the one fatal ingest condition.
func LoadSnapshot(jsonPath, csvPath string) ([]schema.RawRow, Source, error) {
	rows, jsonErr := loadJSONFile(jsonPath)
	if jsonErr == nil {
		return rows, SourceJSON, nil
	}

	log.Debug().Str("path", jsonPath).Err(jsonErr).Msg("JSON snapshot unavailable, trying CSV fallback")

	rows, csvErr := loadCSVFile(csvPath)
	if csvErr == nil {
		return rows, SourceCSV, nil
	}

	return nil, "", fmt.Errorf("no readable snapshot: json (%s): %v; csv (%s): %v",
		jsonPath, jsonErr, csvPath, csvErr)
}

func loadJSONFile(path string) ([]schema.RawRow, error) {
	if path == "" {
		return nil, fmt.Errorf("no JSON path configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJSON(f)
}

func loadCSVFile(path string) ([]schema.RawRow, error) {
	if path == "" {
		return nil, fmt.Errorf("no CSV path configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadJSON decodes a JSON array of row objects. Numbers are kept as
// json.Number so the schema layer controls numeric interpretation.
func ReadJSON(r io.Reader) ([]schema.RawRow, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var rows []schema.RawRow
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode JSON table: %w", err)
	}
	return rows, nil
}

// ReadCSV decodes a headered CSV table into raw rows keyed by header name.
// Cells stay strings; numeric coercion happens at the schema boundary where
// per-row failures can be isolated.
func ReadCSV(r io.Reader) ([]schema.RawRow, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var rows []schema.RawRow
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		row := make(schema.RawRow, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
