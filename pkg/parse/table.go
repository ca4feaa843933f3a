package parse

import (
	"encoding/csv"
	"strings"
)

// Row is one data line of a tabular export, keyed by header text.
type Row map[string]string

// Table parses delimited spreadsheet text into rows keyed by the header line.
// Quoted fields keep embedded commas and newlines. Rows whose field count
// does not match the header are dropped silently — partial lines are expected
// in real spreadsheet exports and must not fail the whole file.
func Table(text string) []Row {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1 // allow variable columns, validated per row below
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil || len(records) == 0 {
		return nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != len(header) {
			continue
		}
		if blankRecord(record) {
			continue
		}
		row := make(Row, len(header))
		for i, h := range header {
			row[h] = strings.TrimSpace(record[i])
		}
		rows = append(rows, row)
	}
	return rows
}

// Field looks a value up by any of the given header names, case-insensitively.
// The second return reports whether any name matched a header.
func (r Row) Field(names ...string) (string, bool) {
	for _, name := range names {
		for k, v := range r {
			if strings.EqualFold(strings.TrimSpace(k), name) {
				return v, true
			}
		}
	}
	return "", false
}

func blankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
