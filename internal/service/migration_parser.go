package service

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rabble-claw/studio-coop/internal/domain"
)

// ParseCSVRows turns raw CSV text into the header list and one Row per data
// line. Values stay raw; nothing is trimmed or normalized beyond the header
// cells themselves. A file with no header or no data lines yields an empty
// row set, which is a valid "nothing to import" result rather than an error.
func ParseCSVRows(content string) ([]string, []domain.Row, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, nil, nil
	}

	reader := csv.NewReader(strings.NewReader(trimmed))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]domain.Row, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if isRecordBlank(record) {
			continue
		}
		rows = append(rows, recordToRow(header, record))
	}
	return header, rows, nil
}

// recordToRow keys every header, back-filling empty strings when the physical
// line carried fewer fields than the header.
func recordToRow(header []string, record []string) domain.Row {
	row := make(domain.Row, len(header))
	for idx, key := range header {
		val := ""
		if idx < len(record) {
			val = record[idx]
		}
		row[key] = val
	}
	return row
}

func isRecordBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
