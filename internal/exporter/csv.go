package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"cordpulse/internal/dataprocessing"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes a table as comma separated values. Missing values are
// written as empty fields.
type CSVWriter struct {
	// BOMPrefix adds a UTF-8 byte order mark so Excel detects the encoding.
	BOMPrefix bool
}

// NewCSVWriter creates a CSV writer with the BOM enabled.
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{BOMPrefix: true}
}

// Write writes the header row followed by every record.
func (c *CSVWriter) Write(w io.Writer, t *dataprocessing.Table) error {
	if c.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	columns := t.Columns()
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	record := make([]string, len(columns))
	for i := 0; i < t.Len(); i++ {
		for j, col := range columns {
			v, _ := t.Value(i, col)
			record[j] = v
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
