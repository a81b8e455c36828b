package exporter

import (
	"io"

	"cordpulse/internal/dataprocessing"
)

// TableWriter encodes a table to a stream.
type TableWriter interface {
	Write(w io.Writer, t *dataprocessing.Table) error
}

// Exporter dispatches a table to the writer registered for a format.
type Exporter struct {
	writers map[Format]TableWriter
}

// New returns an exporter for CSV, XLSX and Parquet.
func New() *Exporter {
	return &Exporter{writers: map[Format]TableWriter{
		FormatCSV:     NewCSVWriter(),
		FormatXLSX:    NewXLSXWriter(),
		FormatParquet: NewParquetWriter(),
	}}
}

// Export writes t to w in format f.
func (e *Exporter) Export(w io.Writer, f Format, t *dataprocessing.Table) error {
	tw, ok := e.writers[f]
	if !ok {
		return ErrUnsupportedFormat
	}
	return tw.Write(w, t)
}
