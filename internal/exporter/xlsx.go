package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"cordpulse/internal/dataprocessing"
)

// SheetName is the worksheet the XLSX export writes to.
const SheetName = "metadata"

// XLSXWriter writes a table to a single worksheet. publish_year and
// abstract_word_count are stored as numbers.
type XLSXWriter struct{}

// NewXLSXWriter creates an XLSX writer.
func NewXLSXWriter() *XLSXWriter {
	return &XLSXWriter{}
}

// Write streams the header and rows into a new workbook and writes it to w.
func (x *XLSXWriter) Write(w io.Writer, t *dataprocessing.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	columns := t.Columns()
	header := make([]interface{}, len(columns))
	for j, c := range columns {
		header[j] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i := 0; i < t.Len(); i++ {
		rec := t.Record(i)
		row := make([]interface{}, len(columns))
		for j, c := range columns {
			row[j] = xlsxValue(rec, c)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func xlsxValue(r dataprocessing.Record, column string) interface{} {
	switch column {
	case dataprocessing.ColumnPublishYear:
		if r.PublishYear.Valid {
			return r.PublishYear.Value
		}
		return nil
	case dataprocessing.ColumnAbstractWordCount:
		return r.AbstractWordCount
	}
	if v, ok := r.Value(column); ok {
		return v
	}
	return nil
}
