// Package exporter writes a filtered record table to CSV, XLSX or Parquet.
//
// CSVWriter prefixes a UTF-8 BOM for Excel compatibility, XLSXWriter streams
// rows into a single worksheet and ParquetWriter encodes one gzip-compressed
// record batch with typed publish_time, publish_year and abstract_word_count
// columns.
//
// Example usage:
//
//	exp := exporter.New()
//	format, err := exporter.ParseFormat("parquet")
//	if err != nil {
//	    return err
//	}
//	err = exp.Export(w, format, table)
package exporter
