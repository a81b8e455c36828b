package exporter

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/compress"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"

	"cordpulse/internal/dataprocessing"
)

// ParquetWriter writes a table as a single gzip-compressed row group.
// publish_time is a millisecond timestamp, publish_year an int32 and
// abstract_word_count an int64; every other column is a nullable string.
type ParquetWriter struct {
	allocator memory.Allocator
}

// NewParquetWriter creates a Parquet writer using the Go allocator.
func NewParquetWriter() *ParquetWriter {
	return &ParquetWriter{allocator: memory.NewGoAllocator()}
}

// Schema returns the arrow schema used for t.
func (p *ParquetWriter) Schema(t *dataprocessing.Table) *arrow.Schema {
	columns := t.Columns()
	fields := make([]arrow.Field, len(columns))
	for i, c := range columns {
		fields[i] = arrow.Field{Name: c, Type: arrowType(c), Nullable: c != dataprocessing.ColumnAbstractWordCount}
	}
	return arrow.NewSchema(fields, nil)
}

// Write encodes t to w.
func (p *ParquetWriter) Write(w io.Writer, t *dataprocessing.Table) error {
	schema := p.Schema(t)

	builder := array.NewRecordBuilder(p.allocator, schema)
	defer builder.Release()

	columns := t.Columns()
	for i := 0; i < t.Len(); i++ {
		rec := t.Record(i)
		for j, c := range columns {
			appendValue(builder.Field(j), rec, c)
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	writer, err := pqarrow.NewFileWriter(
		schema,
		w,
		parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Gzip)),
		pqarrow.DefaultWriterProps(),
	)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("writing record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing writer: %w", err)
	}
	return nil
}

func arrowType(column string) arrow.DataType {
	switch column {
	case dataprocessing.ColumnPublishTime:
		return arrow.FixedWidthTypes.Timestamp_ms
	case dataprocessing.ColumnPublishYear:
		return arrow.PrimitiveTypes.Int32
	case dataprocessing.ColumnAbstractWordCount:
		return arrow.PrimitiveTypes.Int64
	}
	return arrow.BinaryTypes.String
}

func appendValue(b array.Builder, r dataprocessing.Record, column string) {
	switch fb := b.(type) {
	case *array.TimestampBuilder:
		if r.PublishTime.Valid {
			fb.Append(arrow.Timestamp(r.PublishTime.Time.UnixMilli()))
		} else {
			fb.AppendNull()
		}
	case *array.Int32Builder:
		if r.PublishYear.Valid {
			fb.Append(int32(r.PublishYear.Value))
		} else {
			fb.AppendNull()
		}
	case *array.Int64Builder:
		fb.Append(int64(r.AbstractWordCount))
	case *array.StringBuilder:
		if v, ok := r.Value(column); ok {
			fb.Append(v)
		} else {
			fb.AppendNull()
		}
	}
}
