package dataprocessing

import (
	"context"
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// NAValues are the cell texts read as missing.
var NAValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a",
	"nan", "null",
}

// Source opens a dataset by path.
type Source interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// LoadFile opens path through src and parses it as CSV.
func LoadFile(ctx context.Context, src Source, path string) (*RawTable, error) {
	rc, err := src.Open(ctx, path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Op: "open", Err: err}
	}
	defer rc.Close()

	raw, err := LoadCSV(ctx, rc)
	if err != nil {
		if dle, ok := err.(*DataLoadError); ok {
			dle.Path = path
		}
		return nil, err
	}
	return raw, nil
}

// LoadCSV parses a delimited stream with a header row. Every column is read
// as text; NAValues become missing cells.
func LoadCSV(ctx context.Context, r io.Reader) (*RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DataLoadError{Op: "parse", Err: err}
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(NAValues),
	)
	if df.Err != nil {
		return nil, &DataLoadError{Op: "parse", Err: df.Err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &DataLoadError{Op: "parse", Err: err}
	}

	return fromDataFrame(df)
}

func fromDataFrame(df dataframe.DataFrame) (*RawTable, error) {
	names := df.Names()
	nrow := df.Nrow()

	raw := &RawTable{
		Columns: names,
		Rows:    make([][]Cell, nrow),
	}
	for i := range raw.Rows {
		raw.Rows[i] = make([]Cell, len(names))
	}

	for j, name := range names {
		col := df.Col(name)
		if col.Err != nil {
			return nil, &DataLoadError{Op: "parse", Err: fmt.Errorf("column %q: %w", name, col.Err)}
		}
		for i := 0; i < nrow; i++ {
			el := col.Elem(i)
			if el.IsNA() {
				continue
			}
			raw.Rows[i][j] = Text(el.String())
		}
	}
	return raw, nil
}
