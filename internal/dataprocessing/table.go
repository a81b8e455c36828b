package dataprocessing

import (
	"encoding/json"
	"strconv"
	"time"
)

// Column names the pipeline knows about.
const (
	ColumnTitle             = "title"
	ColumnAbstract          = "abstract"
	ColumnPublishTime       = "publish_time"
	ColumnJournal           = "journal"
	ColumnSource            = "source_x"
	ColumnPublishYear       = "publish_year"
	ColumnAbstractWordCount = "abstract_word_count"
)

// RequiredColumns must survive cleaning for a table to be usable.
var RequiredColumns = []string{ColumnTitle, ColumnPublishTime, ColumnAbstract}

// Cell is a single raw value. Valid is false for a missing value.
type Cell struct {
	Value string
	Valid bool
}

// Missing returns the missing cell.
func Missing() Cell { return Cell{} }

// Text returns a present cell holding s.
func Text(s string) Cell { return Cell{Value: s, Valid: true} }

// MarshalJSON encodes a missing cell as null.
func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// RawTable is the loader output: a header and string cells in file order.
type RawTable struct {
	Columns []string
	Rows    [][]Cell
}

// ColumnIndex returns the position of name in the header or -1.
func (r *RawTable) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Timestamp is a nullable point in time.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// String formats midnight values as a date and everything else with a clock.
func (ts Timestamp) String() string {
	if !ts.Valid {
		return ""
	}
	h, m, s := ts.Time.Clock()
	if h == 0 && m == 0 && s == 0 && ts.Time.Nanosecond() == 0 {
		return ts.Time.Format(time.DateOnly)
	}
	return ts.Time.Format(time.DateTime)
}

// MarshalJSON encodes a null timestamp as null.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if !ts.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(ts.String())
}

// Year is a nullable calendar year.
type Year struct {
	Value int
	Valid bool
}

// YearOf returns a valid year.
func YearOf(y int) Year { return Year{Value: y, Valid: true} }

func (y Year) String() string {
	if !y.Valid {
		return ""
	}
	return strconv.Itoa(y.Value)
}

// MarshalJSON encodes a null year as null.
func (y Year) MarshalJSON() ([]byte, error) {
	if !y.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(y.Value)), nil
}

// Record is one cleaned paper. Columns outside the typed fields live in Extra.
type Record struct {
	Title             string
	Abstract          string
	PublishTime       Timestamp
	PublishYear       Year
	AbstractWordCount int
	Extra             map[string]Cell
}

// Table is the cleaned record table. It is read-only once built.
type Table struct {
	columns []string
	records []Record
}

// NewTable builds a table from an ordered column list and records.
func NewTable(columns []string, records []Record) *Table {
	return &Table{columns: columns, records: records}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether the table carries name.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}
	return false
}

// Record returns row i.
func (t *Table) Record(i int) Record {
	return t.records[i]
}

// Records calls fn for every row in order until fn returns false.
func (t *Table) Records(fn func(i int, r Record) bool) {
	for i, r := range t.records {
		if !fn(i, r) {
			return
		}
	}
}

// Head returns a new table with the first n rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.records) {
		n = len(t.records)
	}
	if n < 0 {
		n = 0
	}
	return t.subset(t.records[:n:n])
}

// Value returns the string form of column for row i. ok is false when the
// value is missing or the column is unknown.
func (t *Table) Value(i int, column string) (string, bool) {
	return t.records[i].Value(column)
}

// Column returns every cell of column in row order.
func (t *Table) Column(column string) []Cell {
	if !t.HasColumn(column) {
		return nil
	}
	cells := make([]Cell, len(t.records))
	for i, r := range t.records {
		v, ok := r.Value(column)
		cells[i] = Cell{Value: v, Valid: ok}
	}
	return cells
}

// Row returns the row as a column → value map, missing values as nil.
func (t *Table) Row(i int) map[string]any {
	r := t.records[i]
	row := make(map[string]any, len(t.columns))
	for _, c := range t.columns {
		switch c {
		case ColumnPublishTime:
			row[c] = r.PublishTime
		case ColumnPublishYear:
			row[c] = r.PublishYear
		case ColumnAbstractWordCount:
			row[c] = r.AbstractWordCount
		default:
			if v, ok := r.Value(c); ok {
				row[c] = v
			} else {
				row[c] = nil
			}
		}
	}
	return row
}

func (t *Table) subset(records []Record) *Table {
	return &Table{columns: t.Columns(), records: records}
}

// Value returns the string form of column. ok is false when missing.
func (r Record) Value(column string) (string, bool) {
	switch column {
	case ColumnTitle:
		return r.Title, true
	case ColumnAbstract:
		return r.Abstract, true
	case ColumnPublishTime:
		return r.PublishTime.String(), r.PublishTime.Valid
	case ColumnPublishYear:
		return r.PublishYear.String(), r.PublishYear.Valid
	case ColumnAbstractWordCount:
		return strconv.Itoa(r.AbstractWordCount), true
	}
	c, ok := r.Extra[column]
	if !ok || !c.Valid {
		return "", false
	}
	return c.Value, true
}
