package dataprocessing

// AllCategories disables the journal filter.
const AllCategories = "All"

// Query is the filter state applied to a cleaned table.
type Query struct {
	MinYear int
	MaxYear int
	Journal string
}

// Filter returns the rows whose publish_year lies in [MinYear, MaxYear] and,
// unless Journal is AllCategories, whose journal equals Journal. Rows with a
// null year never match. The input table is left untouched.
func Filter(t *Table, q Query) *Table {
	if t == nil {
		return NewTable(nil, nil)
	}

	byJournal := q.Journal != AllCategories && q.Journal != ""
	out := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		if !r.PublishYear.Valid || r.PublishYear.Value < q.MinYear || r.PublishYear.Value > q.MaxYear {
			continue
		}
		if byJournal {
			j, ok := r.Value(ColumnJournal)
			if !ok || j != q.Journal {
				continue
			}
		}
		out = append(out, r)
	}
	return t.subset(out)
}
