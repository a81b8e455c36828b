package dataprocessing

import (
	"strings"
	"time"
)

// MissingThreshold is the missing-value fraction above which a column is dropped.
const MissingThreshold = 0.5

// Backfill sentinels for key text columns.
const (
	NoTitle    = "No Title"
	NoAbstract = "No Abstract"
)

// timestampLayouts are tried in order when coercing publish_time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	time.DateTime,
	time.DateOnly,
	"2006/01/02",
	"2006-01",
	"2006",
	"2006 Jan 2",
	"2006 Jan",
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
}

// ParseTimestamp coerces s to a timestamp. Unparseable text yields the null
// timestamp, never an error.
func ParseTimestamp(s string) Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t, Valid: true}
		}
	}
	return Timestamp{}
}

// WordCount returns the number of whitespace-delimited tokens in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// MissingFractions returns the missing-value fraction of every column.
func MissingFractions(raw *RawTable) map[string]float64 {
	out := make(map[string]float64, len(raw.Columns))
	n := len(raw.Rows)
	for j, c := range raw.Columns {
		if n == 0 {
			out[c] = 0
			continue
		}
		missing := 0
		for _, row := range raw.Rows {
			if !row[j].Valid {
				missing++
			}
		}
		out[c] = float64(missing) / float64(n)
	}
	return out
}

// Clean prunes sparse columns, backfills the key columns, coerces
// publish_time and derives publish_year and abstract_word_count. The input
// is not modified.
func Clean(raw *RawTable) (*Table, error) {
	kept := pruneColumns(raw)

	idx := make(map[string]int, len(kept))
	for _, j := range kept {
		idx[raw.Columns[j]] = j
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, missingColumnsError(missing)
	}

	// derived columns replace same-named input columns in place
	columns := make([]string, 0, len(kept)+2)
	seen := make(map[string]bool, 2)
	for _, j := range kept {
		c := raw.Columns[j]
		if c == ColumnPublishYear || c == ColumnAbstractWordCount {
			seen[c] = true
		}
		columns = append(columns, c)
	}
	for _, c := range []string{ColumnPublishYear, ColumnAbstractWordCount} {
		if !seen[c] {
			columns = append(columns, c)
		}
	}

	titleIdx, abstractIdx, timeIdx := idx[ColumnTitle], idx[ColumnAbstract], idx[ColumnPublishTime]

	records := make([]Record, len(raw.Rows))
	var lastTime Cell
	for i, row := range raw.Rows {
		rec := Record{Extra: make(map[string]Cell, len(kept)-len(RequiredColumns))}

		rec.Title = row[titleIdx].Value
		if !row[titleIdx].Valid {
			rec.Title = NoTitle
		}
		rec.Abstract = row[abstractIdx].Value
		if !row[abstractIdx].Valid {
			rec.Abstract = NoAbstract
		}

		// forward fill runs on the raw text, before coercion
		pt := row[timeIdx]
		if pt.Valid {
			lastTime = pt
		} else {
			pt = lastTime
		}
		if pt.Valid {
			rec.PublishTime = ParseTimestamp(pt.Value)
		}
		if rec.PublishTime.Valid {
			rec.PublishYear = YearOf(rec.PublishTime.Time.Year())
		}
		rec.AbstractWordCount = WordCount(rec.Abstract)

		for _, j := range kept {
			switch raw.Columns[j] {
			case ColumnTitle, ColumnAbstract, ColumnPublishTime, ColumnPublishYear, ColumnAbstractWordCount:
				continue
			}
			rec.Extra[raw.Columns[j]] = row[j]
		}
		records[i] = rec
	}

	return NewTable(columns, records), nil
}

// pruneColumns returns the indexes of columns at or below MissingThreshold.
func pruneColumns(raw *RawTable) []int {
	fractions := MissingFractions(raw)
	kept := make([]int, 0, len(raw.Columns))
	for j, c := range raw.Columns {
		if fractions[c] > MissingThreshold {
			continue
		}
		kept = append(kept, j)
	}
	return kept
}
