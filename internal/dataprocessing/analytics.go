package dataprocessing

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Count is one aggregated category.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// YearCount is the number of rows published in Year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// YearCounts counts rows per valid publish_year, ascending by year.
func YearCounts(t *Table) []YearCount {
	counts := make(map[int]int)
	t.Records(func(_ int, r Record) bool {
		if r.PublishYear.Valid {
			counts[r.PublishYear.Value]++
		}
		return true
	})

	out := make([]YearCount, 0, len(counts))
	for y, n := range counts {
		out = append(out, YearCount{Year: y, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// YearBounds returns the smallest and largest valid publish_year.
func YearBounds(t *Table) (lo, hi int, ok bool) {
	t.Records(func(_ int, r Record) bool {
		if !r.PublishYear.Valid {
			return true
		}
		y := r.PublishYear.Value
		if !ok || y < lo {
			lo = y
		}
		if !ok || y > hi {
			hi = y
		}
		ok = true
		return true
	})
	return lo, hi, ok
}

// ValueCounts counts non-missing values of column, by count descending.
// Ties keep the order in which values first appear.
func ValueCounts(t *Table, column string) []Count {
	if !t.HasColumn(column) {
		return nil
	}
	index := make(map[string]int)
	var out []Count
	t.Records(func(_ int, r Record) bool {
		v, ok := r.Value(column)
		if !ok {
			return true
		}
		if i, seen := index[v]; seen {
			out[i].Count++
			return true
		}
		index[v] = len(out)
		out = append(out, Count{Label: v, Count: 1})
		return true
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// TopCategories returns at most n entries of ValueCounts.
func TopCategories(t *Table, column string, n int) []Count {
	counts := ValueCounts(t, column)
	if n >= 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// CategoryOptions returns AllCategories followed by the sorted distinct
// non-missing values of column.
func CategoryOptions(t *Table, column string) []string {
	seen := make(map[string]struct{})
	if t.HasColumn(column) {
		t.Records(func(_ int, r Record) bool {
			if v, ok := r.Value(column); ok {
				seen[v] = struct{}{}
			}
			return true
		})
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return append([]string{AllCategories}, values...)
}

// TitleText joins the lower-cased non-missing titles with single spaces.
func TitleText(t *Table) string {
	parts := make([]string, 0, t.Len())
	t.Records(func(_ int, r Record) bool {
		if v, ok := r.Value(ColumnTitle); ok {
			parts = append(parts, strings.ToLower(v))
		}
		return true
	})
	return strings.Join(parts, " ")
}

// MaxCloudWords caps WordFrequencies.
const MaxCloudWords = 200

var wordPattern = regexp.MustCompile(`\w[\w']+`)

// WordFrequencies tokenizes text for a word cloud: stop words and pure
// numbers are removed, a trailing 's is stripped and a plural folds into its
// singular when both occur. The result holds at most limit words, most
// frequent first, ties alphabetical.
func WordFrequencies(text string, limit int) []Count {
	counts := make(map[string]int)
	for _, w := range wordPattern.FindAllString(text, -1) {
		w = strings.ToLower(w)
		w = strings.TrimSuffix(w, "'s")
		if w == "" || isDigits(w) {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		counts[w]++
	}

	for w, n := range counts {
		if !strings.HasSuffix(w, "s") || strings.HasSuffix(w, "ss") {
			continue
		}
		singular := w[:len(w)-1]
		if _, ok := counts[singular]; ok {
			counts[singular] += n
			delete(counts, w)
		}
	}

	out := make([]Count, 0, len(counts))
	for w, n := range counts {
		out = append(out, Count{Label: w, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

var stopWords = func() map[string]struct{} {
	words := strings.Fields(`
		a about above after again against all also am an and any are aren't as at
		be because been before being below between both but by
		can can't cannot com could couldn't
		did didn't do does doesn't doing don't down during
		each else ever few for from further get had hadn't has hasn't have haven't
		having he he'd he'll he's hence her here here's hers herself him himself his
		how how's however http i i'd i'll i'm i've if in into is isn't it it's its
		itself just k let's like me more most mustn't my myself no nor not of off
		on once only or other otherwise ought our ours ourselves out over own r
		same shall shan't she she'd she'll she's should shouldn't since so some
		such than that that's the their theirs them themselves then there there's
		therefore these they they'd they'll they're they've this those through to
		too under until up very was wasn't we we'd we'll we're we've were weren't
		what what's when when's where where's which while who who's whom why why's
		with won't would wouldn't www you you'd you'll you're you've your yours
		yourself yourselves`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
