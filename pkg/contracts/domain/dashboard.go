// Package domain holds the data shapes exchanged between the dashboard
// service, its HTTP and WebSocket transports and the CLI.
package domain

// AllJournals selects every journal.
const AllJournals = "All"

// FilterState is the full set of control values carried by a filter change.
// Nil bounds and an empty journal mean "no restriction".
type FilterState struct {
	MinYear *int   `json:"min_year,omitempty"`
	MaxYear *int   `json:"max_year,omitempty"`
	Journal string `json:"journal,omitempty"`
}

// Years returns a FilterState with both bounds set.
func Years(minYear, maxYear int) FilterState {
	return FilterState{MinYear: &minYear, MaxYear: &maxYear}
}

// AppliedFilter is a FilterState after defaults have been filled in.
type AppliedFilter struct {
	MinYear int    `json:"min_year" validate:"gte=0"`
	MaxYear int    `json:"max_year" validate:"gtefield=MinYear"`
	Journal string `json:"journal" validate:"required"`
}

// Controls describes the sidebar: the selectable year range, the journal
// options and their defaults.
type Controls struct {
	YearMin        int           `json:"year_min"`
	YearMax        int           `json:"year_max"`
	JournalOptions []string      `json:"journal_options"`
	Defaults       AppliedFilter `json:"defaults"`
}

// Status is the load banner shown above the dashboard.
type Status struct {
	Loaded  bool   `json:"loaded"`
	Message string `json:"message"`
	Records int    `json:"records"`
	Columns int    `json:"columns"`
}

// Sample is a preview of the first filtered rows. Missing cells are empty
// strings.
type Sample struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ChartView is one rendered section. Image is a PNG data URI; text
// fallbacks carry Message instead.
type ChartView struct {
	Name    string `json:"name"`
	Section string `json:"section"`
	Kind    string `json:"kind"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
	Image   string `json:"image,omitempty"`
}

// IsText reports whether the section is a text fallback.
func (c ChartView) IsText() bool { return c.Kind == "text" }

// DashboardView is everything the page needs for one filter state.
type DashboardView struct {
	Status       Status        `json:"status"`
	Controls     Controls      `json:"controls"`
	Filter       AppliedFilter `json:"filter"`
	Sample       Sample        `json:"sample"`
	TotalRows    int           `json:"total_rows"`
	FilteredRows int           `json:"filtered_rows"`
	Charts       []ChartView   `json:"charts"`
}
