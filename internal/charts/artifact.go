package charts

import (
	"errors"
	"fmt"
	"time"

	"cordpulse/internal/dataprocessing"
)

// ErrUnknownChart is returned for a name no renderer is registered under.
var ErrUnknownChart = errors.New("unknown chart")

// Kind describes how an artifact is displayed.
type Kind string

const (
	KindLine  Kind = "line"
	KindBar   Kind = "bar"
	KindImage Kind = "image"
	KindText  Kind = "text"
)

// Chart names, in display order.
const (
	PublicationsOverTime = "publications_over_time"
	TopJournals          = "top_journals"
	TitleWordCloud       = "title_word_cloud"
	SourceDistribution   = "source_distribution"
)

// Fallback messages for absent optional columns.
const (
	NoJournalColumn = "No 'journal' column found in dataset."
	NoTitleColumn   = "No 'title' column found in dataset."
	NoSourceColumn  = "No 'source_x' column found in dataset."
	NoData          = "No data available for the selected filters."
)

// Point is one aggregated value behind a chart.
type Point struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Artifact is the output of a renderer: a PNG image or a text notice.
type Artifact struct {
	Name    string  `json:"name"`
	Section string  `json:"section"`
	Kind    Kind    `json:"kind"`
	Title   string  `json:"title,omitempty"`
	XLabel  string  `json:"x_label,omitempty"`
	YLabel  string  `json:"y_label,omitempty"`
	Message string  `json:"message,omitempty"`
	PNG     []byte  `json:"png,omitempty"`
	Points  []Point `json:"points,omitempty"`
}

// IsText reports whether the artifact is a text notice.
func (a Artifact) IsText() bool { return a.Kind == KindText }

func textArtifact(name, section, message string) Artifact {
	return Artifact{Name: name, Section: section, Kind: KindText, Message: message}
}

// RenderFunc turns a (filtered) table into an artifact. It fails only when
// image encoding fails.
type RenderFunc func(t *dataprocessing.Table) (Artifact, error)

// Renderer is a named chart.
type Renderer struct {
	Name    string
	Section string
	Render  RenderFunc
}

// Registry holds renderers in display order.
type Registry struct {
	renderers []Renderer
	byName    map[string]int
	observe   func(name string, elapsed time.Duration)
}

// NewRegistry creates a registry from renderers, keeping their order.
func NewRegistry(renderers ...Renderer) *Registry {
	r := &Registry{byName: make(map[string]int, len(renderers))}
	for _, rd := range renderers {
		r.byName[rd.Name] = len(r.renderers)
		r.renderers = append(r.renderers, rd)
	}
	return r
}

// DefaultRegistry returns the four dashboard charts in their fixed order.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Renderer{Name: PublicationsOverTime, Section: "Publications Over Time", Render: RenderPublicationsOverTime},
		Renderer{Name: TopJournals, Section: "Top Journals", Render: RenderTopJournals},
		Renderer{Name: TitleWordCloud, Section: "Word Cloud of Paper Titles", Render: RenderTitleWordCloud},
		Renderer{Name: SourceDistribution, Section: "Source Distribution", Render: RenderSourceDistribution},
	)
}

// Observe registers fn to be called with the duration of every render.
func (r *Registry) Observe(fn func(name string, elapsed time.Duration)) {
	r.observe = fn
}

// Names returns the renderer names in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.renderers))
	for i, rd := range r.renderers {
		names[i] = rd.Name
	}
	return names
}

// Lookup returns the renderer called name.
func (r *Registry) Lookup(name string) (Renderer, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Renderer{}, false
	}
	return r.renderers[i], true
}

// Render runs one renderer and fills in its name and section.
func (r *Registry) Render(name string, t *dataprocessing.Table) (Artifact, error) {
	rd, ok := r.Lookup(name)
	if !ok {
		return Artifact{}, fmt.Errorf("%w %q", ErrUnknownChart, name)
	}
	return r.run(rd, t)
}

// RenderAll runs every renderer in order. A renderer that fails yields a
// text artifact carrying the error; the others still run.
func (r *Registry) RenderAll(t *dataprocessing.Table) []Artifact {
	out := make([]Artifact, 0, len(r.renderers))
	for _, rd := range r.renderers {
		a, err := r.run(rd, t)
		if err != nil {
			a = textArtifact(rd.Name, rd.Section, fmt.Sprintf("Failed to render chart: %v", err))
		}
		out = append(out, a)
	}
	return out
}

func (r *Registry) run(rd Renderer, t *dataprocessing.Table) (Artifact, error) {
	start := time.Now()
	a, err := rd.Render(t)
	if r.observe != nil {
		r.observe(rd.Name, time.Since(start))
	}
	if err != nil {
		return Artifact{}, err
	}
	a.Name = rd.Name
	a.Section = rd.Section
	return a, nil
}
