package charts

import (
	"bytes"
	"math"
	"strconv"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"cordpulse/internal/dataprocessing"
)

// TitlePublications is the time-series chart title.
const TitlePublications = "Number of COVID-19 Publications by Year"

const (
	lineWidth  = 1000
	lineHeight = 500
)

const (
	yearAxis         = "Year"
	publicationsAxis = "Number of Publications"
)

var lineColor = drawing.ColorFromHex("1f77b4")

// RenderPublicationsOverTime draws publications per year as a line with
// circle markers.
func RenderPublicationsOverTime(t *dataprocessing.Table) (Artifact, error) {
	counts := dataprocessing.YearCounts(t)
	if len(counts) == 0 {
		return textArtifact(PublicationsOverTime, "", NoData), nil
	}

	points := make([]Point, len(counts))
	xs := make([]float64, len(counts))
	ys := make([]float64, len(counts))
	ticks := make([]chart.Tick, len(counts))
	maxCount := 0
	for i, yc := range counts {
		label := strconv.Itoa(yc.Year)
		points[i] = Point{Label: label, Count: yc.Count}
		xs[i], ys[i] = float64(yc.Year), float64(yc.Count)
		ticks[i] = chart.Tick{Value: xs[i], Label: label}
		if yc.Count > maxCount {
			maxCount = yc.Count
		}
	}
	// the x range follows the ticks, so a lone year gets blank neighbours
	if len(ticks) == 1 {
		ticks = []chart.Tick{{Value: xs[0] - 1}, ticks[0], {Value: xs[0] + 1}}
	}

	yMax := niceCeil(float64(maxCount) * 1.1)
	ch := chart.Chart{
		Title:      TitlePublications,
		Width:      lineWidth,
		Height:     lineHeight,
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 30, Bottom: 20}},
		XAxis: chart.XAxis{
			Name:           yearAxis,
			Ticks:          ticks,
			GridMajorStyle: chart.Style{StrokeColor: drawing.ColorFromHex("dddddd"), StrokeWidth: 1},
		},
		YAxis: chart.YAxis{
			Name:           publicationsAxis,
			Range:          &chart.ContinuousRange{Min: 0, Max: yMax},
			Ticks:          countTicks(yMax, 5),
			GridMajorStyle: chart.Style{StrokeColor: drawing.ColorFromHex("dddddd"), StrokeWidth: 1},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Publications",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
					DotColor:    lineColor,
					DotWidth:    4,
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Kind:   KindLine,
		Title:  TitlePublications,
		XLabel: yearAxis,
		YLabel: publicationsAxis,
		PNG:    buf.Bytes(),
		Points: points,
	}, nil
}

// niceCeil rounds v up to 1, 2 or 5 times a power of ten.
func niceCeil(v float64) float64 {
	if v <= 1 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if m*exp >= v {
			return m * exp
		}
	}
	return 10 * exp
}

// countTicks returns integer ticks from 0 to max in about n steps.
func countTicks(max float64, n int) []chart.Tick {
	step := math.Max(1, math.Ceil(max/float64(n)))
	var ticks []chart.Tick
	for v := 0.0; v <= max+1e-9; v += step {
		ticks = append(ticks, chart.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', 0, 64)})
	}
	return ticks
}
