package charts

import (
	"image"
	"image/color"
	"strconv"

	"cordpulse/internal/dataprocessing"
)

// Bar chart titles.
const (
	TitleTopJournals = "Top 10 Journals Publishing COVID-19 Research"
	TitleSources     = "Distribution of Paper Counts by Source"
)

// TopJournalCount is how many journals the bar chart shows.
const TopJournalCount = 10

const (
	barChartWidth = 1000
	barHeight     = 26
	barGap        = 8
	maxLabelWidth = 360
)

// RenderTopJournals draws the most frequent journals as horizontal bars,
// largest first.
func RenderTopJournals(t *dataprocessing.Table) (Artifact, error) {
	if !t.HasColumn(dataprocessing.ColumnJournal) {
		return textArtifact(TopJournals, "", NoJournalColumn), nil
	}
	counts := dataprocessing.TopCategories(t, dataprocessing.ColumnJournal, TopJournalCount)
	return barArtifact(hbar{
		title:  TitleTopJournals,
		xLabel: publicationsAxis,
		yLabel: "Journal",
		counts: counts,
		colors: viridis.spread(len(counts)),
	})
}

// RenderSourceDistribution draws every source_x value as a horizontal bar.
func RenderSourceDistribution(t *dataprocessing.Table) (Artifact, error) {
	if !t.HasColumn(dataprocessing.ColumnSource) {
		return textArtifact(SourceDistribution, "", NoSourceColumn), nil
	}
	counts := dataprocessing.ValueCounts(t, dataprocessing.ColumnSource)
	return barArtifact(hbar{
		title:  TitleSources,
		xLabel: "Number of Papers",
		yLabel: "Source",
		counts: counts,
		colors: coolwarm.spread(len(counts)),
	})
}

type hbar struct {
	title  string
	xLabel string
	yLabel string
	counts []dataprocessing.Count
	colors []color.RGBA
}

func barArtifact(b hbar) (Artifact, error) {
	if len(b.counts) == 0 {
		return textArtifact("", "", NoData), nil
	}
	img := b.draw()
	data, err := encodePNG(img)
	if err != nil {
		return Artifact{}, err
	}
	points := make([]Point, len(b.counts))
	for i, c := range b.counts {
		points[i] = Point{Label: c.Label, Count: c.Count}
	}
	return Artifact{Kind: KindBar, Title: b.title, XLabel: b.xLabel, YLabel: b.yLabel, PNG: data, Points: points}, nil
}

// draw lays out one bar per count, top to bottom in the given order.
func (b hbar) draw() *image.RGBA {
	const (
		top    = 60
		bottom = 60
		right  = 60
	)

	labels := make([]string, len(b.counts))
	labelWidth := 0
	for i, c := range b.counts {
		labels[i] = ellipsize(c.Label, maxLabelWidth)
		if w, _ := textSize(labels[i], 1); w > labelWidth {
			labelWidth = w
		}
	}
	left := 40 + labelWidth + 12

	height := top + len(b.counts)*(barHeight+barGap) + bottom
	img := newCanvas(barChartWidth, height, white)

	drawCentered(img, b.title, barChartWidth/2, 16, ink, 2)

	maxCount := 0
	for _, c := range b.counts {
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}
	plotWidth := barChartWidth - left - right
	axisMax := niceCeil(float64(maxCount))

	// vertical grid and x tick labels
	for _, tick := range countTicks(axisMax, 5) {
		x := left + int(tick.Value/axisMax*float64(plotWidth))
		fillRect(img, image.Rect(x, top-4, x+1, height-bottom), gridColor)
		drawCentered(img, tick.Label, x, height-bottom+6, ink, 1)
	}
	fillRect(img, image.Rect(left, top-4, left+1, height-bottom), ink)

	for i, c := range b.counts {
		y := top + i*(barHeight+barGap)
		w := int(float64(c.Count) / axisMax * float64(plotWidth))
		if w < 1 && c.Count > 0 {
			w = 1
		}
		fillRect(img, image.Rect(left+1, y, left+1+w, y+barHeight), b.colors[i])

		lw, lh := textSize(labels[i], 1)
		drawText(img, labels[i], left-8-lw, y+(barHeight-lh)/2, ink, 1)
		count := strconv.Itoa(c.Count)
		_, ch := textSize(count, 1)
		drawText(img, count, left+w+6, y+(barHeight-ch)/2, ink, 1)
	}

	drawCentered(img, b.xLabel, left+plotWidth/2, height-bottom+28, ink, 1.5)
	drawText(img, b.yLabel, 10, top-28, ink, 1.5)
	return img
}
