package charts

import (
	"image"
	"math"

	"cordpulse/internal/dataprocessing"
)

// TitleWordCloudText is the word cloud title.
const TitleWordCloudText = "Word Cloud of Paper Titles"

const (
	cloudWidth    = 800
	cloudHeight   = 400
	cloudMaxScale = 6.0
	cloudMinScale = 1.0
	// relative importance of frequency for glyph size
	relativeScaling = 0.5
	maxCloudMisses  = 15
)

// RenderTitleWordCloud lays the most frequent title words out on a white
// 800x400 canvas, larger words first, spiralling out from the center.
func RenderTitleWordCloud(t *dataprocessing.Table) (Artifact, error) {
	if !t.HasColumn(dataprocessing.ColumnTitle) {
		return textArtifact(TitleWordCloud, "", NoTitleColumn), nil
	}
	words := dataprocessing.WordFrequencies(dataprocessing.TitleText(t), dataprocessing.MaxCloudWords)
	if len(words) == 0 {
		return textArtifact(TitleWordCloud, "", NoData), nil
	}

	img := newCanvas(cloudWidth, cloudHeight, white)
	colors := viridis.spread(len(words))
	placed := make([]image.Rectangle, 0, len(words))
	points := make([]Point, 0, len(words))

	maxCount := float64(words[0].Count)
	bounds := img.Bounds().Inset(4)
	misses := 0
	for i, w := range words {
		// the canvas is full once a run of words finds no slot
		if misses >= maxCloudMisses {
			break
		}
		rel := float64(w.Count) / maxCount
		scale := cloudMinScale + (cloudMaxScale-cloudMinScale)*(relativeScaling*rel+(1-relativeScaling)*math.Pow(rel, 2))

		fitted := false
		for ; scale >= cloudMinScale && !fitted; scale *= 0.8 {
			tw, th := textSize(w.Label, scale)
			if r, ok := findSlot(bounds, placed, tw, th); ok {
				drawText(img, w.Label, r.Min.X, r.Min.Y, colors[i], scale)
				placed = append(placed, r)
				points = append(points, Point{Label: w.Label, Count: w.Count})
				fitted = true
			}
		}
		if fitted {
			misses = 0
		} else {
			misses++
		}
	}

	data, err := encodePNG(img)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Kind: KindImage, Title: TitleWordCloudText, PNG: data, Points: points}, nil
}

// findSlot walks an Archimedean spiral from the canvas center and returns
// the first w x h rectangle inside bounds that overlaps nothing placed.
func findSlot(bounds image.Rectangle, placed []image.Rectangle, w, h int) (image.Rectangle, bool) {
	if w > bounds.Dx() || h > bounds.Dy() {
		return image.Rectangle{}, false
	}
	cx, cy := bounds.Min.X+bounds.Dx()/2, bounds.Min.Y+bounds.Dy()/2
	aspect := float64(bounds.Dy()) / float64(bounds.Dx())

	for step := 0; step < 4000; step++ {
		theta := float64(step) * 0.1
		radius := 2 * theta
		x := cx + int(radius*math.Cos(theta)) - w/2
		y := cy + int(radius*math.Sin(theta)*aspect) - h/2
		r := image.Rect(x, y, x+w, y+h)
		if !r.In(bounds) {
			if radius > float64(bounds.Dx()) {
				break
			}
			continue
		}
		if !overlaps(r, placed) {
			return r, true
		}
	}
	return image.Rectangle{}, false
}

func overlaps(r image.Rectangle, placed []image.Rectangle) bool {
	pad := r.Inset(-1)
	for _, p := range placed {
		if pad.Overlaps(p) {
			return true
		}
	}
	return false
}
