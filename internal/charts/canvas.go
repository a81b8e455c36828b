package charts

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	white     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	ink       = color.RGBA{R: 33, G: 33, B: 33, A: 255}
	gridColor = color.RGBA{R: 221, G: 221, B: 221, A: 255}
)

var face = basicfont.Face7x13

func newCanvas(w, h int, bg color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return img
}

// textSize returns the pixel size of text drawn at scale.
func textSize(text string, scale float64) (int, int) {
	d := &font.Drawer{Face: face}
	w := d.MeasureString(text).Ceil()
	h := face.Metrics().Height.Ceil()
	return int(math.Ceil(float64(w) * scale)), int(math.Ceil(float64(h) * scale))
}

// drawText renders text with its top-left corner at (x, y). The 7x13 bitmap
// face is rasterized once and scaled bilinearly for sizes above 1.
func drawText(dst draw.Image, text string, x, y int, col color.Color, scale float64) image.Rectangle {
	d := &font.Drawer{Face: face}
	w := d.MeasureString(text).Ceil()
	h := face.Metrics().Height.Ceil()
	if w == 0 {
		return image.Rectangle{}
	}

	if scale == 1 {
		d.Dst = dst
		d.Src = image.NewUniform(col)
		d.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y) + face.Metrics().Ascent}
		d.DrawString(text)
		return image.Rect(x, y, x+w, y+h)
	}

	glyphs := image.NewRGBA(image.Rect(0, 0, w, h))
	d.Dst = glyphs
	d.Src = image.NewUniform(col)
	d.Dot = fixed.Point26_6{X: 0, Y: face.Metrics().Ascent}
	d.DrawString(text)

	sw, sh := int(math.Ceil(float64(w)*scale)), int(math.Ceil(float64(h)*scale))
	r := image.Rect(x, y, x+sw, y+sh)
	xdraw.BiLinear.Scale(dst, r, glyphs, glyphs.Bounds(), xdraw.Over, nil)
	return r
}

// drawCentered renders text horizontally centered on cx.
func drawCentered(dst draw.Image, text string, cx, y int, col color.Color, scale float64) {
	w, _ := textSize(text, scale)
	drawText(dst, text, cx-w/2, y, col, scale)
}

func fillRect(dst draw.Image, r image.Rectangle, col color.Color) {
	draw.Draw(dst, r, image.NewUniform(col), image.Point{}, draw.Over)
}

// ellipsize shortens text to at most maxWidth pixels at scale 1.
func ellipsize(text string, maxWidth int) string {
	if w, _ := textSize(text, 1); w <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		s := string(runes) + "..."
		if w, _ := textSize(s, 1); w <= maxWidth {
			return s
		}
	}
	return ""
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// palette interpolates linearly between evenly spaced stops.
type palette []color.RGBA

var (
	viridis = palette{
		{0x44, 0x01, 0x54, 0xff}, {0x48, 0x28, 0x78, 0xff}, {0x3e, 0x49, 0x89, 0xff},
		{0x31, 0x68, 0x8e, 0xff}, {0x26, 0x82, 0x8e, 0xff}, {0x1f, 0x9e, 0x89, 0xff},
		{0x35, 0xb7, 0x79, 0xff}, {0x6e, 0xce, 0x58, 0xff}, {0xb5, 0xde, 0x2b, 0xff},
		{0xfd, 0xe7, 0x25, 0xff},
	}
	coolwarm = palette{
		{0x3b, 0x4c, 0xc0, 0xff}, {0x7b, 0x9f, 0xf9, 0xff}, {0xc0, 0xd4, 0xf5, 0xff},
		{0xdd, 0xdd, 0xdd, 0xff}, {0xf2, 0xcb, 0xb7, 0xff}, {0xee, 0x84, 0x68, 0xff},
		{0xb4, 0x04, 0x26, 0xff},
	}
)

// at returns the color at t in [0, 1].
func (p palette) at(t float64) color.RGBA {
	if t <= 0 {
		return p[0]
	}
	if t >= 1 {
		return p[len(p)-1]
	}
	pos := t * float64(len(p)-1)
	i := int(pos)
	f := pos - float64(i)
	a, b := p[i], p[i+1]
	lerp := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + (float64(y)-float64(x))*f)) }
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 0xff}
}

// spread returns n colors sampled evenly across the palette.
func (p palette) spread(n int) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := range out {
		if n == 1 {
			out[i] = p.at(0.5)
			continue
		}
		out[i] = p.at(float64(i) / float64(n-1))
	}
	return out
}
