package waveform

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/timecode"
)

// Style holds the colors and geometry of a rendered waveform.
type Style struct {
	Background color.RGBA
	Grid       color.RGBA
	Label      color.RGBA
	Bar        color.RGBA
	BarPlayed  color.RGBA
	Synthetic  color.RGBA
	Selection  color.NRGBA
	Preview    color.NRGBA
	Playhead   color.RGBA
	Hover      color.RGBA

	// Padding is the empty band, in pixels, above and below the bars.
	// Grid labels sit in the top band.
	Padding int
}

// DefaultStyle is a dark theme.
var DefaultStyle = Style{
	Background: color.RGBA{R: 0x12, G: 0x14, B: 0x1a, A: 0xff},
	Grid:       color.RGBA{R: 0x2a, G: 0x2e, B: 0x38, A: 0xff},
	Label:      color.RGBA{R: 0x8a, G: 0x90, B: 0x9c, A: 0xff},
	Bar:        color.RGBA{R: 0x4f, G: 0x8c, B: 0xe8, A: 0xff},
	BarPlayed:  color.RGBA{R: 0x9a, G: 0xc2, B: 0xff, A: 0xff},
	Synthetic:  color.RGBA{R: 0x5a, G: 0x5e, B: 0x66, A: 0xff},
	Selection:  color.NRGBA{R: 0xf5, G: 0xb7, B: 0x31, A: 0x55},
	Preview:    color.NRGBA{R: 0xf5, G: 0xb7, B: 0x31, A: 0x33},
	Playhead:   color.RGBA{R: 0xff, G: 0x4d, B: 0x4d, A: 0xff},
	Hover:      color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff},
	Padding:    16,
}

// Frame is everything one render needs. Nil pointers are not drawn.
type Frame struct {
	Width       int
	Height      int
	Envelope    *Envelope
	Duration    float64
	Viewport    Viewport
	CurrentTime float64
	Selection   *domain.Selection
	Preview     *domain.Selection
	Hover       *float64
}

// Renderer draws frames.
type Renderer struct {
	style Style
}

// NewRenderer creates a Renderer.
func NewRenderer(style Style) *Renderer {
	return &Renderer{style: style}
}

// gridSteps are the candidate spacings between grid lines, in seconds.
var gridSteps = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30, 60, 120, 300, 600, 1800, 3600}

// Render draws f. Layers are painted background, grid, bars, selection or
// drag preview, playhead, hover line.
func (r *Renderer) Render(f Frame) *image.RGBA {
	w, h := max(f.Width, 1), max(f.Height, 1)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if f.Viewport.Zoom < 1 {
		f.Viewport = NewViewport()
	}

	draw.Draw(img, img.Bounds(), &image.Uniform{C: r.style.Background}, image.Point{}, draw.Src)

	if f.Duration > 0 {
		r.drawGrid(img, f)
	}
	r.drawBars(img, f)

	if f.Duration > 0 {
		switch {
		case f.Preview != nil:
			r.fillSpan(img, f, *f.Preview, r.style.Preview)
		case f.Selection != nil:
			r.fillSpan(img, f, *f.Selection, r.style.Selection)
		}
		r.vline(img, f, f.CurrentTime, r.style.Playhead, 2)
		if f.Hover != nil {
			r.vline(img, f, *f.Hover, r.style.Hover, 1)
		}
	}

	return img
}

func (r *Renderer) drawGrid(img *image.RGBA, f Frame) {
	w := img.Bounds().Dx()
	visible := f.Duration * f.Viewport.Span()
	maxLines := math.Max(1, float64(w)/100)

	step := gridSteps[len(gridSteps)-1]
	for _, s := range gridSteps {
		if visible/s <= maxLines {
			step = s
			break
		}
	}

	from := f.Viewport.Scroll * f.Duration
	to := from + visible
	face := basicfont.Face7x13
	for t := math.Ceil(from/step) * step; t <= to; t += step {
		x := int(math.Round(f.Viewport.XAt(t, f.Duration) * float64(w)))
		if x < 0 || x >= w {
			continue
		}
		for y := range img.Bounds().Dy() {
			img.SetRGBA(x, y, r.style.Grid)
		}
		d := font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(r.style.Label),
			Face: face,
			Dot:  fixed.P(x+3, face.Ascent),
		}
		d.DrawString(timecode.Format(t))
	}
}

func (r *Renderer) drawBars(img *image.RGBA, f Frame) {
	env := f.Envelope
	if env.Empty() {
		return
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	pad := min(r.style.Padding, h/4)
	band := float64(h - 2*pad)
	center := float64(pad) + band/2
	span := f.Viewport.Span()

	for x := range w {
		from := f.Viewport.Scroll + float64(x)/float64(w)*span
		to := from + span/float64(w)
		half := float64(env.PeakBetween(from, to)) * band / 2
		top := max(int(math.Round(center-half)), pad)
		bottom := min(int(math.Round(center+half)), h-pad-1)

		c := r.style.Bar
		if f.Duration > 0 && from*f.Duration < f.CurrentTime {
			c = r.style.BarPlayed
		}
		if env.Synthetic {
			c = r.style.Synthetic
		}
		for y := top; y <= bottom; y++ {
			// Diagonal hatching marks a placeholder envelope.
			if env.Synthetic && (x+y)%4 >= 2 {
				continue
			}
			img.SetRGBA(x, y, c)
		}
	}
}

func (r *Renderer) fillSpan(img *image.RGBA, f Frame, sel domain.Selection, c color.NRGBA) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	x0 := int(math.Floor(f.Viewport.XAt(sel.Start, f.Duration) * float64(w)))
	x1 := int(math.Ceil(f.Viewport.XAt(sel.End, f.Duration) * float64(w)))
	rect := image.Rect(max(x0, 0), 0, min(x1, w), h)
	if rect.Empty() {
		return
	}
	draw.Draw(img, rect, &image.Uniform{C: c}, image.Point{}, draw.Over)
}

func (r *Renderer) vline(img *image.RGBA, f Frame, t float64, c color.RGBA, width int) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	x := int(math.Round(f.Viewport.XAt(t, f.Duration) * float64(w)))
	for dx := range width {
		px := x + dx
		if px == w && dx == 0 {
			// The playhead at the very end stays visible.
			px = w - 1
		}
		if px < 0 || px >= w {
			continue
		}
		for y := range h {
			img.SetRGBA(px, y, c)
		}
	}
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
