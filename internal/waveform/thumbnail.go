package waveform

import (
	"fmt"
	"image"

	"github.com/bbrks/go-blurhash"
	xdraw "golang.org/x/image/draw"
)

const (
	thumbWidth  = 64
	thumbHeight = 16
)

// Thumbnail renders env into a small image suitable for a list preview.
func (r *Renderer) Thumbnail(env *Envelope, duration float64) *image.RGBA {
	full := r.Render(Frame{
		Width:    thumbWidth * 8,
		Height:   thumbHeight * 8,
		Envelope: env,
		Duration: duration,
		Viewport: NewViewport(),
	})
	thumb := image.NewRGBA(image.Rect(0, 0, thumbWidth, thumbHeight))
	xdraw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), full, full.Bounds(), xdraw.Src, nil)
	return thumb
}

// BlurHash encodes a thumbnail of env as a BlurHash string, which a UI can
// paint before the full waveform image arrives.
func (r *Renderer) BlurHash(env *Envelope, duration float64) (string, error) {
	if env.Empty() {
		return "", nil
	}
	// Wide aspect: more horizontal than vertical components.
	hash, err := blurhash.Encode(6, 2, r.Thumbnail(env, duration))
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}
