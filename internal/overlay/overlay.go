// Package overlay resolves a job's overlay source (raster image bytes or a
// text string with style) into a single RGBA buffer, scaled and opacity
// adjusted, ready for per-frame compositing. Resolution happens once per job;
// the frame loop never re-rasterizes.
package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strconv"
	"strings"

	"github.com/peerwaya/watermark-kit/internal/geometry"

	xdraw "golang.org/x/image/draw"
)

// ErrDecode is returned when the supplied overlay image bytes cannot be
// decoded. Fatal to the job: there is nothing to composite.
var ErrDecode = errors.New("overlay image decode failed")

type sourceKind int

const (
	kindNone sourceKind = iota
	kindImage
	kindText
)

// Style controls text overlay rendering.
type Style struct {
	// FontSize in points at 72 DPI. Zero means the default of 36.
	FontSize float64
	// Color is an "r,g,b" or "r,g,b,a" byte triple/quad. Empty means white.
	Color string
}

// Source is the overlay input for a job: image bytes, text, or nothing.
// The zero value means no overlay (pure pass-through re-encode).
type Source struct {
	kind  sourceKind
	data  []byte
	text  string
	style Style
}

// FromImage creates a Source from already-rasterized image bytes (PNG, JPEG
// or GIF). How the bytes were produced is opaque to the compositing core.
func FromImage(data []byte) Source {
	return Source{kind: kindImage, data: data}
}

// FromText creates a Source that rasterizes text with the given style.
func FromText(text string, style Style) Source {
	return Source{kind: kindText, text: text, style: style}
}

// IsZero reports whether no overlay was supplied.
func (s Source) IsZero() bool {
	return s.kind == kindNone || (s.kind == kindText && s.text == "")
}

// Resolve turns a Source into the final RGBA buffer for compositing.
// widthPercent, when positive, scales the overlay so its width is that
// percentage of the canvas width. opacity in [0,1] is premultiplied into the
// overlay's own alpha. Returns (nil, nil) when the source is empty.
func (r *Renderer) Resolve(src Source, canvas geometry.Size, widthPercent, opacity float64) (*image.RGBA, error) {
	if src.IsZero() {
		return nil, nil
	}

	var img *image.RGBA
	switch src.kind {
	case kindImage:
		decoded, _, err := image.Decode(bytes.NewReader(src.data))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		img = toRGBA(decoded)
	case kindText:
		rendered, err := r.Render(src.text, src.style)
		if err != nil {
			return nil, fmt.Errorf("render text overlay: %w", err)
		}
		img = rendered
	}

	if widthPercent > 0 {
		targetW := int(math.Round(float64(canvas.Width) * widthPercent / 100))
		img = scaleToWidth(img, targetW)
	}

	applyOpacity(img, opacity)
	return img, nil
}

// toRGBA copies any decoded image into an RGBA buffer.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// scaleToWidth resizes proportionally so the result is targetW wide.
func scaleToWidth(img *image.RGBA, targetW int) *image.RGBA {
	b := img.Bounds()
	if targetW <= 0 || targetW == b.Dx() {
		return img
	}
	targetH := int(math.Round(float64(b.Dy()) * float64(targetW) / float64(b.Dx())))
	if targetH < 1 {
		targetH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// applyOpacity multiplies every channel by opacity. image.RGBA is
// alpha-premultiplied, so scaling all four channels uniformly is the correct
// way to fade the overlay.
func applyOpacity(img *image.RGBA, opacity float64) {
	if opacity >= 1 {
		return
	}
	if opacity < 0 {
		opacity = 0
	}
	for i := range img.Pix {
		img.Pix[i] = uint8(float64(img.Pix[i]) * opacity)
	}
}

// ParseColor reads an "r,g,b" or "r,g,b,a" string. Falls back to opaque
// white on any malformed input.
func ParseColor(s string) color.RGBA {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	if s == "" {
		return white
	}
	parts := strings.Split(strings.ReplaceAll(s, " ", ""), ",")
	if len(parts) != 3 && len(parts) != 4 {
		return white
	}
	vals := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return white
		}
		vals[i] = clamp(v, 0, 255)
	}
	c := color.RGBA{R: uint8(vals[0]), G: uint8(vals[1]), B: uint8(vals[2]), A: 255}
	if len(vals) == 4 {
		c.A = uint8(vals[3])
	}
	return c
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
