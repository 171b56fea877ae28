package overlay

import (
	"fmt"
	"image"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const defaultFontSize = 36

// Renderer rasterizes text overlays. The bundled Go Regular face is parsed
// once and reused across jobs.
type Renderer struct {
	font *truetype.Font
}

// NewRenderer creates a Renderer with the bundled font.
func NewRenderer() (*Renderer, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bundled font: %w", err)
	}
	return &Renderer{font: f}, nil
}

// Render rasterizes text into a tightly-sized transparent RGBA buffer.
func (r *Renderer) Render(text string, style Style) (*image.RGBA, error) {
	size := style.FontSize
	if size <= 0 {
		size = defaultFontSize
	}

	// Width estimate for a proportional face; padded by the trailing glyph
	// overhang. Exact shaping is not needed, the buffer is transparent.
	width := int(float64(len(text))*size*0.6) + int(size/2)
	height := int(size * 1.4)
	if width < 1 {
		width = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))

	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(r.font)
	c.SetFontSize(size)
	c.SetClip(dst.Bounds())
	c.SetDst(dst)
	c.SetSrc(image.NewUniform(ParseColor(style.Color)))
	c.SetHinting(font.HintingFull)

	if _, err := c.DrawString(text, freetype.Pt(0, int(size))); err != nil {
		return nil, fmt.Errorf("draw text: %w", err)
	}
	return dst, nil
}
