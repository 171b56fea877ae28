// Package compose turns decoded natural-space frames into the display
// oriented, letterboxed, overlay-blended buffers handed to the encoder.
package compose

import (
	"image"
	"image/color"

	"github.com/peerwaya/watermark-kit/internal/geometry"
)

// Plan describes, once per job, how a source frame maps onto the output
// canvas: final encoded dimensions, the fit scale, the centering offset and
// the background fill used for any letterbox/pillarbox borders. All values
// are in display orientation.
type Plan struct {
	// Output is the final encoded pixel size.
	Output geometry.Size
	// Scale is the uniform fit factor applied to the source frame.
	Scale float64
	// Scaled is the source frame size after scaling, rounded to pixels.
	Scaled geometry.Size
	// Offset centers the scaled frame within the output canvas.
	Offset geometry.Point
	// Background fills the remaining border, if any.
	Background color.RGBA
}

// Identity reports whether the plan leaves frames untouched.
func (p Plan) Identity() bool {
	return p.Scale == 1 && p.Offset == (geometry.Point{}) && p.Scaled == p.Output
}

// FrameRect is the display-space rectangle the scaled frame occupies.
func (p Plan) FrameRect() image.Rectangle {
	return image.Rect(
		p.Offset.X,
		p.Offset.Y,
		p.Offset.X+p.Scaled.Width,
		p.Offset.Y+p.Scaled.Height,
	)
}

// BuildPlan computes the canvas plan for a source display size and an
// optionally requested output size. A nil request means no aspect change:
// identity scale, zero offset, canvas equal to the source. Otherwise the
// frame is fit (never cropped, aspect preserved) and centered, with uniform
// background borders on at most one axis.
func BuildPlan(sourceDisplay geometry.Size, requested *geometry.Size, background color.RGBA) Plan {
	if requested == nil {
		return Plan{
			Output:     sourceDisplay,
			Scale:      1,
			Scaled:     sourceDisplay,
			Background: background,
		}
	}

	sw, sh := float64(sourceDisplay.Width), float64(sourceDisplay.Height)
	ow, oh := float64(requested.Width), float64(requested.Height)

	scale := ow / sw
	if s := oh / sh; s < scale {
		scale = s
	}

	scaled := geometry.Size{
		Width:  roundPx(sw * scale),
		Height: roundPx(sh * scale),
	}

	return Plan{
		Output: *requested,
		Scale:  scale,
		Scaled: scaled,
		Offset: geometry.Point{
			X: (requested.Width - scaled.Width) / 2,
			Y: (requested.Height - scaled.Height) / 2,
		},
		Background: background,
	}
}

func roundPx(v float64) int {
	return int(v + 0.5)
}
