// Package geometry provides the pure placement math for overlay compositing:
// anchor/margin/offset placement in display space, unit resolution, and the
// display-to-natural coordinate remapping required when a source video carries
// rotation metadata. All functions are stateless and side-effect free.
package geometry

import "math"

// Anchor identifies the canvas corner (or center) an overlay is placed against.
type Anchor string

const (
	AnchorTopLeft     Anchor = "topLeft"
	AnchorTopRight    Anchor = "topRight"
	AnchorBottomLeft  Anchor = "bottomLeft"
	AnchorBottomRight Anchor = "bottomRight"
	AnchorCenter      Anchor = "center"
)

// IsValid returns true if the anchor is one of the recognized values.
func (a Anchor) IsValid() bool {
	switch a {
	case AnchorTopLeft, AnchorTopRight, AnchorBottomLeft, AnchorBottomRight, AnchorCenter:
		return true
	}
	return false
}

// Unit is the measurement unit for margins and offsets.
type Unit string

const (
	// UnitPixels interprets a value as absolute pixels.
	UnitPixels Unit = "pixels"
	// UnitPercent interprets a value as a percentage of a reference dimension.
	// Margins resolve against the minimum canvas dimension so that a percent
	// margin is stable across orientations; offsets resolve against the axis
	// they move along.
	UnitPercent Unit = "percent"
)

// IsValid returns true if the unit is one of the recognized values.
func (u Unit) IsValid() bool {
	return u == UnitPixels || u == UnitPercent
}

// Point is a position in a top-left-origin pixel coordinate system.
type Point struct {
	X int
	Y int
}

// Size is a pixel extent.
type Size struct {
	Width  int
	Height int
}

// Min returns the smaller of the two dimensions.
func (s Size) Min() int {
	if s.Width < s.Height {
		return s.Width
	}
	return s.Height
}

// ResolveUnit converts a value in the given unit to pixels against a
// reference dimension. Percent values are percentages (50 means half of the
// reference), rounded to the nearest pixel.
func ResolveUnit(value float64, unit Unit, reference int) int {
	if unit == UnitPercent {
		return int(math.Round(value / 100 * float64(reference)))
	}
	return int(math.Round(value))
}

// Place computes the top-left position of an overlay on a canvas for the
// given anchor, margin and additional offset. Coordinates are top-left
// origin. The result is fully contained in the canvas whenever
// overlay+margin fits on both axes; otherwise the overlay legitimately
// extends outside and is not clipped here.
func Place(canvas, overlay Size, anchor Anchor, margin, offsetX, offsetY int) Point {
	var p Point
	switch anchor {
	case AnchorTopLeft:
		p = Point{X: margin, Y: margin}
	case AnchorTopRight:
		p = Point{X: canvas.Width - overlay.Width - margin, Y: margin}
	case AnchorBottomLeft:
		p = Point{X: margin, Y: canvas.Height - overlay.Height - margin}
	case AnchorBottomRight:
		p = Point{
			X: canvas.Width - overlay.Width - margin,
			Y: canvas.Height - overlay.Height - margin,
		}
	case AnchorCenter:
		p = Point{
			X: (canvas.Width - overlay.Width) / 2,
			Y: (canvas.Height - overlay.Height) / 2,
		}
	default:
		p = Point{
			X: canvas.Width - overlay.Width - margin,
			Y: canvas.Height - overlay.Height - margin,
		}
	}
	p.X += offsetX
	p.Y += offsetY
	return p
}
