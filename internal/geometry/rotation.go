package geometry

import "image"

// Rotation is a discrete display transform in degrees, applied clockwise when
// going from natural (as-stored) orientation to display (as-seen) orientation.
// Source containers restrict it to four values; arbitrary angles are
// deliberately unrepresentable.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// RotationFromDegrees normalizes an arbitrary degree value (including
// negatives, e.g. -90 from some containers) onto the four supported
// rotations. ok is false when the angle is not a multiple of 90.
func RotationFromDegrees(deg int) (Rotation, bool) {
	d := deg % 360
	if d < 0 {
		d += 360
	}
	switch d {
	case 0, 90, 180, 270:
		return Rotation(d), true
	}
	return Rotate0, false
}

// Swaps reports whether the rotation exchanges width and height.
func (r Rotation) Swaps() bool {
	return r == Rotate90 || r == Rotate270
}

// Inverse returns the rotation that undoes r.
func (r Rotation) Inverse() Rotation {
	return Rotation((360 - int(r)) % 360)
}

// Apply returns the display-space size of a natural-space extent.
func (r Rotation) Apply(s Size) Size {
	if r.Swaps() {
		return Size{Width: s.Height, Height: s.Width}
	}
	return s
}

// Rotate returns a copy of src rotated clockwise by the given rotation.
// Rotate0 still copies so callers may mutate the result freely.
func Rotate(src *image.RGBA, r Rotation) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	var dst *image.RGBA
	if r.Swaps() {
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	RotateInto(dst, src, r)
	return dst
}

// RotateInto rotates src clockwise by r into dst, which must already have the
// rotated dimensions. Lets the frame loop reuse pooled buffers.
func RotateInto(dst, src *image.RGBA, r Rotation) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	if r == Rotate0 {
		for y := 0; y < h; y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			di := dst.PixOffset(0, y)
			copy(dst.Pix[di:di+w*4], src.Pix[si:si+w*4])
		}
		return
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			var di int
			switch r {
			case Rotate90:
				di = dst.PixOffset(h-1-y, x)
			case Rotate180:
				di = dst.PixOffset(w-1-x, h-1-y)
			case Rotate270:
				di = dst.PixOffset(y, w-1-x)
			}
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
}

// RemapToNaturalSpace converts an overlay placed in display space into its
// natural-space equivalent: the overlay pixels rotated so that the display
// transform brings them back upright, and the top-left position translated
// into the natural pixel layout. Encoded output carries no display transform,
// so overlay geometry computed in what-the-viewer-sees space must be carried
// through the same rotation the video pixels themselves undergo.
func RemapToNaturalSpace(displayPos Point, overlay *image.RGBA, r Rotation, natural Size) (*image.RGBA, Point) {
	rotated := Rotate(overlay, r.Inverse())
	rb := rotated.Bounds()
	rw, rh := rb.Dx(), rb.Dy()
	ob := overlay.Bounds()
	ow, oh := ob.Dx(), ob.Dy()

	var p Point
	switch r {
	case Rotate0:
		p = displayPos
	case Rotate90:
		p = Point{
			X: displayPos.Y,
			Y: natural.Height - displayPos.X - rh,
		}
	case Rotate180:
		p = Point{
			X: natural.Width - displayPos.X - ow,
			Y: natural.Height - displayPos.Y - oh,
		}
	case Rotate270:
		p = Point{
			X: natural.Width - displayPos.Y - rw,
			Y: displayPos.X,
		}
	}
	return rotated, p
}

// RemapRect applies the same display-to-natural mapping to a whole rectangle.
// Used for the letterboxed frame rect, which is planned in display space but
// drawn on the natural-orientation canvas.
func RemapRect(display image.Rectangle, r Rotation, natural Size) image.Rectangle {
	w, h := display.Dx(), display.Dy()
	switch r {
	case Rotate90:
		x := display.Min.Y
		y := natural.Height - display.Min.X - w
		return image.Rect(x, y, x+h, y+w)
	case Rotate180:
		x := natural.Width - display.Min.X - w
		y := natural.Height - display.Min.Y - h
		return image.Rect(x, y, x+w, y+h)
	case Rotate270:
		x := natural.Width - display.Min.Y - h
		y := display.Min.X
		return image.Rect(x, y, x+h, y+w)
	default:
		return display
	}
}
