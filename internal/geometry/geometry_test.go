package geometry

import (
	"image"
	"image/color"
	"testing"
)

func TestResolveUnit(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		unit      Unit
		reference int
		want      int
	}{
		{"pixels passthrough", 20, UnitPixels, 1080, 20},
		{"pixels rounded", 19.6, UnitPixels, 1080, 20},
		{"percent of min dimension", 5, UnitPercent, 1080, 54},
		{"percent rounds", 2.5, UnitPercent, 1001, 25},
		{"zero", 0, UnitPercent, 1080, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveUnit(tt.value, tt.unit, tt.reference)
			if got != tt.want {
				t.Errorf("ResolveUnit(%v, %s, %d) = %d, want %d", tt.value, tt.unit, tt.reference, got, tt.want)
			}
		})
	}
}

func TestPlace_ContainedWithinCanvas(t *testing.T) {
	canvas := Size{Width: 1920, Height: 1080}
	overlay := Size{Width: 200, Height: 50}
	anchors := []Anchor{AnchorTopLeft, AnchorTopRight, AnchorBottomLeft, AnchorBottomRight, AnchorCenter}
	margins := []int{0, 1, 20, 415} // 415+overlay still fits on both axes

	for _, a := range anchors {
		for _, m := range margins {
			p := Place(canvas, overlay, a, m, 0, 0)
			if p.X < 0 || p.Y < 0 ||
				p.X+overlay.Width > canvas.Width ||
				p.Y+overlay.Height > canvas.Height {
				t.Errorf("anchor %s margin %d: overlay at (%d,%d) escapes %dx%d canvas",
					a, m, p.X, p.Y, canvas.Width, canvas.Height)
			}
		}
	}
}

func TestPlace_Anchors(t *testing.T) {
	canvas := Size{Width: 1920, Height: 1080}
	overlay := Size{Width: 200, Height: 50}

	tests := []struct {
		name   string
		anchor Anchor
		margin int
		want   Point
	}{
		{"top left", AnchorTopLeft, 20, Point{20, 20}},
		{"top right", AnchorTopRight, 20, Point{1700, 20}},
		{"bottom left", AnchorBottomLeft, 20, Point{20, 1010}},
		{"bottom right", AnchorBottomRight, 20, Point{1700, 1010}},
		{"center", AnchorCenter, 20, Point{860, 515}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Place(canvas, overlay, tt.anchor, tt.margin, 0, 0)
			if got != tt.want {
				t.Errorf("Place(%s) = %+v, want %+v", tt.anchor, got, tt.want)
			}
		})
	}
}

func TestPlace_Offsets(t *testing.T) {
	canvas := Size{Width: 100, Height: 100}
	overlay := Size{Width: 10, Height: 10}

	got := Place(canvas, overlay, AnchorTopLeft, 5, 7, -3)
	want := Point{12, 2}
	if got != want {
		t.Errorf("Place with offsets = %+v, want %+v", got, want)
	}
}

func TestRotationFromDegrees(t *testing.T) {
	tests := []struct {
		deg    int
		want   Rotation
		wantOK bool
	}{
		{0, Rotate0, true},
		{90, Rotate90, true},
		{180, Rotate180, true},
		{270, Rotate270, true},
		{-90, Rotate270, true},
		{-180, Rotate180, true},
		{360, Rotate0, true},
		{450, Rotate90, true},
		{45, Rotate0, false},
	}

	for _, tt := range tests {
		got, ok := RotationFromDegrees(tt.deg)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("RotationFromDegrees(%d) = (%v, %v), want (%v, %v)", tt.deg, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRotation_Apply(t *testing.T) {
	s := Size{Width: 1080, Height: 1920}
	if got := Rotate90.Apply(s); got != (Size{Width: 1920, Height: 1080}) {
		t.Errorf("Rotate90.Apply = %+v", got)
	}
	if got := Rotate180.Apply(s); got != s {
		t.Errorf("Rotate180.Apply = %+v", got)
	}
}

// markerOverlay is a 2x1 overlay with a red pixel at (0,0) and a green pixel
// at (1,0), so both position and orientation survive a comparison.
func markerOverlay() *image.RGBA {
	o := image.NewRGBA(image.Rect(0, 0, 2, 1))
	o.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	o.SetRGBA(1, 0, color.RGBA{G: 255, A: 255})
	return o
}

// TestRemapToNaturalSpace_RoundTrip verifies that compositing an overlay at a
// display position onto the natural-orientation canvas and then rotating the
// canvas into display orientation reproduces the overlay exactly at the
// original display position, for all four rotations.
func TestRemapToNaturalSpace_RoundTrip(t *testing.T) {
	display := Size{Width: 8, Height: 6}
	displayPos := Point{X: 3, Y: 2}

	for _, r := range []Rotation{Rotate0, Rotate90, Rotate180, Rotate270} {
		natural := r.Inverse().Apply(display)

		rotated, naturalPos := RemapToNaturalSpace(displayPos, markerOverlay(), r, natural)

		canvas := image.NewRGBA(image.Rect(0, 0, natural.Width, natural.Height))
		rb := rotated.Bounds()
		for y := 0; y < rb.Dy(); y++ {
			for x := 0; x < rb.Dx(); x++ {
				canvas.SetRGBA(naturalPos.X+x, naturalPos.Y+y, rotated.RGBAAt(x, y))
			}
		}

		seen := Rotate(canvas, r)
		if got := seen.RGBAAt(displayPos.X, displayPos.Y); got != (color.RGBA{R: 255, A: 255}) {
			t.Errorf("rotation %d: pixel at display %+v = %+v, want red", r, displayPos, got)
		}
		if got := seen.RGBAAt(displayPos.X+1, displayPos.Y); got != (color.RGBA{G: 255, A: 255}) {
			t.Errorf("rotation %d: pixel right of display %+v = %+v, want green", r, displayPos, got)
		}
	}
}

// TestRemapToNaturalSpace_Portrait90 pins the 90-degree case against hand
// computed values: a 1080x1920 portrait recording viewed landscape, with a
// 200x50 overlay anchored bottom-right at a 20px margin.
func TestRemapToNaturalSpace_Portrait90(t *testing.T) {
	natural := Size{Width: 1080, Height: 1920}
	displayCanvas := Rotate90.Apply(natural) // 1920x1080

	overlay := image.NewRGBA(image.Rect(0, 0, 200, 50))
	displayPos := Place(displayCanvas, Size{Width: 200, Height: 50}, AnchorBottomRight, 20, 0, 0)
	if displayPos != (Point{X: 1700, Y: 1010}) {
		t.Fatalf("display position = %+v, want {1700 1010}", displayPos)
	}

	rotated, naturalPos := RemapToNaturalSpace(displayPos, overlay, Rotate90, natural)

	rb := rotated.Bounds()
	if rb.Dx() != 50 || rb.Dy() != 200 {
		t.Errorf("rotated overlay size = %dx%d, want 50x200", rb.Dx(), rb.Dy())
	}
	if naturalPos != (Point{X: 1010, Y: 20}) {
		t.Errorf("natural position = %+v, want {1010 20}", naturalPos)
	}
}

func TestRemapToNaturalSpace_Idempotent(t *testing.T) {
	natural := Size{Width: 640, Height: 480}
	pos := Point{X: 10, Y: 12}

	r1, p1 := RemapToNaturalSpace(pos, markerOverlay(), Rotate270, natural)
	r2, p2 := RemapToNaturalSpace(pos, markerOverlay(), Rotate270, natural)

	if p1 != p2 {
		t.Errorf("positions differ: %+v vs %+v", p1, p2)
	}
	if len(r1.Pix) != len(r2.Pix) {
		t.Fatalf("pixel buffer lengths differ")
	}
	for i := range r1.Pix {
		if r1.Pix[i] != r2.Pix[i] {
			t.Fatalf("pixel buffers differ at byte %d", i)
		}
	}
}

func TestRemapRect(t *testing.T) {
	natural := Size{Width: 1080, Height: 1920}

	tests := []struct {
		name     string
		rotation Rotation
		display  image.Rectangle
		want     image.Rectangle
	}{
		{"identity", Rotate0, image.Rect(10, 20, 110, 70), image.Rect(10, 20, 110, 70)},
		{"quarter turn", Rotate90, image.Rect(100, 200, 400, 450), image.Rect(200, 1520, 450, 1820)},
		{"half turn", Rotate180, image.Rect(100, 200, 400, 450), image.Rect(680, 1470, 980, 1720)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemapRect(tt.display, tt.rotation, natural)
			if got != tt.want {
				t.Errorf("RemapRect(%v, %d) = %v, want %v", tt.display, tt.rotation, got, tt.want)
			}
		})
	}
}

func TestRotate_Pixels(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	src.SetRGBA(1, 0, color.RGBA{G: 255, A: 255})

	cw := Rotate(src, Rotate90)
	if b := cw.Bounds(); b.Dx() != 1 || b.Dy() != 2 {
		t.Fatalf("rotated bounds = %v", b)
	}
	// Clockwise: the left pixel ends up on top.
	if got := cw.RGBAAt(0, 0); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("top pixel = %+v, want red", got)
	}
	if got := cw.RGBAAt(0, 1); got != (color.RGBA{G: 255, A: 255}) {
		t.Errorf("bottom pixel = %+v, want green", got)
	}

	full := Rotate(Rotate(src, Rotate180), Rotate180)
	for i := range src.Pix {
		if full.Pix[i] != src.Pix[i] {
			t.Fatalf("two half turns are not the identity (byte %d)", i)
		}
	}
}
