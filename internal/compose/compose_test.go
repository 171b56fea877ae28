package compose

import (
	"image"
	"image/color"
	"testing"

	"github.com/peerwaya/watermark-kit/internal/geometry"
)

func TestBuildPlan_Identity(t *testing.T) {
	src := geometry.Size{Width: 1920, Height: 1080}
	plan := BuildPlan(src, nil, color.RGBA{})

	if !plan.Identity() {
		t.Error("expected identity plan when no output size requested")
	}
	if plan.Output != src {
		t.Errorf("output = %+v, want %+v", plan.Output, src)
	}
	if plan.Scale != 1 {
		t.Errorf("scale = %v, want 1", plan.Scale)
	}
}

// TestBuildPlan_PortraitRequest is the 1920x1080 source fit into a 1080x1920
// canvas: scale is exactly min(1080/1920, 1920/1080) = 0.5625 and the frame
// is centered vertically between background borders.
func TestBuildPlan_PortraitRequest(t *testing.T) {
	src := geometry.Size{Width: 1920, Height: 1080}
	out := geometry.Size{Width: 1080, Height: 1920}
	bg := color.RGBA{R: 10, G: 20, B: 30, A: 255}

	plan := BuildPlan(src, &out, bg)

	if plan.Scale != 0.5625 {
		t.Errorf("scale = %v, want exactly 0.5625", plan.Scale)
	}
	if plan.Scaled.Width != 1080 {
		t.Errorf("scaled width = %d, want 1080", plan.Scaled.Width)
	}
	if plan.Scaled.Height != 608 { // 607.5 rounded to a whole pixel
		t.Errorf("scaled height = %d, want 608", plan.Scaled.Height)
	}
	if plan.Offset.X != 0 || plan.Offset.Y != 656 {
		t.Errorf("offset = %+v, want {0 656}", plan.Offset)
	}
	if plan.Background != bg {
		t.Errorf("background = %+v, want %+v", plan.Background, bg)
	}
}

// TestBuildPlan_FitInvariant checks, across a spread of shapes, that the fit
// never exceeds min(outW/srcW, outH/srcH), never crops, and that frame plus
// borders exactly tile the output canvas.
func TestBuildPlan_FitInvariant(t *testing.T) {
	cases := []struct {
		src geometry.Size
		out geometry.Size
	}{
		{geometry.Size{Width: 1920, Height: 1080}, geometry.Size{Width: 1080, Height: 1920}},
		{geometry.Size{Width: 1080, Height: 1920}, geometry.Size{Width: 1920, Height: 1080}},
		{geometry.Size{Width: 640, Height: 480}, geometry.Size{Width: 1280, Height: 960}},
		{geometry.Size{Width: 1280, Height: 720}, geometry.Size{Width: 1280, Height: 720}},
		{geometry.Size{Width: 601, Height: 399}, geometry.Size{Width: 500, Height: 500}},
	}

	for _, tc := range cases {
		plan := BuildPlan(tc.src, &tc.out, color.RGBA{})

		wantScale := float64(tc.out.Width) / float64(tc.src.Width)
		if s := float64(tc.out.Height) / float64(tc.src.Height); s < wantScale {
			wantScale = s
		}
		if plan.Scale != wantScale {
			t.Errorf("%v->%v: scale = %v, want exactly %v", tc.src, tc.out, plan.Scale, wantScale)
		}

		r := plan.FrameRect()
		if r.Min.X < 0 || r.Min.Y < 0 || r.Max.X > tc.out.Width || r.Max.Y > tc.out.Height {
			t.Errorf("%v->%v: frame rect %v escapes output canvas", tc.src, tc.out, r)
		}

		// Centered: borders on each axis differ by at most the rounding pixel.
		leftover := tc.out.Width - plan.Scaled.Width
		if got := plan.Offset.X*2 + plan.Scaled.Width; got != tc.out.Width && got != tc.out.Width-1 {
			t.Errorf("%v->%v: horizontal tiling off: offset %d scaled %d leftover %d",
				tc.src, tc.out, plan.Offset.X, plan.Scaled.Width, leftover)
		}
		leftover = tc.out.Height - plan.Scaled.Height
		if got := plan.Offset.Y*2 + plan.Scaled.Height; got != tc.out.Height && got != tc.out.Height-1 {
			t.Errorf("%v->%v: vertical tiling off: offset %d scaled %d leftover %d",
				tc.src, tc.out, plan.Offset.Y, plan.Scaled.Height, leftover)
		}
	}
}

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestCompositeFrame_LetterboxAndOverlay(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}

	src := geometry.Size{Width: 4, Height: 2}
	out := geometry.Size{Width: 4, Height: 4}
	plan := BuildPlan(src, &out, blue)

	ov := solidFrame(1, 1, green)
	positioned := Position(ov, plan, geometry.Rotate0, geometry.AnchorTopLeft, 0, 0, 0)

	c := NewCompositor(plan, geometry.Rotate0, positioned)
	got := c.CompositeFrame(solidFrame(4, 2, red))
	defer c.Release(got)

	if b := got.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Fatalf("output size = %v, want 4x4", b)
	}
	if px := got.RGBAAt(0, 0); px != green {
		t.Errorf("overlay pixel = %+v, want green", px)
	}
	if px := got.RGBAAt(3, 0); px != blue {
		t.Errorf("top border pixel = %+v, want background blue", px)
	}
	if px := got.RGBAAt(2, 2); px != red {
		t.Errorf("frame pixel = %+v, want red", px)
	}
	if px := got.RGBAAt(0, 3); px != blue {
		t.Errorf("bottom border pixel = %+v, want background blue", px)
	}
}

// TestCompositeFrame_RotatedSource drives the full orientation path: a
// portrait natural frame displayed landscape, overlay anchored at the visual
// top-left. The encoded buffer is display-oriented with the overlay at (0,0).
func TestCompositeFrame_RotatedSource(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}

	rot := geometry.Rotate90
	naturalFrame := solidFrame(2, 4, red)
	display := rot.Apply(geometry.Size{Width: 2, Height: 4}) // 4x2
	plan := BuildPlan(display, nil, color.RGBA{})

	ov := solidFrame(1, 1, green)
	positioned := Position(ov, plan, rot, geometry.AnchorTopLeft, 0, 0, 0)

	c := NewCompositor(plan, rot, positioned)
	got := c.CompositeFrame(naturalFrame)
	defer c.Release(got)

	if b := got.Bounds(); b.Dx() != 4 || b.Dy() != 2 {
		t.Fatalf("output size = %v, want display-oriented 4x2", b)
	}
	if px := got.RGBAAt(0, 0); px != green {
		t.Errorf("visual top-left = %+v, want green overlay", px)
	}
	if px := got.RGBAAt(3, 1); px != red {
		t.Errorf("frame pixel = %+v, want red", px)
	}
}

func TestCompositeFrame_PassThrough(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	plan := BuildPlan(geometry.Size{Width: 3, Height: 2}, nil, color.RGBA{})

	c := NewCompositor(plan, geometry.Rotate0, nil)
	frame := solidFrame(3, 2, red)
	got := c.CompositeFrame(frame)
	defer c.Release(got)

	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			if got.RGBAAt(x, y) != red {
				t.Fatalf("pass-through altered pixel (%d,%d): %+v", x, y, got.RGBAAt(x, y))
			}
		}
	}
}
