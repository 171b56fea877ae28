package overlay

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/peerwaya/watermark-kit/internal/geometry"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

func TestSource_IsZero(t *testing.T) {
	if !(Source{}).IsZero() {
		t.Error("zero Source should report IsZero")
	}
	if !FromText("", Style{}).IsZero() {
		t.Error("empty text should report IsZero")
	}
	if FromText("hi", Style{}).IsZero() {
		t.Error("text source should not report IsZero")
	}
	if FromImage([]byte{1}).IsZero() {
		t.Error("image source should not report IsZero")
	}
}

func TestResolve_None(t *testing.T) {
	r := newRenderer(t)
	img, err := r.Resolve(Source{}, geometry.Size{Width: 1920, Height: 1080}, 20, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img != nil {
		t.Error("expected nil image for empty source")
	}
}

func TestResolve_Image(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	r := newRenderer(t)

	img, err := r.Resolve(FromImage(encodePNG(t, src)), geometry.Size{Width: 100, Height: 100}, 0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 2 {
		t.Errorf("resolved size = %dx%d, want 4x2", b.Dx(), b.Dy())
	}
}

func TestResolve_ImageScaledToWidthPercent(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 20))
	r := newRenderer(t)

	img, err := r.Resolve(FromImage(encodePNG(t, src)), geometry.Size{Width: 1000, Height: 500}, 10, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("scaled size = %dx%d, want 100x50 (10%% of canvas width, aspect kept)", b.Dx(), b.Dy())
	}
}

func TestResolve_DecodeFailure(t *testing.T) {
	r := newRenderer(t)
	_, err := r.Resolve(FromImage([]byte("not an image")), geometry.Size{Width: 100, Height: 100}, 0, 1)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestResolve_Opacity(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range src.Pix {
		src.Pix[i] = 200
	}
	r := newRenderer(t)

	img, err := r.Resolve(FromImage(encodePNG(t, src)), geometry.Size{Width: 100, Height: 100}, 0, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range img.Pix {
		if v != 100 {
			t.Fatalf("pix[%d] = %d, want 100 after 0.5 opacity", i, v)
		}
	}
}

func TestResolve_Text(t *testing.T) {
	r := newRenderer(t)

	img, err := r.Resolve(FromText("watermark", Style{FontSize: 24, Color: "255,0,0"}), geometry.Size{Width: 1920, Height: 1080}, 0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img == nil {
		t.Fatal("expected rendered image")
	}

	// Something must actually have been drawn.
	opaque := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y).A > 0 {
				opaque++
			}
		}
	}
	if opaque == 0 {
		t.Error("rendered text produced no visible pixels")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"", color.RGBA{255, 255, 255, 255}},
		{"255,0,0", color.RGBA{255, 0, 0, 255}},
		{"10, 20, 30, 40", color.RGBA{10, 20, 30, 40}},
		{"300,-5,0", color.RGBA{255, 0, 0, 255}},
		{"nonsense", color.RGBA{255, 255, 255, 255}},
	}
	for _, tt := range tests {
		if got := ParseColor(tt.in); got != tt.want {
			t.Errorf("ParseColor(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
