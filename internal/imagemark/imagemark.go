// Package imagemark applies the overlay pipeline to still images: one decode,
// one composite, one encode. It reuses the video planner and compositor so
// placement and letterboxing behave identically across both source types.
package imagemark

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"

	"github.com/peerwaya/watermark-kit/internal/compose"
	"github.com/peerwaya/watermark-kit/internal/geometry"
	"github.com/peerwaya/watermark-kit/internal/job"
	"github.com/peerwaya/watermark-kit/internal/overlay"
)

const jpegQuality = 90

// Compose watermarks a single still image and writes it to outputPath. The
// output format follows the output extension; unknown extensions encode PNG.
// Still images carry no display rotation, so the whole plan runs at Rotate0.
func Compose(renderer *overlay.Renderer, req job.ComposeRequest, outputPath string) (*job.Result, error) {
	src, err := decodeSource(req.SourcePath)
	if err != nil {
		return nil, job.NewError(job.KindReaderSetupFailed, "decoding source image", err)
	}

	b := src.Bounds()
	sourceSize := geometry.Size{Width: b.Dx(), Height: b.Dy()}
	plan := compose.BuildPlan(sourceSize, req.OutputSize, req.Background)

	overlayImg, err := renderer.Resolve(req.Overlay, plan.Output, req.WidthPercent, req.Opacity)
	if err != nil {
		return nil, job.NewError(job.KindOverlayDecodeFailed, "resolving overlay", err)
	}

	marginPx := geometry.ResolveUnit(req.Margin, req.MarginUnit, plan.Output.Min())
	offsetX := geometry.ResolveUnit(req.OffsetX, req.OffsetUnit, plan.Output.Width)
	offsetY := geometry.ResolveUnit(req.OffsetY, req.OffsetUnit, plan.Output.Height)
	positioned := compose.Position(overlayImg, plan, geometry.Rotate0, req.Anchor, marginPx, offsetX, offsetY)
	compositor := compose.NewCompositor(plan, geometry.Rotate0, positioned)

	frame := image.NewRGBA(image.Rect(0, 0, sourceSize.Width, sourceSize.Height))
	draw.Draw(frame, frame.Bounds(), src, b.Min, draw.Src)

	out := compositor.CompositeFrame(frame)
	defer compositor.Release(out)

	if err := encodeOutput(outputPath, out); err != nil {
		return nil, job.NewError(job.KindEncodeFailed, "writing output image", err)
	}

	return &job.Result{
		OutputPath: outputPath,
		Width:      plan.Output.Width,
		Height:     plan.Output.Height,
	}, nil
}

func decodeSource(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func encodeOutput(path string, img *image.RGBA) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality})
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		return err
	}
	return f.Close()
}
