package job

import (
	"image/color"

	"github.com/peerwaya/watermark-kit/internal/geometry"
	"github.com/peerwaya/watermark-kit/internal/media"
	"github.com/peerwaya/watermark-kit/internal/overlay"
)

// ComposeRequest is the immutable per-job configuration. Exactly one of the
// overlay image or overlay text is meaningful; with neither, the job is a
// pure pass-through re-encode.
type ComposeRequest struct {
	// SourcePath is the input video (or still image) file.
	SourcePath string
	// OutputPath is the explicit output file. Empty means a generated path
	// in the service's output directory.
	OutputPath string

	// Overlay is the overlay source: image bytes, text+style, or none.
	Overlay overlay.Source

	// Anchor places the overlay against a canvas corner or the center.
	Anchor geometry.Anchor
	// Margin inset from the anchored corner, in MarginUnit. Percent margins
	// resolve against the minimum canvas dimension.
	Margin     float64
	MarginUnit geometry.Unit
	// OffsetX/OffsetY shift the overlay from its anchored position, in
	// OffsetUnit. Percent offsets resolve against the axis they move along.
	OffsetX    float64
	OffsetY    float64
	OffsetUnit geometry.Unit
	// WidthPercent, when positive, scales the overlay so its width is this
	// percentage of the output canvas width.
	WidthPercent float64
	// Opacity of the overlay in [0,1].
	Opacity float64

	// OutputSize, when non-nil, letterboxes the source into this canvas.
	// Nil means no aspect change.
	OutputSize *geometry.Size
	// Background fills letterbox borders.
	Background color.RGBA

	// Codec selects the output codec.
	Codec media.Codec
	// Bitrate in bits/sec. Zero means the constant-quality estimate.
	Bitrate int
	// FrameRateCap, when positive, caps the output frame rate.
	FrameRateCap float64

	// PublishToS3 uploads the finished output when S3 storage is configured.
	PublishToS3 bool
}

// Normalize fills defaults so the pipeline never branches on zero values.
func (r *ComposeRequest) Normalize() {
	if r.Anchor == "" {
		r.Anchor = geometry.AnchorBottomRight
	}
	if r.MarginUnit == "" {
		r.MarginUnit = geometry.UnitPixels
	}
	if r.OffsetUnit == "" {
		r.OffsetUnit = geometry.UnitPixels
	}
	if r.Opacity <= 0 || r.Opacity > 1 {
		r.Opacity = 1
	}
	if r.Codec == "" {
		r.Codec = media.CodecH264
	}
	if r.Background.A == 0 {
		r.Background = color.RGBA{A: 255} // opaque black
	}
}

// Result is the terminal payload of a successful job.
type Result struct {
	// JobID correlates the result with the original request.
	JobID string
	// OutputPath is the finished media file.
	OutputPath string
	// Width and Height are the final encoded dimensions.
	Width  int
	Height int
	// DurationMs is the output duration in milliseconds.
	DurationMs int64
	// Codec actually used.
	Codec media.Codec
	// URL is the S3 location when the output was published.
	URL string
}
