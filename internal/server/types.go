// Package server provides the HTTP surface of the watermarking service.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// CreateJobRequest is the HTTP request body for creating a new compositing job.
// At most one of overlay_image_base64 and overlay_text may be set; with
// neither, the job is a pass-through re-encode (still useful for letterboxing
// or codec changes).
type CreateJobRequest struct {
	// SourcePath is the input video or still image on the server filesystem.
	SourcePath string `json:"source_path" validate:"required"`
	// OutputPath is the explicit output file. Empty means a generated path.
	OutputPath string `json:"output_path,omitempty"`

	// OverlayImageBase64 is a base64-encoded PNG, JPEG or GIF watermark.
	OverlayImageBase64 string `json:"overlay_image_base64,omitempty" validate:"omitempty,base64"`
	// OverlayText is a text watermark rendered with the built-in font.
	OverlayText string `json:"overlay_text,omitempty"`
	// FontSize in points for text overlays. Zero means the default.
	FontSize float64 `json:"font_size,omitempty" validate:"omitempty,gt=0,lte=512"`
	// TextColor is an "r,g,b" or "r,g,b,a" byte string for text overlays.
	TextColor string `json:"text_color,omitempty"`

	// Anchor places the overlay against a canvas corner or the center.
	Anchor string `json:"anchor,omitempty" validate:"omitempty,oneof=topLeft topRight bottomLeft bottomRight center"`
	// Margin insets the overlay from the anchored corner.
	Margin float64 `json:"margin,omitempty" validate:"omitempty,min=0"`
	// MarginUnit is "pixels" or "percent" (of the minimum canvas dimension).
	MarginUnit string `json:"margin_unit,omitempty" validate:"omitempty,oneof=pixels percent"`
	// OffsetX and OffsetY shift the overlay from its anchored position.
	OffsetX float64 `json:"offset_x,omitempty"`
	OffsetY float64 `json:"offset_y,omitempty"`
	// OffsetUnit is "pixels" or "percent" (of the axis the offset moves along).
	OffsetUnit string `json:"offset_unit,omitempty" validate:"omitempty,oneof=pixels percent"`

	// WidthPercent scales the overlay to this percentage of the canvas width.
	WidthPercent float64 `json:"width_percent,omitempty" validate:"omitempty,gt=0,lte=100"`
	// Opacity of the overlay in (0,1].
	Opacity float64 `json:"opacity,omitempty" validate:"omitempty,gt=0,lte=1"`

	// OutputWidth and OutputHeight letterbox the source into this canvas.
	// Both or neither must be set.
	OutputWidth  int `json:"output_width,omitempty" validate:"omitempty,min=1,max=7680"`
	OutputHeight int `json:"output_height,omitempty" validate:"omitempty,min=1,max=7680"`
	// Background is the letterbox fill as an "r,g,b" byte string.
	Background string `json:"background,omitempty"`

	// Codec selects the output video codec.
	Codec string `json:"codec,omitempty" validate:"omitempty,oneof=h264 hevc"`
	// Bitrate in bits/sec. Zero means the quality-based estimate.
	Bitrate int `json:"bitrate,omitempty" validate:"omitempty,min=0"`
	// FrameRateCap caps the output frame rate when positive.
	FrameRateCap float64 `json:"frame_rate_cap,omitempty" validate:"omitempty,gt=0,lte=240"`

	// PublishToS3 uploads the finished output when S3 is configured.
	PublishToS3 bool `json:"publish_to_s3"`
}

// CreateJobResponse is the HTTP response after creating a job.
type CreateJobResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
	// OutputPath is where the finished file will land.
	OutputPath string `json:"output_path"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// Status is the current job status.
	Status string `json:"status"`
	// Progress is the fractional completion in [0,1].
	Progress float64 `json:"progress"`
	// ETASeconds is the estimated media time remaining.
	ETASeconds float64 `json:"eta_seconds"`
	// Error contains the failure message if the job failed.
	Error string `json:"error,omitempty"`
	// ErrorKind is the coarse error code if the job failed.
	ErrorKind string `json:"error_kind,omitempty"`
	// OutputPath is the finished file (set once completed).
	OutputPath string `json:"output_path,omitempty"`
	// Width and Height are the final encoded dimensions (set once completed).
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
	// DurationMs is the output duration in milliseconds (set once completed).
	DurationMs int64 `json:"duration_ms,omitempty"`
	// URL is the S3 location when the output was published.
	URL string `json:"url,omitempty"`
}

// UploadResponse is the HTTP response after uploading a file.
type UploadResponse struct {
	// Path is the server-local path of the stored file, usable as a job's
	// source_path.
	Path string `json:"path"`
}

// CleanupRequest is the HTTP request body for deleting stored files.
type CleanupRequest struct {
	// Paths are the server-local paths to remove.
	Paths []string `json:"paths"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
