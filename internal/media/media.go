// Package media adapts the external codec service (ffmpeg/ffprobe CLIs) for
// the frame pipeline: probing source metadata, streaming decoded RGBA frames,
// and encoding/muxing composited frames with audio passthrough. The package
// never touches pixels beyond moving raw bytes.
package media

import (
	"errors"
	"fmt"
)

// Static errors for media operations.
var (
	// ErrNoVideoTrack is returned when the source has no decodable video stream.
	ErrNoVideoTrack = errors.New("source has no video track")
	// ErrInvalidDimensions is returned when dimensions are not positive.
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")
	// ErrEncoderClosed is returned when a frame is submitted after Finish or Abort.
	ErrEncoderClosed = errors.New("encoder already finished")
	// ErrEncoderBusy is returned by a non-blocking submit when the encoder
	// input queue is full. Not fatal: the caller backs off and retries.
	ErrEncoderBusy = errors.New("encoder input not ready")
)

// Codec selects the output video codec.
type Codec string

const (
	CodecH264 Codec = "h264"
	CodecHEVC Codec = "hevc"
)

// IsValid returns true if the codec is one of the recognized values.
func (c Codec) IsValid() bool {
	return c == CodecH264 || c == CodecHEVC
}

// encoderName maps a Codec onto the ffmpeg encoder to use.
func (c Codec) encoderName() string {
	if c == CodecHEVC {
		return "libx265"
	}
	return "libx264"
}

// EstimateBitrate returns the constant-quality heuristic bitrate in bits/sec
// for the given output dimensions and frame rate:
// max(500_000, 0.08 * width * height * max(24, fps)).
func EstimateBitrate(width, height int, fps float64) int {
	if fps < 24 {
		fps = 24
	}
	bitrate := int(0.08 * float64(width) * float64(height) * fps)
	if bitrate < 500_000 {
		return 500_000
	}
	return bitrate
}

// FFmpegError carries the failed command's arguments and stderr so operators
// can see what the codec service rejected.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
