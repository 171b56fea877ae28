package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
)

// Decoder streams decoded frames from the source as raw RGBA in natural
// (as-stored) orientation, one sequential ReadFrame call per frame. It is the
// demux/decode half of the codec service.
type Decoder struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	args   []string

	width  int
	height int
}

// DecoderConfig configures a decode session.
type DecoderConfig struct {
	// FFmpegPath is the ffmpeg binary; empty means "ffmpeg" on PATH.
	FFmpegPath string
	// SourcePath is the input media file.
	SourcePath string
	// Width and Height are the natural pixel dimensions from probing.
	Width, Height int
	// FrameRate, when positive, resamples decode to this rate (frame-rate cap).
	FrameRate float64
}

// NewDecoder starts the decode process. The returned Decoder must be closed.
func NewDecoder(ctx context.Context, cfg DecoderConfig) (*Decoder, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, cfg.Width, cfg.Height)
	}
	ffmpeg := cfg.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}

	// -noautorotate keeps frames in natural orientation; the compositor owns
	// the display transform.
	args := []string{
		"-v", "error",
		"-noautorotate",
		"-i", cfg.SourcePath,
	}
	if cfg.FrameRate > 0 {
		args = append(args, "-vf", "fps="+strconv.FormatFloat(cfg.FrameRate, 'f', -1, 64))
	}
	args = append(args,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-an",
		"-",
	)

	// #nosec G204 - binary path is set by the application, not user input
	cmd := exec.CommandContext(ctx, ffmpeg, args...)
	d := &Decoder{cmd: cmd, args: args, width: cfg.Width, height: cfg.Height}
	cmd.Stderr = &d.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder stdout pipe: %w", err)
	}
	d.stdout = stdout

	if err := cmd.Start(); err != nil {
		return nil, &FFmpegError{Args: args, Stderr: d.stderr.String(), Err: err}
	}
	return d, nil
}

// FrameSize returns the byte length of one raw RGBA frame.
func (d *Decoder) FrameSize() int {
	return d.width * d.height * 4
}

// ReadFrame reads the next frame into img, which must be sized
// width x height. Returns io.EOF when the stream is exhausted. A short read
// mid-frame is reported as io.ErrUnexpectedEOF; the pipeline treats both as
// end-of-stream.
func (d *Decoder) ReadFrame(img *image.RGBA) error {
	if b := img.Bounds(); b.Dx() != d.width || b.Dy() != d.height {
		return fmt.Errorf("%w: frame buffer %dx%d, decoder %dx%d",
			ErrInvalidDimensions, b.Dx(), b.Dy(), d.width, d.height)
	}
	_, err := io.ReadFull(d.stdout, img.Pix[:d.FrameSize()])
	return err
}

// Close stops the decode process. Safe to call after EOF or mid-stream (for
// cancellation); a non-zero exit after a deliberate early stop is not an
// error.
func (d *Decoder) Close() error {
	_ = d.stdout.Close()
	err := d.cmd.Wait()
	if err != nil && d.cmd.ProcessState != nil && !d.cmd.ProcessState.Success() {
		// Early pipe close makes ffmpeg exit non-zero; only surface stderr
		// content, which indicates a real decode failure.
		if d.stderr.Len() > 0 {
			return &FFmpegError{Args: d.args, Stderr: d.stderr.String(), Err: err}
		}
	}
	return nil
}
