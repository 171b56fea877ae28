package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"sync"
)

// encoderQueueDepth bounds how many composited frames may sit between the
// pipeline and the ffmpeg stdin writer. A short queue keeps memory flat and
// makes Ready a meaningful backpressure signal.
const encoderQueueDepth = 4

// Encoder is the encode/mux half of the codec service: it accepts composited
// RGBA buffers in presentation order, encodes them at the configured codec
// and bitrate, and interleaves the source's audio track untouched. Readiness
// is exposed so the pipeline can back off instead of blocking or dropping.
type Encoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	args   []string

	frameSize int
	frames    chan []byte
	done      chan struct{}
	pool      sync.Pool

	mu       sync.Mutex
	closed   bool
	writeErr error
}

// EncoderConfig configures an encode session.
type EncoderConfig struct {
	// FFmpegPath is the ffmpeg binary; empty means "ffmpeg" on PATH.
	FFmpegPath string
	// OutputPath is the target container file.
	OutputPath string
	// AudioSourcePath, when non-empty, is muxed in as a best-effort audio
	// passthrough (stream copy, original order, no resync).
	AudioSourcePath string
	// Width and Height are the final encoded dimensions.
	Width, Height int
	// FrameRate of the submitted frames.
	FrameRate float64
	// Codec selects h264 or hevc.
	Codec Codec
	// Bitrate in bits/sec. Zero means EstimateBitrate.
	Bitrate int
}

// NewEncoder starts the encode process and its writer goroutine.
func NewEncoder(ctx context.Context, cfg EncoderConfig) (*Encoder, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, cfg.Width, cfg.Height)
	}
	ffmpeg := cfg.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	bitrate := cfg.Bitrate
	if bitrate <= 0 {
		bitrate = EstimateBitrate(cfg.Width, cfg.Height, cfg.FrameRate)
	}
	fps := cfg.FrameRate
	if fps <= 0 {
		fps = 30
	}

	args := []string{
		"-y",
		"-v", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "-",
	}
	if cfg.AudioSourcePath != "" {
		args = append(args, "-i", cfg.AudioSourcePath)
	}
	args = append(args, "-map", "0:v")
	if cfg.AudioSourcePath != "" {
		args = append(args, "-map", "1:a?", "-c:a", "copy")
	}
	args = append(args,
		"-c:v", cfg.Codec.encoderName(),
	)
	if cfg.Codec == CodecHEVC {
		args = append(args, "-tag:v", "hvc1")
	}
	args = append(args,
		"-b:v", strconv.Itoa(bitrate),
		"-pix_fmt", "yuv420p",
		"-preset", "medium",
		"-movflags", "+faststart",
		cfg.OutputPath,
	)

	// #nosec G204 - binary path is set by the application, not user input
	cmd := exec.CommandContext(ctx, ffmpeg, args...)
	e := &Encoder{
		cmd:       cmd,
		args:      args,
		frameSize: cfg.Width * cfg.Height * 4,
		frames:    make(chan []byte, encoderQueueDepth),
		done:      make(chan struct{}),
	}
	e.pool.New = func() any {
		return make([]byte, e.frameSize)
	}
	cmd.Stderr = &e.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder stdin pipe: %w", err)
	}
	e.stdin = stdin

	if err := cmd.Start(); err != nil {
		return nil, &FFmpegError{Args: args, Stderr: e.stderr.String(), Err: err}
	}

	go e.writeLoop()
	return e, nil
}

// writeLoop pumps queued frames into ffmpeg. On a write failure it keeps
// draining so producers never block on a dead encoder; the error surfaces
// through Submit and Finish.
func (e *Encoder) writeLoop() {
	defer close(e.done)
	for buf := range e.frames {
		e.mu.Lock()
		failed := e.writeErr != nil
		e.mu.Unlock()

		if !failed {
			if _, err := e.stdin.Write(buf); err != nil {
				e.mu.Lock()
				e.writeErr = err
				e.mu.Unlock()
			}
		}
		e.pool.Put(buf) //nolint:staticcheck // buf is a slice from this pool
	}
}

// Ready reports whether the encoder can accept another frame right now.
// A false result is backpressure, not an error.
func (e *Encoder) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed && len(e.frames) < cap(e.frames)
}

// Submit queues one composited frame. The pixel data is copied, so the caller
// may reuse img immediately. Returns ErrEncoderBusy when the queue is full.
func (e *Encoder) Submit(img *image.RGBA) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEncoderClosed
	}
	if e.writeErr != nil {
		err := e.writeErr
		e.mu.Unlock()
		return fmt.Errorf("encoder write failed: %w", err)
	}
	e.mu.Unlock()

	if len(img.Pix) < e.frameSize {
		return fmt.Errorf("%w: frame buffer %d bytes, need %d", ErrInvalidDimensions, len(img.Pix), e.frameSize)
	}

	buf := e.pool.Get().([]byte)
	copy(buf, img.Pix[:e.frameSize])

	select {
	case e.frames <- buf:
		return nil
	default:
		e.pool.Put(buf) //nolint:staticcheck // buf is a slice from this pool
		return ErrEncoderBusy
	}
}

// Finish marks the input as complete, waits for all queued frames to be
// written, and finalizes the container. Exactly one of Finish or Abort must
// be called.
func (e *Encoder) Finish() error {
	e.closeQueue()
	<-e.done
	_ = e.stdin.Close()

	waitErr := e.cmd.Wait()

	e.mu.Lock()
	writeErr := e.writeErr
	e.mu.Unlock()

	if waitErr != nil {
		return &FFmpegError{Args: e.args, Stderr: e.stderr.String(), Err: waitErr}
	}
	if writeErr != nil {
		return &FFmpegError{Args: e.args, Stderr: e.stderr.String(), Err: writeErr}
	}
	return nil
}

// Abort tears the encode session down without finalizing the container.
// Used on cancellation; the partial output file is the caller's to delete.
func (e *Encoder) Abort() {
	e.closeQueue()
	<-e.done
	_ = e.stdin.Close()
	if e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	_ = e.cmd.Wait()
}

func (e *Encoder) closeQueue() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.frames)
	}
}
