// Package pipeline wires probing, decoding, compositing and encoding into the
// per-job frame loop. It implements the job.Runner port: one Run call takes a
// source file to a finished output, polling cancellation at frame boundaries
// and reporting progress as media time advances.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peerwaya/watermark-kit/internal/compose"
	"github.com/peerwaya/watermark-kit/internal/geometry"
	"github.com/peerwaya/watermark-kit/internal/imagemark"
	"github.com/peerwaya/watermark-kit/internal/job"
	"github.com/peerwaya/watermark-kit/internal/media"
	"github.com/peerwaya/watermark-kit/internal/overlay"
)

// encoderBackoff is how long the frame loop sleeps when the encoder queue is
// full. Short enough to stay responsive, long enough to avoid spinning.
const encoderBackoff = 2 * time.Millisecond

// defaultFrameRate is assumed when probing cannot determine a rate.
const defaultFrameRate = 30.0

// frameSource yields decoded frames in presentation order.
type frameSource interface {
	ReadFrame(*image.RGBA) error
}

// frameSink accepts composited frames and exposes a readiness signal so the
// loop can back off instead of blocking or dropping.
type frameSink interface {
	Ready() bool
	Submit(*image.RGBA) error
}

// Pipeline executes compositing jobs. Safe for concurrent use; all per-job
// state lives in Run.
type Pipeline struct {
	prober   *media.Prober
	renderer *overlay.Renderer
	ffmpeg   string
	logger   *slog.Logger
}

// Config configures a Pipeline.
type Config struct {
	// FFmpegPath is the ffmpeg binary; empty means "ffmpeg" on PATH.
	FFmpegPath string
	// FFprobePath is the ffprobe binary; empty means "ffprobe" on PATH.
	FFprobePath string
	// Logger for per-job events. Nil means slog.Default.
	Logger *slog.Logger
}

// New creates a Pipeline. Fails only if the embedded overlay font cannot be
// parsed.
func New(cfg Config) (*Pipeline, error) {
	renderer, err := overlay.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("overlay renderer: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		prober:   media.NewProber(cfg.FFprobePath),
		renderer: renderer,
		ffmpeg:   cfg.FFmpegPath,
		logger:   logger,
	}, nil
}

// Run executes one job: probe, plan, resolve the overlay once, then stream
// frames decode -> composite -> encode until the source is exhausted or
// cancellation is observed.
func (p *Pipeline) Run(ctx context.Context, req job.ComposeRequest, outputPath string, cancelled func() bool, progress func(fraction, etaSeconds float64)) (*job.Result, error) {
	if isImageSource(req.SourcePath) {
		return imagemark.Compose(p.renderer, req, outputPath)
	}

	info, err := p.prober.Probe(ctx, req.SourcePath)
	if err != nil {
		if errors.Is(err, media.ErrNoVideoTrack) {
			return nil, job.NewError(job.KindNoVideoTrack, "probing source", err)
		}
		return nil, job.NewError(job.KindReaderSetupFailed, "probing source", err)
	}

	fps := info.FrameRate
	if fps <= 0 {
		fps = defaultFrameRate
	}
	capped := req.FrameRateCap > 0 && req.FrameRateCap < fps
	if capped {
		fps = req.FrameRateCap
	}

	plan := compose.BuildPlan(info.DisplaySize(), req.OutputSize, req.Background)

	overlayImg, err := p.renderer.Resolve(req.Overlay, plan.Output, req.WidthPercent, req.Opacity)
	if err != nil {
		return nil, job.NewError(job.KindOverlayDecodeFailed, "resolving overlay", err)
	}

	marginPx := geometry.ResolveUnit(req.Margin, req.MarginUnit, plan.Output.Min())
	offsetX := geometry.ResolveUnit(req.OffsetX, req.OffsetUnit, plan.Output.Width)
	offsetY := geometry.ResolveUnit(req.OffsetY, req.OffsetUnit, plan.Output.Height)
	positioned := compose.Position(overlayImg, plan, info.Rotation, req.Anchor, marginPx, offsetX, offsetY)
	compositor := compose.NewCompositor(plan, info.Rotation, positioned)

	decoderRate := 0.0
	if capped {
		decoderRate = fps
	}
	decoder, err := media.NewDecoder(ctx, media.DecoderConfig{
		FFmpegPath: p.ffmpeg,
		SourcePath: req.SourcePath,
		Width:      info.Natural.Width,
		Height:     info.Natural.Height,
		FrameRate:  decoderRate,
	})
	if err != nil {
		return nil, job.NewError(job.KindReaderSetupFailed, "starting decoder", err)
	}

	audioSource := ""
	if info.HasAudio {
		audioSource = req.SourcePath
	}
	encoder, err := media.NewEncoder(ctx, media.EncoderConfig{
		FFmpegPath:      p.ffmpeg,
		OutputPath:      outputPath,
		AudioSourcePath: audioSource,
		Width:           plan.Output.Width,
		Height:          plan.Output.Height,
		FrameRate:       fps,
		Codec:           req.Codec,
		Bitrate:         req.Bitrate,
	})
	if err != nil {
		_ = decoder.Close()
		return nil, job.NewError(job.KindWriterSetupFailed, "starting encoder", err)
	}

	p.logger.Info("frame loop starting",
		slog.String("source", req.SourcePath),
		slog.Int("width", plan.Output.Width),
		slog.Int("height", plan.Output.Height),
		slog.Float64("fps", fps),
		slog.Int("rotation", int(info.Rotation)),
	)

	frames, err := p.frameLoop(info, fps, decoder, encoder, compositor, cancelled, progress)
	if err != nil {
		_ = decoder.Close()
		encoder.Abort()
		_ = removeQuiet(outputPath)
		return nil, err
	}

	if err := decoder.Close(); err != nil {
		// Frames already flowed; a stderr complaint at teardown is logged,
		// not fatal.
		p.logger.Warn("decoder teardown", slog.String("error", err.Error()))
	}
	if err := encoder.Finish(); err != nil {
		_ = removeQuiet(outputPath)
		return nil, job.NewError(job.KindEncodeFailed, "finalizing output", err)
	}

	durationMs := int64(float64(frames) / fps * 1000)
	p.logger.Info("job finished",
		slog.String("output", outputPath),
		slog.Int64("frames", frames),
		slog.Int64("duration_ms", durationMs),
	)
	return &job.Result{
		OutputPath: outputPath,
		Width:      plan.Output.Width,
		Height:     plan.Output.Height,
		DurationMs: durationMs,
		Codec:      req.Codec,
	}, nil
}

// frameLoop streams frames until EOF or cancellation, returning the number of
// frames submitted to the encoder.
func (p *Pipeline) frameLoop(info *media.SourceVideoInfo, fps float64, decoder frameSource, encoder frameSink, compositor *compose.Compositor, cancelled func() bool, progress func(fraction, etaSeconds float64)) (int64, error) {
	frame := image.NewRGBA(image.Rect(0, 0, info.Natural.Width, info.Natural.Height))
	var frames int64

	for {
		if cancelled() {
			return frames, job.NewError(job.KindCancelled, "cancelled at frame boundary", nil)
		}

		err := decoder.ReadFrame(frame)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// A truncated trailing frame is treated the same as a clean EOF.
			return frames, nil
		}
		if err != nil {
			return frames, job.NewError(job.KindInternal, "reading frame", err)
		}

		out := compositor.CompositeFrame(frame)
		err = p.submit(encoder, out, cancelled)
		compositor.Release(out)
		if err != nil {
			return frames, err
		}
		frames++

		if info.Duration > 0 {
			// Probed duration and frame rate are both approximations, so pts
			// can overshoot the duration near the end of the stream.
			pts := float64(frames) / fps
			fraction := pts / info.Duration
			if fraction > 1 {
				fraction = 1
			}
			eta := info.Duration - pts
			if eta < 0 {
				eta = 0
			}
			progress(fraction, eta)
		}
	}
}

// submit queues one frame, consulting the encoder's readiness signal and
// backing off while it is saturated. Cancellation remains observable during
// backoff. A busy error from Submit itself is treated like a false Ready:
// the queue filled between the check and the send.
func (p *Pipeline) submit(encoder frameSink, out *image.RGBA, cancelled func() bool) error {
	for {
		if encoder.Ready() {
			err := encoder.Submit(out)
			if err == nil {
				return nil
			}
			if !errors.Is(err, media.ErrEncoderBusy) {
				return job.NewError(job.KindEncodeFailed, "submitting frame", err)
			}
		}
		if cancelled() {
			return job.NewError(job.KindCancelled, "cancelled during encoder backoff", nil)
		}
		time.Sleep(encoderBackoff)
	}
}

// isImageSource routes still images through the single-frame path.
func isImageSource(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return true
	}
	return false
}

func removeQuiet(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
