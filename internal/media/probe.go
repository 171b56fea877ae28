package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/peerwaya/watermark-kit/internal/geometry"
)

// SourceVideoInfo is the read-only track metadata derived once per job.
type SourceVideoInfo struct {
	// Natural is the sensor-order pixel size, before any display rotation.
	Natural geometry.Size
	// Rotation is the display transform stored in the container.
	Rotation geometry.Rotation
	// Duration of the stream in seconds.
	Duration float64
	// FrameRate is the nominal video frame rate.
	FrameRate float64
	// HasAudio reports whether an audio track is present.
	HasAudio bool
}

// DisplaySize is the pixel size as a viewer sees it.
func (i *SourceVideoInfo) DisplaySize() geometry.Size {
	return i.Rotation.Apply(i.Natural)
}

// Prober reads track metadata through ffprobe.
type Prober struct {
	ffprobePath string
}

// NewProber creates a Prober. An empty path defaults to "ffprobe" on PATH.
func NewProber(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath}
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
	Duration     string `json:"duration"`
	Tags         struct {
		Rotate string `json:"rotate"`
	} `json:"tags"`
	SideDataList []struct {
		Rotation int `json:"rotation"`
	} `json:"side_data_list"`
}

// Probe derives SourceVideoInfo for a source path. Returns ErrNoVideoTrack
// when no video stream exists.
func (p *Prober) Probe(ctx context.Context, path string) (*SourceVideoInfo, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	}

	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return nil, &FFmpegError{Args: args, Stderr: stderr.String(), Err: err}
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	return infoFromProbe(&out)
}

func infoFromProbe(out *probeOutput) (*SourceVideoInfo, error) {
	var video *probeStream
	info := &SourceVideoInfo{}
	for i := range out.Streams {
		switch out.Streams[i].CodecType {
		case "video":
			if video == nil {
				video = &out.Streams[i]
			}
		case "audio":
			info.HasAudio = true
		}
	}
	if video == nil || video.Width <= 0 || video.Height <= 0 {
		return nil, ErrNoVideoTrack
	}

	info.Natural = geometry.Size{Width: video.Width, Height: video.Height}
	info.Rotation = rotationFromStream(video)
	info.FrameRate = parseRate(video.AvgFrameRate)
	if info.FrameRate == 0 {
		info.FrameRate = parseRate(video.RFrameRate)
	}

	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		info.Duration = d
	} else if d, err := strconv.ParseFloat(video.Duration, 64); err == nil {
		info.Duration = d
	}

	return info, nil
}

// rotationFromStream reads the display transform from either the legacy
// rotate tag (degrees clockwise) or the display-matrix side data (which
// reports the counter-clockwise correction, hence the negation).
func rotationFromStream(s *probeStream) geometry.Rotation {
	if s.Tags.Rotate != "" {
		if deg, err := strconv.Atoi(s.Tags.Rotate); err == nil {
			if r, ok := geometry.RotationFromDegrees(deg); ok {
				return r
			}
		}
	}
	for _, sd := range s.SideDataList {
		if sd.Rotation != 0 {
			if r, ok := geometry.RotationFromDegrees(-sd.Rotation); ok {
				return r
			}
		}
	}
	return geometry.Rotate0
}

// parseRate parses an ffprobe rational like "30000/1001" or "25/1".
func parseRate(s string) float64 {
	if s == "" || s == "0/0" {
		return 0
	}
	num, den, found := strings.Cut(s, "/")
	if !found {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
