package media

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/peerwaya/watermark-kit/internal/geometry"
)

func TestEstimateBitrate(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
		fps    float64
		want   int
	}{
		{"1080p30", 1920, 1080, 30, 4_976_640},
		{"fps floor at 24", 1920, 1080, 10, int(0.08 * 1920 * 1080 * 24)},
		{"clamped to minimum", 160, 120, 24, 500_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateBitrate(tt.width, tt.height, tt.fps)
			if got != tt.want {
				t.Errorf("EstimateBitrate(%d, %d, %v) = %d, want %d", tt.width, tt.height, tt.fps, got, tt.want)
			}
		})
	}
}

func TestCodec_IsValid(t *testing.T) {
	if !CodecH264.IsValid() || !CodecHEVC.IsValid() {
		t.Error("expected h264 and hevc to be valid")
	}
	if Codec("vp9").IsValid() {
		t.Error("expected vp9 to be invalid")
	}
}

func parseProbe(t *testing.T, raw string) *probeOutput {
	t.Helper()
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	return &out
}

func TestInfoFromProbe_RotatedPortrait(t *testing.T) {
	out := parseProbe(t, `{
		"streams": [
			{
				"codec_type": "video",
				"width": 1080,
				"height": 1920,
				"avg_frame_rate": "30000/1001",
				"side_data_list": [{"rotation": -90}]
			},
			{"codec_type": "audio"}
		],
		"format": {"duration": "12.480000"}
	}`)

	info, err := infoFromProbe(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Natural != (geometry.Size{Width: 1080, Height: 1920}) {
		t.Errorf("natural = %+v", info.Natural)
	}
	if info.Rotation != geometry.Rotate90 {
		t.Errorf("rotation = %d, want 90", info.Rotation)
	}
	if info.DisplaySize() != (geometry.Size{Width: 1920, Height: 1080}) {
		t.Errorf("display size = %+v", info.DisplaySize())
	}
	if !info.HasAudio {
		t.Error("expected audio track")
	}
	if info.Duration != 12.48 {
		t.Errorf("duration = %v", info.Duration)
	}
	if info.FrameRate < 29.96 || info.FrameRate > 29.98 {
		t.Errorf("frame rate = %v, want ~29.97", info.FrameRate)
	}
}

func TestInfoFromProbe_RotateTag(t *testing.T) {
	out := parseProbe(t, `{
		"streams": [
			{
				"codec_type": "video",
				"width": 1920,
				"height": 1080,
				"avg_frame_rate": "25/1",
				"tags": {"rotate": "180"}
			}
		],
		"format": {"duration": "3.0"}
	}`)

	info, err := infoFromProbe(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Rotation != geometry.Rotate180 {
		t.Errorf("rotation = %d, want 180", info.Rotation)
	}
	if info.HasAudio {
		t.Error("expected no audio track")
	}
	if info.FrameRate != 25 {
		t.Errorf("frame rate = %v, want 25", info.FrameRate)
	}
}

func TestInfoFromProbe_NoVideoTrack(t *testing.T) {
	out := parseProbe(t, `{
		"streams": [{"codec_type": "audio"}],
		"format": {"duration": "3.0"}
	}`)

	_, err := infoFromProbe(out)
	if !errors.Is(err, ErrNoVideoTrack) {
		t.Fatalf("expected ErrNoVideoTrack, got %v", err)
	}
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"25/1", 25},
		{"30", 30},
		{"0/0", 0},
		{"", 0},
		{"bad/1", 0},
	}
	for _, tt := range tests {
		if got := parseRate(tt.in); got != tt.want {
			t.Errorf("parseRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
