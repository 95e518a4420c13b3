// Package mediainfo derives media descriptors from source files via ffprobe.
package mediainfo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

// Prober extracts format metadata with ffprobe.
type Prober struct {
	ffprobePath string
}

// NewProber creates a prober using the ffprobe binary at the given path.
func NewProber(ffprobePath string) *Prober {
	return &Prober{ffprobePath: ffprobePath}
}

type probeOutput struct {
	Format  formatInfo   `json:"format"`
	Streams []streamInfo `json:"streams"`
}

type formatInfo struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
}

type streamInfo struct {
	CodecType     string `json:"codec_type"`
	CodecName     string `json:"codec_name"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	AvgFrameRate  string `json:"avg_frame_rate"`
	BitsPerSample int    `json:"bits_per_raw_sample,string"`
}

// Probe runs ffprobe against path and maps the output to a MediaDescriptor.
func (p *Prober) Probe(ctx context.Context, path string) (*models.MediaDescriptor, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, stderr.String())
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	return descriptorFrom(out), nil
}

func descriptorFrom(out probeOutput) *models.MediaDescriptor {
	desc := &models.MediaDescriptor{
		Container: containerName(out.Format.FormatName),
	}

	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		desc.DurationSeconds = d
	}
	if b, err := strconv.ParseInt(out.Format.BitRate, 10, 64); err == nil {
		desc.Bitrate = b
	}

	for _, stream := range out.Streams {
		switch stream.CodecType {
		case "video":
			if desc.VideoCodec != "" {
				continue
			}
			desc.VideoCodec = stream.CodecName
			desc.Width = stream.Width
			desc.Height = stream.Height
			desc.FrameRate = parseFrameRate(stream.AvgFrameRate)
			desc.BitDepth = stream.BitsPerSample
		case "audio":
			if desc.AudioCodec == "" {
				desc.AudioCodec = stream.CodecName
			}
		}
	}

	if desc.BitDepth == 0 {
		desc.BitDepth = 8
	}

	return desc
}

// parseFrameRate converts ffprobe's "num/den" rational to a float.
func parseFrameRate(rate string) float64 {
	parts := strings.Split(rate, "/")
	if len(parts) != 2 {
		return 0
	}

	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}

	return num / den
}

// containerName picks a single name from ffprobe's comma-separated format
// aliases (e.g. "mov,mp4,m4a,3gp,3g2,mj2").
func containerName(formatName string) string {
	if formatName == "" {
		return ""
	}
	names := strings.Split(formatName, ",")
	for _, name := range names {
		if name == "mp4" || name == "mkv" || name == "webm" {
			return name
		}
	}
	return names[0]
}
