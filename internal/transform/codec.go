package transform

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

// Codec pipes chunk bytes through an external encoder process, stdin to
// stdout. Each invocation launches its own process, so concurrent calls from
// independent pipeline workers share no state.
type Codec struct {
	binaryPath string
	extraArgs  []string
}

// NewCodec creates a transformer backed by the encoder at binaryPath.
func NewCodec(binaryPath string, extraArgs ...string) *Codec {
	return &Codec{
		binaryPath: binaryPath,
		extraArgs:  extraArgs,
	}
}

// Transform encodes one chunk. The output length may differ from the input
// length; the caller writes whatever comes back.
func (t *Codec) Transform(ctx context.Context, payload []byte, src *models.MediaDescriptor, opts models.TranscodeOptions) ([]byte, error) {
	args := t.buildArgs(src, opts)

	cmd := exec.CommandContext(ctx, t.binaryPath, args...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("encoder failed: %w, stderr: %s", err, stderr.String())
	}

	return stdout.Bytes(), nil
}

// buildArgs maps the target options onto encoder flags. Zero-valued options
// inherit from the source descriptor.
func (t *Codec) buildArgs(src *models.MediaDescriptor, opts models.TranscodeOptions) []string {
	target := opts.Resolve(*src)

	args := []string{
		"-codec", target.VideoCodec,
		"-size", fmt.Sprintf("%dx%d", target.Width, target.Height),
	}

	if target.Bitrate > 0 {
		args = append(args, "-bitrate", fmt.Sprintf("%d", target.Bitrate))
	}
	if opts.Quality > 0 {
		args = append(args, "-quality", fmt.Sprintf("%d", opts.Quality))
	}
	if opts.PassCount == 2 {
		args = append(args, "-two-pass")
	}
	if opts.Preset != "" {
		args = append(args, "-preset", opts.Preset)
	}

	args = append(args, t.extraArgs...)
	return args
}
