package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

func TestIdentityCopiesPayload(t *testing.T) {
	payload := []byte("chunk bytes")
	out, err := NewIdentity().Transform(context.Background(), payload, &models.MediaDescriptor{}, models.TranscodeOptions{})
	require.NoError(t, err)

	assert.Equal(t, payload, out)

	// The caller reuses the input buffer; the output must not alias it.
	payload[0] = 'X'
	assert.Equal(t, byte('c'), out[0])
}

func TestIdentityEmptyPayload(t *testing.T) {
	out, err := NewIdentity().Transform(context.Background(), nil, &models.MediaDescriptor{}, models.TranscodeOptions{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCodecBuildArgs(t *testing.T) {
	src := &models.MediaDescriptor{VideoCodec: "h264", Width: 1920, Height: 1080, Bitrate: 4000000}

	tests := []struct {
		name string
		opts models.TranscodeOptions
		want []string
	}{
		{
			name: "inherit everything",
			opts: models.TranscodeOptions{},
			want: []string{"-codec", "h264", "-size", "1920x1080", "-bitrate", "4000000"},
		},
		{
			name: "override codec and size",
			opts: models.TranscodeOptions{VideoCodec: "h265", Width: 1280, Height: 720},
			want: []string{"-codec", "h265", "-size", "1280x720", "-bitrate", "4000000"},
		},
		{
			name: "quality and two-pass",
			opts: models.TranscodeOptions{Quality: 85, PassCount: 2},
			want: []string{"-codec", "h264", "-size", "1920x1080", "-bitrate", "4000000", "-quality", "85", "-two-pass"},
		},
		{
			name: "preset",
			opts: models.TranscodeOptions{Preset: "slow"},
			want: []string{"-codec", "h264", "-size", "1920x1080", "-bitrate", "4000000", "-preset", "slow"},
		},
	}

	codec := NewCodec("/usr/bin/encoder")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codec.buildArgs(src, tt.opts))
		})
	}
}

func TestCodecExtraArgsAppended(t *testing.T) {
	codec := NewCodec("/usr/bin/encoder", "-threads", "4")
	args := codec.buildArgs(&models.MediaDescriptor{VideoCodec: "h264", Width: 640, Height: 480}, models.TranscodeOptions{})
	assert.Equal(t, []string{"-threads", "4"}, args[len(args)-2:])
}
