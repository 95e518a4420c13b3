package models

// MediaDescriptor holds the format metadata of a media file. It is produced
// once per source by analysis and is read-only for the rest of a transcode.
type MediaDescriptor struct {
	Container       string  `json:"container"`
	VideoCodec      string  `json:"video_codec"`
	AudioCodec      string  `json:"audio_codec"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FrameRate       float64 `json:"frame_rate"`
	BitDepth        int     `json:"bit_depth"`
	DurationSeconds float64 `json:"duration_seconds"`
	Bitrate         int64   `json:"bitrate"`
}

// TranscodeOptions describes the target format of a transcode. Zero-valued
// fields mean "inherit from the source descriptor".
type TranscodeOptions struct {
	Container    string  `json:"container,omitempty"`
	VideoCodec   string  `json:"video_codec,omitempty"`
	AudioCodec   string  `json:"audio_codec,omitempty"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	FrameRate    float64 `json:"frame_rate,omitempty"`
	VideoBitrate int64   `json:"video_bitrate,omitempty"`
	AudioBitrate int64   `json:"audio_bitrate,omitempty"`
	Quality      int     `json:"quality,omitempty"`
	PassCount    int     `json:"pass_count,omitempty"`
	Preset       string  `json:"preset,omitempty"`
}

// Validate checks option ranges. Absent fields are always valid.
func (o TranscodeOptions) Validate() error {
	if o.Quality < 0 || o.Quality > 100 {
		return &OptionError{Field: "quality", Reason: "must be in [0, 100]"}
	}
	if o.PassCount < 0 || o.PassCount > 2 {
		return &OptionError{Field: "pass_count", Reason: "must be 1 or 2"}
	}
	if o.Width < 0 || o.Height < 0 {
		return &OptionError{Field: "dimensions", Reason: "must be non-negative"}
	}
	return nil
}

// Resolve fills inherited fields from the source descriptor and returns the
// effective target descriptor.
func (o TranscodeOptions) Resolve(src MediaDescriptor) MediaDescriptor {
	out := src
	if o.Container != "" {
		out.Container = o.Container
	}
	if o.VideoCodec != "" {
		out.VideoCodec = o.VideoCodec
	}
	if o.AudioCodec != "" {
		out.AudioCodec = o.AudioCodec
	}
	if o.Width > 0 {
		out.Width = o.Width
	}
	if o.Height > 0 {
		out.Height = o.Height
	}
	if o.FrameRate > 0 {
		out.FrameRate = o.FrameRate
	}
	if o.VideoBitrate > 0 {
		out.Bitrate = o.VideoBitrate
	}
	return out
}

// OptionError reports an invalid transcode option.
type OptionError struct {
	Field  string
	Reason string
}

func (e *OptionError) Error() string {
	return "invalid option " + e.Field + ": " + e.Reason
}
