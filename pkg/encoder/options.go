package encoder

import (
	"fmt"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var codecs = map[string]string{
	"h264": "libx264",
	"h265": "libx265",
}

// x264/x265 presets, indexed by efficiency.
var presets = []string{
	"ultrafast", "superfast", "veryfast", "faster", "fast",
	"medium", "slow", "slower", "veryslow",
}

// Options describe how frames are encoded.
type Options struct {
	Framerate float64
	// Codec is h264 or h265.
	Codec string
	// Quality is the constant rate factor: 0-51, lower is better.
	Quality int
	// Efficiency picks the encoder preset: 0 (ultrafast) to 8 (veryslow).
	Efficiency int
	Threads    int
	// WindowsPreset trades everything above for an mpeg4 AVI that Windows
	// Media Player can open.
	WindowsPreset bool
	// Custom output arguments, without the leading dash. They win over
	// everything else.
	Custom     map[string]string
	FFmpegPath string
}

// Validate checks that options map to a real encoder configuration.
func (o Options) Validate() error {
	if o.Framerate <= 0 {
		return fmt.Errorf("framerate must be positive: %g", o.Framerate)
	}
	if o.WindowsPreset {
		return nil
	}
	if _, ok := codecs[o.Codec]; !ok {
		return fmt.Errorf("unknown codec %q (want h264 or h265)", o.Codec)
	}
	if o.Quality < 0 || o.Quality > 51 {
		return fmt.Errorf("quality must be 0-51: %d", o.Quality)
	}
	if o.Efficiency < 0 || o.Efficiency >= len(presets) {
		return fmt.Errorf("efficiency must be 0-%d: %d", len(presets)-1, o.Efficiency)
	}
	return nil
}

// Extension returns the container extension for o, including the dot.
func Extension(o Options) string {
	if o.WindowsPreset {
		return ".avi"
	}
	return ".mp4"
}

// inputFramerate is the rate frames are declared at on the pipe.
func (o Options) inputFramerate() float64 {
	if o.WindowsPreset {
		return 30
	}
	return o.Framerate
}

func (o Options) inputArgs(width, height int) ffmpeg.KwArgs {
	return ffmpeg.KwArgs{
		"f":         "rawvideo",
		"pix_fmt":   "rgb24",
		"s":         fmt.Sprintf("%dx%d", width, height),
		"framerate": strconv.FormatFloat(o.inputFramerate(), 'f', -1, 64),
	}
}

func (o Options) outputArgs() ffmpeg.KwArgs {
	kw := ffmpeg.KwArgs{
		// yuv420p needs even dimensions
		"vf":      "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"pix_fmt": "yuv420p",
	}

	if o.WindowsPreset {
		kw["codec:v"] = "mpeg4"
		kw["flags:v"] = "+qscale"
		kw["global_quality:v"] = "0"
	} else {
		kw["codec:v"] = codecs[o.Codec]
		kw["preset"] = presets[o.Efficiency]
		kw["crf"] = strconv.Itoa(o.Quality)
	}

	if o.Threads > 0 {
		kw["threads"] = strconv.Itoa(o.Threads)
	}

	for k, v := range o.Custom {
		kw[k] = v
	}
	return kw
}
