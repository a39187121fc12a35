// Package encoder turns a stream of frames into a video file with ffmpeg.
package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"k8s.io/klog/v2"
)

var (
	// ErrFrameSize is returned when a frame differs in size from the first one.
	ErrFrameSize = errors.New("frame size changed")
	// ErrNoFrames is returned when closing a sink nothing was written to.
	ErrNoFrames = errors.New("no frames written")
	// ErrClosed is returned when writing to a closed sink.
	ErrClosed = errors.New("sink closed")
)

// FFmpeg pipes raw frames into an ffmpeg process. The video is written to a
// temporary file and only copied to its output path by Close, so a failed
// run never leaves a truncated video behind.
type FFmpeg struct {
	output string
	opts   Options

	tmpDir string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer

	size   image.Point
	frames int
	done   bool
}

// New returns a sink for output, creating its directory. ffmpeg starts with
// the first frame, once the frame size is known.
func New(output string, o Options) (*FFmpeg, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if err := writable(filepath.Dir(output)); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	return &FFmpeg{output: output, opts: o}, nil
}

// writable creates dir if needed and checks that files can be made in it.
func writable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".skylapse-*")
	if err != nil {
		return err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return err
	}
	return os.Remove(name)
}

// Command returns the ffmpeg command line for frames of the given size.
func (f *FFmpeg) Command(width, height int, dest string) *exec.Cmd {
	cmd := ffmpeg.Input("pipe:", f.opts.inputArgs(width, height)).
		Output(dest, f.opts.outputArgs()).
		OverWriteOutput().
		Compile()

	if f.opts.FFmpegPath != "" {
		cmd.Path = f.opts.FFmpegPath
		cmd.Args[0] = f.opts.FFmpegPath
		// drop the lookup error for the default binary name
		cmd.Err = nil
	}
	return cmd
}

func (f *FFmpeg) start(size image.Point) error {
	dir, err := os.MkdirTemp("", "skylapse-")
	if err != nil {
		return fmt.Errorf("temp dir: %w", err)
	}
	f.tmpDir = dir

	ext := filepath.Ext(f.output)
	if ext == "" {
		ext = Extension(f.opts)
	}

	cmd := f.Command(size.X, size.Y, filepath.Join(dir, "video"+ext))
	cmd.Stdout = nil
	cmd.Stderr = &f.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}

	klog.V(1).Infof("running %s", strings.Join(cmd.Args, " "))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	f.cmd = cmd
	f.stdin = stdin
	f.size = size
	return nil
}

// WriteFrame encodes one frame.
func (f *FFmpeg) WriteFrame(img *image.RGBA) error {
	if f.done {
		return ErrClosed
	}

	size := img.Bounds().Size()
	if f.cmd == nil {
		if err := f.start(size); err != nil {
			return err
		}
	}

	if size != f.size {
		return fmt.Errorf("%w: %v, want %v", ErrFrameSize, size, f.size)
	}

	if _, err := f.stdin.Write(rgb24(img)); err != nil {
		return fmt.Errorf("write frame %d: %w: %s", f.frames, err, f.tail())
	}
	f.frames++
	return nil
}

// Close waits for ffmpeg to finish and moves the video into place.
func (f *FFmpeg) Close() error {
	if f.done {
		return ErrClosed
	}
	f.done = true

	if f.cmd == nil {
		return ErrNoFrames
	}
	defer f.cleanup()

	if err := f.stdin.Close(); err != nil {
		return fmt.Errorf("close stdin: %w", err)
	}

	if err := f.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, f.tail())
	}

	ext := filepath.Ext(f.output)
	if ext == "" {
		ext = Extension(f.opts)
	}
	if err := copy.Copy(filepath.Join(f.tmpDir, "video"+ext), f.output); err != nil {
		return fmt.Errorf("copy: %w", err)
	}

	klog.V(1).Infof("%s: %d frames of %dx%d", f.output, f.frames, f.size.X, f.size.Y)
	return nil
}

// Abort stops ffmpeg and throws away its output. It is safe to call after Close.
func (f *FFmpeg) Abort() error {
	if f.cmd == nil || f.cmd.ProcessState != nil {
		f.done = true
		f.cleanup()
		return nil
	}
	f.done = true
	defer f.cleanup()

	_ = f.stdin.Close()
	if err := f.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("kill ffmpeg: %w", err)
	}
	_ = f.cmd.Wait()
	return nil
}

// Frames returns how many frames have been written.
func (f *FFmpeg) Frames() int {
	return f.frames
}

func (f *FFmpeg) cleanup() {
	if f.tmpDir == "" {
		return
	}
	if err := os.RemoveAll(f.tmpDir); err != nil {
		klog.Warningf("remove %s: %v", f.tmpDir, err)
	}
	f.tmpDir = ""
}

// tail returns the last lines ffmpeg printed, for error messages.
func (f *FFmpeg) tail() string {
	lines := strings.Split(strings.TrimSpace(f.stderr.String()), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, " | ")
}

// rgb24 packs frame as 8-bit RGB triplets, dropping alpha.
func rgb24(frame *image.RGBA) []byte {
	b := frame.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := frame.Pix[frame.PixOffset(b.Min.X, y):frame.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			out = append(out, row[i], row[i+1], row[i+2])
		}
	}
	return out
}
