// Package video assembles narrated slideshows with ffmpeg: one still
// image plus one narration WAV per page becomes an H.264 segment, and
// a stream-copy concat joins the segments into the final video.
package video

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds one ffmpeg invocation. Encoding a page segment
// is quick; concat over many pages is mostly I/O.
const DefaultTimeout = 10 * time.Minute

const maxStderrTail = 2048

// Muxer shells out to ffmpeg.
type Muxer struct {
	bin     string
	timeout time.Duration
}

// New builds a muxer around the given ffmpeg binary. Empty means
// ffmpeg from PATH.
func New(bin string, timeout time.Duration) *Muxer {
	if bin == "" {
		bin = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Muxer{bin: bin, timeout: timeout}
}

// SegmentArgs builds the argument list for one page segment. The scale
// filter forces even dimensions, which libx264 requires with yuv420p.
// The image loop has no intrinsic end, so both -t and -shortest bound
// the segment at the padded narration length.
func SegmentArgs(image, audioPath string, duration time.Duration, out string) []string {
	return []string{
		"-y",
		"-loop", "1",
		"-i", image,
		"-i", audioPath,
		"-t", fmt.Sprintf("%.3f", duration.Seconds()),
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
		out,
	}
}

// ConcatArgs builds the argument list for the final join. Segments
// share one encoding, so the concat demuxer stream-copies instead of
// re-encoding.
func ConcatArgs(listFile, out string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		out,
	}
}

// Segment renders one still image plus narration into an mp4.
func (m *Muxer) Segment(ctx context.Context, image, audioPath string, duration time.Duration, out string) error {
	for _, in := range []string{image, audioPath} {
		if _, err := os.Stat(in); err != nil {
			return fmt.Errorf("segment input: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create segment directory: %w", err)
	}
	return m.run(ctx, SegmentArgs(image, audioPath, duration, out))
}

// Concat joins the segments listed in listFile into out.
func (m *Muxer) Concat(ctx context.Context, listFile, out string) error {
	if _, err := os.Stat(listFile); err != nil {
		return fmt.Errorf("concat list: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return m.run(ctx, ConcatArgs(listFile, out))
}

// WriteConcatList writes the concat demuxer list: one file directive
// per segment, single quoted with embedded quotes escaped the ffmpeg
// way.
func WriteConcatList(path string, names []string) error {
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatEntry(name))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

func escapeConcatEntry(name string) string {
	return strings.ReplaceAll(name, "'", `'\''`)
}

// Validate checks ffmpeg is on PATH and executable.
func (m *Muxer) Validate() error {
	path, err := exec.LookPath(m.bin)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", m.bin)
	}
	if err := exec.Command(path, "-version").Run(); err != nil {
		return fmt.Errorf("cannot execute %s: %w", m.bin, err)
	}
	return nil
}

// Version returns the first line of ffmpeg -version output.
func (m *Muxer) Version() string {
	out, err := exec.Command(m.bin, "-version").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
}

// InstallGuidance is shown by doctor when ffmpeg is missing.
func InstallGuidance() string {
	return "Install ffmpeg with your package manager, for example: " +
		"apt install ffmpeg, brew install ffmpeg, or winget install ffmpeg."
}

func (m *Muxer) run(ctx context.Context, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.bin, args...)
	cmd.Stdin = strings.NewReader("")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- cmd.Run()
	}()

	select {
	case err := <-done:
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("ffmpeg: %w", ctx.Err())
			}
			return fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderrTail(stderr.Bytes()))
		}
		return nil

	case <-ctx.Done():
		if cmd.Process != nil {
			cmd.Process.Signal(os.Interrupt) //nolint:errcheck
			select {
			case <-done:
			case <-time.After(100 * time.Millisecond):
				cmd.Process.Kill() //nolint:errcheck
				<-done
			}
		}
		return fmt.Errorf("ffmpeg: %w", ctx.Err())
	}
}

func stderrTail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= maxStderrTail {
		return s
	}
	return "..." + s[len(s)-maxStderrTail:]
}
