package audio

import "time"

// Silence generates a clip of zeroed samples in the given format.
// Sample count truncates the same way integer math does everywhere
// else in the pipeline, so padded durations stay reproducible.
func Silence(f Format, d time.Duration) *Clip {
	if d < 0 {
		d = 0
	}
	frames := int(d.Seconds() * float64(f.SampleRate))
	return &Clip{
		Format: f,
		PCM:    make([]byte, frames*f.BytesPerFrame()),
	}
}

// Pad returns a new clip with leading and trailing silence around c.
func Pad(c *Clip, pre, post time.Duration) *Clip {
	head := Silence(c.Format, pre)
	tail := Silence(c.Format, post)

	pcm := make([]byte, 0, len(head.PCM)+len(c.PCM)+len(tail.PCM))
	pcm = append(pcm, head.PCM...)
	pcm = append(pcm, c.PCM...)
	pcm = append(pcm, tail.PCM...)

	return &Clip{Format: c.Format, PCM: pcm}
}

// Concat joins clips in order. All clips must share one format; a
// narration assembled from mixed sample rates would play at the wrong
// pitch, so that is an error rather than a resample.
func Concat(clips ...*Clip) (*Clip, error) {
	if len(clips) == 0 {
		return nil, ErrEmptyClip
	}

	format := clips[0].Format
	total := 0
	for _, c := range clips {
		if c.Format != format {
			return nil, ErrFormatMismatch
		}
		total += len(c.PCM)
	}

	pcm := make([]byte, 0, total)
	for _, c := range clips {
		pcm = append(pcm, c.PCM...)
	}

	out := &Clip{Format: format, PCM: pcm}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
