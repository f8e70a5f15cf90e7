package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// RIFF/WAVE codec for the PCM clips the engines hand back and the
// pipeline writes out. Only the encodings the engines actually emit are
// supported: 16-bit integer PCM and 32-bit IEEE float (which decodes to
// 16-bit). Nothing in the package corpus ships a WAV library, so the
// 44-byte header is done by hand.

const (
	waveFormatPCM   = 1
	waveFormatFloat = 3

	// maxDataBytes guards against a corrupt header declaring an absurd
	// data chunk. An hour of stereo 48 kHz audio is ~690 MB.
	maxDataBytes = 1 << 30
)

var (
	// ErrNotWAV is returned when the stream is not a RIFF/WAVE file.
	ErrNotWAV = errors.New("not a RIFF/WAVE stream")

	// ErrUnsupportedWAV is returned for encodings outside PCM16/float32.
	ErrUnsupportedWAV = errors.New("unsupported WAV encoding")
)

// EncodeWAV writes the clip as a PCM16 WAV stream.
func EncodeWAV(w io.Writer, c *Clip) error {
	if err := c.Validate(); err != nil {
		return err
	}

	f := c.Format
	byteRate := f.SampleRate * f.BytesPerFrame()

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(c.PCM)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], waveFormatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(f.BytesPerFrame()))
	binary.LittleEndian.PutUint16(header[34:36], uint16(f.BitDepth))
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(c.PCM)))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	if _, err := w.Write(c.PCM); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}

// DecodeWAV parses a WAV stream into a clip. Chunks other than fmt and
// data are skipped. Float32 samples are converted to PCM16.
func DecodeWAV(r io.Reader) (*Clip, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	var (
		format     Format
		encoding   uint16
		haveFormat bool
	)

	for {
		id, size, err := readChunkHeader(r)
		if err == io.EOF {
			return nil, fmt.Errorf("%w: no data chunk", ErrNotWAV)
		}
		if err != nil {
			return nil, err
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too short", ErrNotWAV)
			}
			buf := make([]byte, size)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			encoding = binary.LittleEndian.Uint16(buf[0:2])
			format.Channels = int(binary.LittleEndian.Uint16(buf[2:4]))
			format.SampleRate = int(binary.LittleEndian.Uint32(buf[4:8]))
			format.BitDepth = int(binary.LittleEndian.Uint16(buf[14:16]))
			haveFormat = true
			if err := skipPad(r, size); err != nil {
				return nil, err
			}

		case "data":
			if !haveFormat {
				return nil, fmt.Errorf("%w: data chunk before fmt", ErrNotWAV)
			}
			if size > maxDataBytes {
				return nil, fmt.Errorf("wav data chunk of %d bytes exceeds limit", size)
			}
			data := make([]byte, size)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("read wav data: %w", err)
			}
			return buildClip(encoding, format, data)

		default:
			if err := discard(r, int64(size)+int64(size%2)); err != nil {
				return nil, fmt.Errorf("skip %q chunk: %w", id, err)
			}
		}
	}
}

func buildClip(encoding uint16, f Format, data []byte) (*Clip, error) {
	switch encoding {
	case waveFormatPCM:
		if f.BitDepth != 16 {
			return nil, fmt.Errorf("%w: %d-bit pcm", ErrUnsupportedWAV, f.BitDepth)
		}
		clip := &Clip{Format: f, PCM: data}
		if err := clip.Validate(); err != nil {
			return nil, err
		}
		return clip, nil

	case waveFormatFloat:
		if f.BitDepth != 32 {
			return nil, fmt.Errorf("%w: %d-bit float", ErrUnsupportedWAV, f.BitDepth)
		}
		if len(data)%4 != 0 {
			return nil, ErrMisaligned
		}
		pcm := make([]byte, len(data)/2)
		for i := 0; i+4 <= len(data); i += 4 {
			sample := math.Float32frombits(binary.LittleEndian.Uint32(data[i : i+4]))
			binary.LittleEndian.PutUint16(pcm[i/2:i/2+2], uint16(floatToInt16(sample)))
		}
		f.BitDepth = 16
		clip := &Clip{Format: f, PCM: pcm}
		if err := clip.Validate(); err != nil {
			return nil, err
		}
		return clip, nil

	default:
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedWAV, encoding)
	}
}

func floatToInt16(s float32) int16 {
	scaled := float64(s) * 32767
	switch {
	case scaled > 32767:
		return 32767
	case scaled < -32768:
		return -32768
	default:
		return int16(math.Round(scaled))
	}
}

func readChunkHeader(r io.Reader) (string, uint32, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return "", 0, io.EOF
		}
		return "", 0, fmt.Errorf("read chunk header: %w", err)
	}
	return string(hdr[0:4]), binary.LittleEndian.Uint32(hdr[4:8]), nil
}

// skipPad consumes the alignment byte after an odd-sized chunk.
func skipPad(r io.Reader, size uint32) error {
	if size%2 == 0 {
		return nil
	}
	return discard(r, 1)
}

func discard(r io.Reader, n int64) error {
	_, err := io.CopyN(io.Discard, r, n)
	if err == io.EOF {
		return nil
	}
	return err
}

// ReadFile loads a WAV file into a clip.
func ReadFile(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	clip, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return clip, nil
}

// WriteFile writes the clip as a WAV file, creating parent directories
// and replacing the target atomically via a temp file in the same dir.
func WriteFile(path string, c *Clip) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".wav-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp wav: %w", err)
	}
	tmpName := tmp.Name()

	if err := EncodeWAV(tmp, c); err != nil {
		tmp.Close()          //nolint:errcheck
		os.Remove(tmpName)   //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("close temp wav: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
