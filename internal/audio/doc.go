// Package audio holds the waveform model shared by the synthesis engines
// and the video pipeline: a WAV codec, PCM helpers for silence padding and
// concatenation, and speaker playback via oto/v3.
package audio
