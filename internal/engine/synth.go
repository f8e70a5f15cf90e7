package engine

import (
	"context"
	"fmt"

	"github.com/Neperienx/TTS-local/internal/audio"
	"github.com/Neperienx/TTS-local/internal/speech"
	"github.com/charmbracelet/log"
)

// SynthesizeText synthesizes text of any length. Input over the
// engine's limit is split on sentence boundaries and the clips are
// joined, which every engine tolerates because chunks end on silence.
func SynthesizeText(ctx context.Context, eng Engine, req Request) (*audio.Clip, error) {
	info := eng.Info()

	chunks := speech.SplitChunks(req.Text, info.MaxTextChars)
	if len(chunks) == 0 {
		return nil, badRequest(info.Name, ErrEmptyText)
	}
	if len(chunks) == 1 {
		req.Text = chunks[0]
		return eng.Synthesize(ctx, req)
	}

	log.Debug("chunking long text", "engine", info.Name,
		"chunks", len(chunks), "limit", info.MaxTextChars)

	clips := make([]*audio.Clip, 0, len(chunks))
	for i, chunk := range chunks {
		creq := req
		creq.Text = chunk

		clip, err := eng.Synthesize(ctx, creq)
		if err != nil {
			return nil, fmt.Errorf("chunk %d of %d: %w", i+1, len(chunks), err)
		}
		clips = append(clips, clip)
	}

	return audio.Concat(clips...)
}
