package repositories

import (
	"context"

	"github.com/voxlate/voxlate/audio"
)

// Translator produces the bilingual translation of a typed message.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// SpeechSynthesizer renders translated text as a playable audio buffer using
// the given remote voice name.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (*audio.Buffer, error)
}
