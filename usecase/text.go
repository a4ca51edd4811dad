package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/voxlate/voxlate/domain/entities"
	"github.com/voxlate/voxlate/domain/repositories"
)

// TextResult is the outcome of a one-shot translation request.
type TextResult struct {
	UserTurn  entities.Turn `json:"userTurn"`
	ModelTurn entities.Turn `json:"modelTurn"`
	// HasAudio reports whether synthesized speech was attached to the
	// model turn.
	HasAudio bool `json:"hasAudio"`
}

// TextService runs the typed translation flow: the user's text is appended to
// the timeline, translated, and the translation is spoken back.
type TextService struct {
	translator    repositories.Translator
	synthesizer   repositories.SpeechSynthesizer
	conversations *ConversationService
	logger        *zap.Logger
}

// NewTextService creates a text translation service.
func NewTextService(
	translator repositories.Translator,
	synthesizer repositories.SpeechSynthesizer,
	conversations *ConversationService,
	logger *zap.Logger,
) *TextService {
	return &TextService{
		translator:    translator,
		synthesizer:   synthesizer,
		conversations: conversations,
		logger:        logger,
	}
}

// Translate runs the one-shot flow. Translation failure is fatal; synthesis
// failure is not, since the translated text has already been produced and is
// worth showing on its own.
func (s *TextService) Translate(ctx context.Context, text string, voice entities.Persona) (*TextResult, error) {
	if text == "" {
		return nil, fmt.Errorf("text must not be empty")
	}

	userTurn := s.conversations.AppendUser(text)

	translated, err := s.translator.Translate(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("translation failed: %w", err)
	}
	modelTurn := s.conversations.AppendModel(translated)

	result := &TextResult{UserTurn: userTurn, ModelTurn: modelTurn}

	buf, err := s.synthesizer.Synthesize(ctx, translated, voice.VoiceName)
	if err != nil {
		s.logger.Warn("Speech synthesis failed, returning text only",
			zap.String("voice", voice.VoiceName),
			zap.Error(err))
		return result, nil
	}
	if buf == nil {
		return result, nil
	}

	if s.conversations.AttachAudio(modelTurn.ID, buf) {
		result.HasAudio = true
		result.ModelTurn.Audio = buf
	}
	return result, nil
}
