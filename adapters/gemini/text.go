package gemini

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/voxlate/voxlate/audio"
	"github.com/voxlate/voxlate/domain/repositories"
)

// TextService implements one-shot translation and speech synthesis through
// the genai SDK.
type TextService struct {
	client *genai.Client
	logger *zap.Logger
}

var (
	_ repositories.Translator        = (*TextService)(nil)
	_ repositories.SpeechSynthesizer = (*TextService)(nil)
)

// NewTextService creates the service. The credential is required before any
// request is attempted.
func NewTextService(ctx context.Context, apiKey string, logger *zap.Logger) (*TextService, error) {
	if apiKey == "" {
		return nil, repositories.ErrCredentialMissing
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &TextService{client: client, logger: logger}, nil
}

// Translate sends the typed message through the text model under the fixed
// interpreter instruction and returns the translated text.
func (s *TextService) Translate(ctx context.Context, text string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(float32(0.7)),
	}

	response, err := s.client.Models.GenerateContent(ctx, TranslateModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", fmt.Errorf("translation returned no candidates")
	}

	var translated string
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			translated += part.Text
		}
	}
	if translated == "" {
		return "", fmt.Errorf("translation returned empty text")
	}

	s.logger.Info("Translated message",
		zap.Int("inputLen", len(text)),
		zap.Int("outputLen", len(translated)))
	return translated, nil
}

// Synthesize renders the text as 24kHz mono PCM using the TTS model and the
// given prebuilt voice. Empty input yields no buffer and no error.
func (s *TextService) Synthesize(ctx context.Context, text, voice string) (*audio.Buffer, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	response, err := s.client.Models.GenerateContent(ctx, TTSModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis request failed: %w", err)
	}

	var data []byte
	if len(response.Candidates) > 0 && response.Candidates[0].Content != nil {
		for _, part := range response.Candidates[0].Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				data = part.InlineData.Data
				break
			}
		}
	}
	if len(data) == 0 {
		s.logger.Warn("Speech synthesis returned no audio data")
		return nil, nil
	}

	buf, err := audio.DecodeChunk(data, audio.PlaybackRate, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to decode synthesized audio: %w", err)
	}
	return buf, nil
}
