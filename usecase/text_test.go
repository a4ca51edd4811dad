package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/voxlate/voxlate/audio"
	"github.com/voxlate/voxlate/domain/entities"
)

type fakeTranslator struct {
	out string
	err error
}

func (f *fakeTranslator) Translate(context.Context, string) (string, error) {
	return f.out, f.err
}

type fakeSynthesizer struct {
	buf   *audio.Buffer
	err   error
	voice string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _ string, voice string) (*audio.Buffer, error) {
	f.voice = voice
	return f.buf, f.err
}

func newTestTextService(tr *fakeTranslator, sy *fakeSynthesizer) (*TextService, *ConversationService) {
	convo := newTestConversation(&fakeStore{}, &failingDialer{})
	return NewTextService(tr, sy, convo, zap.NewNop()), convo
}

func TestTranslateAppendsBothTurns(t *testing.T) {
	buf := audio.NewBuffer(1, audio.PlaybackRate/2, audio.PlaybackRate)
	svc, convo := newTestTextService(
		&fakeTranslator{out: "Good morning"},
		&fakeSynthesizer{buf: buf},
	)

	result, err := svc.Translate(context.Background(), "早上好", entities.FindPersona("2"))
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if result.UserTurn.Text != "早上好" || result.UserTurn.Role != entities.RoleUser {
		t.Errorf("user turn = %+v", result.UserTurn)
	}
	if result.ModelTurn.Text != "Good morning" || result.ModelTurn.Role != entities.RoleModel {
		t.Errorf("model turn = %+v", result.ModelTurn)
	}
	if !result.HasAudio {
		t.Error("HasAudio = false, want synthesized audio attached")
	}

	history := convo.History()
	if len(history) != 2 {
		t.Fatalf("History() has %d turns, want 2", len(history))
	}
	if history[1].Audio != buf {
		t.Error("model turn in timeline is missing the synthesized audio")
	}
}

func TestTranslatePassesVoiceName(t *testing.T) {
	sy := &fakeSynthesizer{}
	svc, _ := newTestTextService(&fakeTranslator{out: "hi"}, sy)

	if _, err := svc.Translate(context.Background(), "你好", entities.FindPersona("3")); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if sy.voice != "Puck" {
		t.Errorf("synthesizer voice = %q, want %q", sy.voice, "Puck")
	}
}

func TestTranslateFailureLeavesOnlyUserTurn(t *testing.T) {
	svc, convo := newTestTextService(
		&fakeTranslator{err: errors.New("quota exhausted")},
		&fakeSynthesizer{},
	)

	_, err := svc.Translate(context.Background(), "你好", entities.FindPersona("1"))
	if err == nil {
		t.Fatal("Translate() error = nil, want translation failure")
	}

	history := convo.History()
	if len(history) != 1 || history[0].Role != entities.RoleUser {
		t.Errorf("History() = %+v, want only the user turn", history)
	}
}

func TestSynthesisFailureIsNotFatal(t *testing.T) {
	svc, _ := newTestTextService(
		&fakeTranslator{out: "Hello"},
		&fakeSynthesizer{err: errors.New("tts unavailable")},
	)

	result, err := svc.Translate(context.Background(), "你好", entities.FindPersona("1"))
	if err != nil {
		t.Fatalf("Translate() error = %v, synthesis failure must not be fatal", err)
	}
	if result.HasAudio {
		t.Error("HasAudio = true after failed synthesis")
	}
	if result.ModelTurn.Text != "Hello" {
		t.Errorf("ModelTurn.Text = %q, want %q", result.ModelTurn.Text, "Hello")
	}
}

func TestTranslateRejectsEmptyText(t *testing.T) {
	svc, convo := newTestTextService(&fakeTranslator{out: "x"}, &fakeSynthesizer{})

	if _, err := svc.Translate(context.Background(), "", entities.FindPersona("1")); err == nil {
		t.Fatal("Translate(\"\") error = nil, want rejection")
	}
	if convo.History() != nil && len(convo.History()) != 0 {
		t.Error("empty request mutated the timeline")
	}
}
