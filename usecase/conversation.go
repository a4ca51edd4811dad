package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/voxlate/voxlate/audio"
	"github.com/voxlate/voxlate/domain/entities"
	"github.com/voxlate/voxlate/domain/repositories"
	"github.com/voxlate/voxlate/internal/live"
)

// Hooks are the UI-facing notifications of a conversation. All fields are
// optional. Callbacks fire from the session's event goroutine and must not
// block for long.
type Hooks struct {
	// OnOpen fires once the live channel is established.
	OnOpen func()
	// OnTurns fires whenever the timeline changes, with a full snapshot.
	OnTurns func([]entities.Turn)
	// OnVolume reports microphone input level while a live session runs.
	OnVolume func(float64)
	// OnAudio fires when a model audio buffer has been scheduled for playback.
	OnAudio func(*audio.Buffer)
	// OnClosed fires when the remote side ends the live session.
	OnClosed func(reason string)
	// OnError fires on a fatal session error.
	OnError func(error)
}

// ConversationService owns the conversation timeline and drives live voice
// sessions against it. One live session runs at a time.
type ConversationService struct {
	dialer repositories.RealtimeDialer
	store  repositories.HistoryStore
	clk    clock.Clock
	logger *zap.Logger

	mu       sync.Mutex
	timeline entities.Timeline
	session  *live.Session
}

// NewConversationService creates a conversation service.
func NewConversationService(
	dialer repositories.RealtimeDialer,
	store repositories.HistoryStore,
	clk clock.Clock,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		dialer: dialer,
		store:  store,
		clk:    clk,
		logger: logger,
	}
}

// Restore loads persisted history into the timeline. Called once at startup
// or when a client first attaches.
func (s *ConversationService) Restore(ctx context.Context) error {
	turns, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore history: %w", err)
	}

	s.mu.Lock()
	s.timeline.Clear()
	for _, turn := range turns {
		s.timeline.Append(turn)
	}
	s.mu.Unlock()

	s.logger.Info("Restored conversation history", zap.Int("turns", len(turns)))
	return nil
}

// History returns a snapshot of the timeline.
func (s *ConversationService) History() []entities.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeline.Turns()
}

// ClearHistory wipes the timeline and its persisted copy.
func (s *ConversationService) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	s.timeline.Clear()
	s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// StartLive begins a live voice session using the given devices. Transcripts
// and model audio flow into the timeline; hooks relay changes to the UI.
// Returns an error if a session is already running or the connection fails.
func (s *ConversationService) StartLive(
	ctx context.Context,
	cfg live.Config,
	mic repositories.CaptureDevice,
	speaker repositories.PlaybackDevice,
	hooks Hooks,
) error {
	// The session is assigned into the callbacks below before Connect runs;
	// Connect starting the event goroutine orders the write before any read.
	var session *live.Session

	callbacks := live.Callbacks{
		OnOpen: func() {
			if hooks.OnOpen != nil {
				hooks.OnOpen()
			}
		},
		OnVolume: func(level float64) {
			if hooks.OnVolume != nil {
				hooks.OnVolume(level)
			}
		},
		OnTranscript: func(role entities.Role, text string) {
			s.applyTranscript(role, text, hooks)
		},
		OnAudio: func(buf *audio.Buffer) {
			s.appendAudio(buf)
			if hooks.OnAudio != nil {
				hooks.OnAudio(buf)
			}
		},
		OnClose: func(reason string) {
			s.dropSession(session)
			if hooks.OnClosed != nil {
				hooks.OnClosed(reason)
			}
		},
		OnError: func(err error) {
			s.dropSession(session)
			if hooks.OnError != nil {
				hooks.OnError(err)
			}
		},
	}

	session = live.NewSession(cfg, s.dialer, mic, speaker, s.clk, callbacks, s.logger)

	// Check and claim the slot under one lock so concurrent callers cannot
	// both pass the guard; the loser fails before dialing anything.
	s.mu.Lock()
	if s.session != nil {
		s.mu.Unlock()
		return fmt.Errorf("a live session is already running")
	}
	s.session = session
	s.mu.Unlock()

	if err := session.Connect(ctx); err != nil {
		s.dropSession(session)
		return err
	}
	return nil
}

// StopLive ends the running live session, if any. The final timeline state is
// persisted.
func (s *ConversationService) StopLive(ctx context.Context) {
	s.mu.Lock()
	session := s.session
	s.session = nil
	s.mu.Unlock()

	if session == nil {
		return
	}
	session.Disconnect()
	s.persist(ctx)
}

// LiveActive reports whether a live session is currently held.
func (s *ConversationService) LiveActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// AppendUser adds a user turn directly, outside a live session. Used by the
// one-shot text flow. Typed turns never merge with earlier transcripts.
func (s *ConversationService) AppendUser(text string) entities.Turn {
	s.mu.Lock()
	turn := entities.Turn{
		ID:        entities.NewTurnID(),
		Role:      entities.RoleUser,
		Text:      text,
		Timestamp: s.clk.Now(),
	}
	s.timeline.Append(turn)
	s.mu.Unlock()

	s.persist(context.Background())
	return turn
}

// AppendModel adds a model turn directly, outside a live session.
func (s *ConversationService) AppendModel(text string) entities.Turn {
	s.mu.Lock()
	turn := entities.Turn{
		ID:        entities.NewTurnID(),
		Role:      entities.RoleModel,
		Text:      text,
		Timestamp: s.clk.Now(),
	}
	s.timeline.Append(turn)
	s.mu.Unlock()

	s.persist(context.Background())
	return turn
}

// AttachAudio associates an audio buffer with an existing turn.
func (s *ConversationService) AttachAudio(turnID string, buf *audio.Buffer) bool {
	s.mu.Lock()
	ok := s.timeline.AttachAudio(turnID, buf)
	s.mu.Unlock()
	return ok
}

func (s *ConversationService) applyTranscript(role entities.Role, text string, hooks Hooks) {
	s.mu.Lock()
	s.timeline.ApplyTranscript(role, text, s.clk.Now())
	snapshot := s.timeline.Turns()
	s.mu.Unlock()

	s.persist(context.Background())
	if hooks.OnTurns != nil {
		hooks.OnTurns(snapshot)
	}
}

func (s *ConversationService) appendAudio(buf *audio.Buffer) {
	s.mu.Lock()
	s.timeline.AppendAudio(buf)
	s.mu.Unlock()
}

// dropSession releases the slot held by target. The comparison keeps a late
// close callback from a superseded session from evicting its successor.
func (s *ConversationService) dropSession(target *live.Session) {
	s.mu.Lock()
	if s.session == target {
		s.session = nil
	}
	s.mu.Unlock()
	s.persist(context.Background())
}

func (s *ConversationService) persist(ctx context.Context) {
	s.mu.Lock()
	snapshot := s.timeline.Turns()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.store.Save(ctx, snapshot); err != nil {
		s.logger.Warn("Failed to persist conversation history", zap.Error(err))
	}
}
