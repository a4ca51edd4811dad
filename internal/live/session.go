// Package live implements the realtime streaming session: one bidirectional
// exchange of microphone audio and translated speech with the remote service.
//
// A Session wires the capture pipeline into an outbound frame stream, routes
// inbound events to caller-supplied hooks, schedules returned audio for
// gapless playback and owns the lifecycle of every local audio resource. It
// holds no UI state; volume, transcripts and audio are reported exclusively
// through Callbacks.
package live

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/voxlate/voxlate/audio"
	"github.com/voxlate/voxlate/domain/entities"
	"github.com/voxlate/voxlate/domain/repositories"
	"github.com/voxlate/voxlate/internal/capture"
	"github.com/voxlate/voxlate/internal/playback"
)

// State is the session lifecycle position. Closed and Failed are terminal; a
// new Session must be constructed to reconnect.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Callbacks are the session's only outward surface. OnVolume interleaves
// freely with the data path; everything else fires from the inbound event
// loop in arrival order.
type Callbacks struct {
	OnOpen       func()
	OnClose      func(reason string)
	OnError      func(err error)
	OnTranscript func(role entities.Role, text string)
	OnAudio      func(buf *audio.Buffer)
	OnVolume     func(volume float64)
}

// Config selects the model and voice negotiated at connect time.
type Config struct {
	Model             string
	Voice             string
	SystemInstruction string
}

// outboundQueueCapacity bounds pre-resolve frame buffering: 64 frames is
// around 16 seconds of audio at the capture frame size.
const outboundQueueCapacity = 64

// Session is a single live streaming connection. At most one transition out
// of Idle is honored; Connect while Connecting or Open is a no-op.
type Session struct {
	cfg         Config
	dialer      repositories.RealtimeDialer
	captureDev  repositories.CaptureDevice
	playbackDev repositories.PlaybackDevice
	clk         clock.Clock
	cb          Callbacks
	logger      *zap.Logger

	mu        sync.Mutex
	state     State
	pipeline  *capture.Pipeline
	scheduler *playback.Scheduler
	queue     *outboundQueue
	channel   repositories.RealtimeChannel
}

// NewSession creates an idle session. Nothing is acquired until Connect.
func NewSession(
	cfg Config,
	dialer repositories.RealtimeDialer,
	captureDev repositories.CaptureDevice,
	playbackDev repositories.PlaybackDevice,
	clk clock.Clock,
	cb Callbacks,
	logger *zap.Logger,
) *Session {
	return &Session{
		cfg:         cfg,
		dialer:      dialer,
		captureDev:  captureDev,
		playbackDev: playbackDev,
		clk:         clk,
		cb:          cb,
		logger:      logger,
		state:       StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect acquires the microphone, opens the live channel and begins
// streaming. A connect while one is already in flight or established is
// ignored. Failures transition the session to Failed with all local resources
// released, and are returned to the caller; no retry is attempted.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		s.logger.Warn("Connect ignored, session not idle", zap.Stringer("state", state))
		return nil
	}
	s.state = StateConnecting

	queue := newOutboundQueue(outboundQueueCapacity, s.logger)
	pipeline := capture.NewPipeline(s.captureDev, capture.Callbacks{
		OnFrame: func(f capture.Frame) {
			queue.Push(audio.EncodeFrame(f.Samples, audio.CaptureRate))
		},
		OnVolume: s.cb.OnVolume,
	}, s.logger)
	s.queue = queue
	s.pipeline = pipeline
	s.mu.Unlock()

	// Frames produced from here on park in the queue until the channel
	// resolves.
	if err := pipeline.Start(ctx); err != nil {
		s.release(StateFailed)
		return fmt.Errorf("failed to acquire microphone: %w", err)
	}

	ch, err := s.dialer.Dial(ctx, repositories.LiveConfig{
		Model:               s.cfg.Model,
		Voice:               s.cfg.Voice,
		SystemInstruction:   s.cfg.SystemInstruction,
		InputTranscription:  true,
		OutputTranscription: true,
	})
	if err != nil {
		s.release(StateFailed)
		return &repositories.ConnectionError{Op: "dial", Err: err}
	}

	s.mu.Lock()
	s.channel = ch
	s.scheduler = playback.NewScheduler(s.playbackDev, s.clk, s.logger)
	s.state = StateOpen
	s.mu.Unlock()

	queue.Bind(ch, nil)
	s.logger.Info("Live session open",
		zap.String("model", s.cfg.Model),
		zap.String("voice", s.cfg.Voice))
	if s.cb.OnOpen != nil {
		s.cb.OnOpen()
	}

	go s.eventLoop(ch)
	return nil
}

// Disconnect tears the session down from the caller's side. Local resources
// are released synchronously; calls after the session reached a terminal
// state are no-ops.
func (s *Session) Disconnect() error {
	if s.release(StateClosed) {
		s.logger.Info("Live session disconnected")
	}
	return nil
}

// eventLoop dispatches inbound events in arrival order until the channel
// drains or a terminal event arrives.
func (s *Session) eventLoop(ch repositories.RealtimeChannel) {
	for ev := range ch.Events() {
		switch ev.Kind {
		case repositories.EventUserTranscript:
			if s.cb.OnTranscript != nil {
				s.cb.OnTranscript(entities.RoleUser, ev.Text)
			}

		case repositories.EventModelTranscript:
			if s.cb.OnTranscript != nil {
				s.cb.OnTranscript(entities.RoleModel, ev.Text)
			}

		case repositories.EventAudio:
			s.handleAudio(ev)

		case repositories.EventInterrupted:
			s.logger.Info("Model output interrupted")
			s.scheduler.Interrupt()

		case repositories.EventClosed:
			if s.release(StateClosed) && s.cb.OnClose != nil {
				s.cb.OnClose(ev.Reason)
			}
			return

		case repositories.EventError:
			if s.release(StateFailed) && s.cb.OnError != nil {
				s.cb.OnError(&repositories.ConnectionError{Op: "stream", Err: ev.Err})
			}
			return
		}
	}

	// Event stream drained without a terminal event.
	if s.release(StateClosed) && s.cb.OnClose != nil {
		s.cb.OnClose("event stream ended")
	}
}

// handleAudio decodes one inbound chunk, schedules it and surfaces the buffer
// for retention. A chunk that fails to decode is dropped; the session
// continues.
func (s *Session) handleAudio(ev repositories.ServerEvent) {
	rate := ev.SampleRate
	if rate == 0 {
		rate = audio.PlaybackRate
	}
	buf, err := audio.DecodeChunk(ev.Audio, rate, 1)
	if err != nil {
		s.logger.Warn("Dropping undecodable audio chunk",
			zap.Int("bytes", len(ev.Audio)),
			zap.Error(err))
		return
	}
	if _, err := s.scheduler.Enqueue(buf); err != nil {
		s.logger.Error("Failed to schedule audio chunk", zap.Error(err))
	}
	if s.cb.OnAudio != nil {
		s.cb.OnAudio(buf)
	}
}

// release moves the session to a terminal state and frees every local
// resource, in a fixed order, exactly once. It reports whether this call
// performed the transition; losers of the race do nothing, which keeps
// Disconnect idempotent and remote close/error callbacks single-shot.
func (s *Session) release(to State) bool {
	s.mu.Lock()
	if s.state != StateConnecting && s.state != StateOpen {
		s.mu.Unlock()
		return false
	}
	s.state = to
	pipeline := s.pipeline
	queue := s.queue
	channel := s.channel
	s.mu.Unlock()

	if pipeline != nil {
		if err := pipeline.Stop(); err != nil {
			s.logger.Warn("Failed to stop capture pipeline", zap.Error(err))
		}
	}
	if queue != nil {
		queue.Close()
	}
	if channel != nil {
		if err := channel.Close(); err != nil {
			s.logger.Warn("Failed to close live channel", zap.Error(err))
		}
	}
	if err := s.playbackDev.Close(); err != nil {
		s.logger.Warn("Failed to close playback device", zap.Error(err))
	}
	return true
}
