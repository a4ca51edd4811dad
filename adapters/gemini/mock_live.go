package gemini

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voxlate/voxlate/audio"
	"github.com/voxlate/voxlate/domain/repositories"
)

// MockDialer opens channels that replay a canned exchange instead of talking
// to the remote service. Useful for development without a credential and for
// wiring tests above the live session.
type MockDialer struct {
	logger *zap.Logger

	// Script is replayed on every dialed channel, one event per interval.
	Script   []repositories.ServerEvent
	Interval time.Duration
}

var _ repositories.RealtimeDialer = (*MockDialer)(nil)

// NewMockDialer creates a dialer with a short default exchange: a user
// transcript, a model transcript and half a second of silence audio.
func NewMockDialer(logger *zap.Logger) *MockDialer {
	return &MockDialer{
		logger:   logger,
		Interval: 50 * time.Millisecond,
		Script: []repositories.ServerEvent{
			{Kind: repositories.EventUserTranscript, Text: "Hello, nice to meet you"},
			{Kind: repositories.EventModelTranscript, Text: "你好，很高兴认识你"},
			{Kind: repositories.EventAudio, Audio: make([]byte, audio.PlaybackRate), SampleRate: audio.PlaybackRate},
		},
	}
}

func (d *MockDialer) Dial(_ context.Context, cfg repositories.LiveConfig) (repositories.RealtimeChannel, error) {
	d.logger.Info("Mock live channel open", zap.String("voice", cfg.Voice))
	ch := &mockChannel{
		events: make(chan repositories.ServerEvent, len(d.Script)+1),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(ch.events)
		for _, ev := range d.Script {
			select {
			case <-ch.done:
				return
			case <-time.After(d.Interval):
			}
			select {
			case ch.events <- ev:
			case <-ch.done:
				return
			}
		}
	}()
	return ch, nil
}

type mockChannel struct {
	events    chan repositories.ServerEvent
	done      chan struct{}
	closeOnce sync.Once
}

var _ repositories.RealtimeChannel = (*mockChannel)(nil)

func (c *mockChannel) Send(audio.EncodedChunk) error {
	return nil
}

func (c *mockChannel) Events() <-chan repositories.ServerEvent {
	return c.events
}

func (c *mockChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}
