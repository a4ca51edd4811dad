// Package playback schedules decoded audio buffers for gapless sequential
// playback on an output clock.
package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/voxlate/voxlate/audio"
	"github.com/voxlate/voxlate/domain/repositories"
)

// Scheduler keeps a single cursor: the earliest time the next buffer may
// start. Each buffer is committed at max(cursor, now) and the cursor advances
// by the buffer's duration, so buffers play back-to-back in arrival order. If
// buffers arrive slower than real time the cursor falls behind "now" and a gap
// of silence occurs naturally.
type Scheduler struct {
	clk    clock.Clock
	device repositories.PlaybackDevice
	logger *zap.Logger

	mu     sync.Mutex
	cursor time.Time
}

// NewScheduler creates a scheduler over the given playback device. The cursor
// starts at the clock's current time.
func NewScheduler(device repositories.PlaybackDevice, clk clock.Clock, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		clk:    clk,
		device: device,
		logger: logger,
		cursor: clk.Now(),
	}
}

// Enqueue commits the buffer to the device and returns its scheduled start
// time.
func (s *Scheduler) Enqueue(buf *audio.Buffer) (time.Time, error) {
	s.mu.Lock()
	start := s.cursor
	if now := s.clk.Now(); now.After(start) {
		start = now
	}
	s.cursor = start.Add(buf.Duration())
	s.mu.Unlock()

	if err := s.device.PlayAt(buf, start); err != nil {
		return start, fmt.Errorf("failed to schedule playback: %w", err)
	}
	return start, nil
}

// Interrupt resets the cursor to the clock's current time, reclaiming the
// playback time claimed by the backlog. Buffers already committed to the
// device are not recalled; only future scheduling is affected.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	s.cursor = s.clk.Now()
	s.mu.Unlock()
	s.logger.Debug("Playback cursor reset")
}

// Cursor returns the next free time on the output clock.
func (s *Scheduler) Cursor() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}
