package playback

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/voxlate/voxlate/audio"
)

type scheduled struct {
	buf *audio.Buffer
	at  time.Time
}

type fakeSink struct {
	plays  []scheduled
	closed bool
}

func (f *fakeSink) PlayAt(buf *audio.Buffer, at time.Time) error {
	f.plays = append(f.plays, scheduled{buf: buf, at: at})
	return nil
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}

func halfSecondBuffer() *audio.Buffer {
	return audio.NewBuffer(1, audio.PlaybackRate/2, audio.PlaybackRate)
}

func TestSchedulerBackToBack(t *testing.T) {
	mock := clock.NewMock()
	sink := &fakeSink{}
	s := NewScheduler(sink, mock, zap.NewNop())
	start := mock.Now()

	// Three 500ms buffers arriving instantly play at 0, 500 and 1000ms.
	for i := 0; i < 3; i++ {
		if _, err := s.Enqueue(halfSecondBuffer()); err != nil {
			t.Fatalf("Enqueue %d failed: %v", i, err)
		}
	}

	if len(sink.plays) != 3 {
		t.Fatalf("Expected 3 scheduled buffers, got %d", len(sink.plays))
	}
	for i, want := range []time.Duration{0, 500 * time.Millisecond, time.Second} {
		if got := sink.plays[i].at.Sub(start); got != want {
			t.Errorf("Buffer %d: expected start %v, got %v", i, want, got)
		}
	}
	if got := s.Cursor().Sub(start); got != 1500*time.Millisecond {
		t.Errorf("Expected cursor at 1500ms, got %v", got)
	}
}

func TestSchedulerStartsNonDecreasing(t *testing.T) {
	mock := clock.NewMock()
	sink := &fakeSink{}
	s := NewScheduler(sink, mock, zap.NewNop())

	durations := []int{100, 300, 50, 200}
	for _, ms := range durations {
		frames := audio.PlaybackRate * ms / 1000
		if _, err := s.Enqueue(audio.NewBuffer(1, frames, audio.PlaybackRate)); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	for i := 1; i < len(sink.plays); i++ {
		if sink.plays[i].at.Before(sink.plays[i-1].at) {
			t.Errorf("Start %d (%v) precedes start %d (%v)", i, sink.plays[i].at, i-1, sink.plays[i-1].at)
		}
	}
}

func TestSchedulerSlowArrival(t *testing.T) {
	mock := clock.NewMock()
	sink := &fakeSink{}
	s := NewScheduler(sink, mock, zap.NewNop())

	if _, err := s.Enqueue(halfSecondBuffer()); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// The next buffer arrives two seconds later, well after the first
	// finished; it starts at "now", leaving a natural gap of silence.
	mock.Add(2 * time.Second)
	start, err := s.Enqueue(halfSecondBuffer())
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if !start.Equal(mock.Now()) {
		t.Errorf("Expected start at now %v, got %v", mock.Now(), start)
	}
}

func TestSchedulerInterruptResetsCursor(t *testing.T) {
	mock := clock.NewMock()
	sink := &fakeSink{}
	s := NewScheduler(sink, mock, zap.NewNop())

	// Build up a backlog claiming 2.5s of future playback.
	for i := 0; i < 5; i++ {
		if _, err := s.Enqueue(halfSecondBuffer()); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}
	mock.Add(200 * time.Millisecond)

	s.Interrupt()
	if !s.Cursor().Equal(mock.Now()) {
		t.Errorf("Expected cursor reset to now %v, got %v", mock.Now(), s.Cursor())
	}

	// The next buffer starts immediately, regardless of the prior backlog.
	start, err := s.Enqueue(halfSecondBuffer())
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if !start.Equal(mock.Now()) {
		t.Errorf("Expected post-interrupt start at now, got %v", start)
	}
}
