package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/voxlate/voxlate/audio"
	"github.com/voxlate/voxlate/domain/entities"
	"github.com/voxlate/voxlate/domain/repositories"
	"github.com/voxlate/voxlate/internal/live"
)

type fakeStore struct {
	mu    sync.Mutex
	saved []entities.Turn
	saves int
}

func (f *fakeStore) Save(_ context.Context, turns []entities.Turn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append([]entities.Turn(nil), turns...)
	f.saves++
	return nil
}

func (f *fakeStore) Load(_ context.Context) ([]entities.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entities.Turn(nil), f.saved...), nil
}

func (f *fakeStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = nil
	return nil
}

type failingDialer struct {
	calls int
}

type openChannel struct {
	events    chan repositories.ServerEvent
	closeOnce sync.Once
}

func (c *openChannel) Send(audio.EncodedChunk) error { return nil }

func (c *openChannel) Events() <-chan repositories.ServerEvent { return c.events }

func (c *openChannel) Close() error {
	c.closeOnce.Do(func() { close(c.events) })
	return nil
}

type countingDialer struct {
	mu    sync.Mutex
	calls int
}

func (d *countingDialer) Dial(context.Context, repositories.LiveConfig) (repositories.RealtimeChannel, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	return &openChannel{events: make(chan repositories.ServerEvent, 1)}, nil
}

func (d *failingDialer) Dial(context.Context, repositories.LiveConfig) (repositories.RealtimeChannel, error) {
	d.calls++
	return nil, errors.New("upstream unavailable")
}

type idleMic struct{}

func (idleMic) Start(context.Context, func([]float32)) error { return nil }
func (idleMic) Stop() error                                  { return nil }

type nullSpeaker struct{}

func (nullSpeaker) PlayAt(*audio.Buffer, time.Time) error { return nil }
func (nullSpeaker) Close() error                          { return nil }

func newTestConversation(store repositories.HistoryStore, dialer repositories.RealtimeDialer) *ConversationService {
	return NewConversationService(dialer, store, clock.NewMock(), zap.NewNop())
}

func TestRestoreLoadsPersistedTurns(t *testing.T) {
	store := &fakeStore{saved: []entities.Turn{
		{ID: "a", Role: entities.RoleUser, Text: "你好"},
		{ID: "b", Role: entities.RoleModel, Text: "Hello"},
	}}
	svc := newTestConversation(store, &failingDialer{})

	if err := svc.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	history := svc.History()
	if len(history) != 2 {
		t.Fatalf("History() has %d turns, want 2", len(history))
	}
	if history[0].Text != "你好" || history[1].Text != "Hello" {
		t.Errorf("History() = %+v, restored turns out of order", history)
	}
}

func TestClearHistoryWipesStoreAndTimeline(t *testing.T) {
	store := &fakeStore{}
	svc := newTestConversation(store, &failingDialer{})
	svc.AppendUser("hello")

	if err := svc.ClearHistory(context.Background()); err != nil {
		t.Fatalf("ClearHistory() error = %v", err)
	}
	if got := svc.History(); len(got) != 0 {
		t.Errorf("History() after clear = %+v, want empty", got)
	}
	if store.saved != nil {
		t.Errorf("store still holds %d turns after clear", len(store.saved))
	}
}

func TestAppendTurnsPersist(t *testing.T) {
	store := &fakeStore{}
	svc := newTestConversation(store, &failingDialer{})

	user := svc.AppendUser("早上好")
	model := svc.AppendModel("Good morning")

	if user.Role != entities.RoleUser || model.Role != entities.RoleModel {
		t.Errorf("roles = %v/%v, want user/model", user.Role, model.Role)
	}
	if user.ID == model.ID {
		t.Error("user and model turns share an id")
	}
	if len(store.saved) != 2 {
		t.Errorf("store holds %d turns, want 2", len(store.saved))
	}
}

func TestTypedTurnsNeverMerge(t *testing.T) {
	store := &fakeStore{}
	svc := newTestConversation(store, &failingDialer{})

	svc.AppendUser("first")
	svc.AppendUser("second")

	history := svc.History()
	if len(history) != 2 {
		t.Fatalf("History() has %d turns, want 2 distinct typed turns", len(history))
	}
}

func TestAttachAudio(t *testing.T) {
	store := &fakeStore{}
	svc := newTestConversation(store, &failingDialer{})
	turn := svc.AppendModel("Hello")

	buf := audio.NewBuffer(1, audio.PlaybackRate, audio.PlaybackRate)
	if !svc.AttachAudio(turn.ID, buf) {
		t.Fatal("AttachAudio() = false for existing turn")
	}
	if svc.AttachAudio("missing", buf) {
		t.Error("AttachAudio() = true for unknown id")
	}

	history := svc.History()
	if history[0].Audio == nil {
		t.Error("attached audio missing from history snapshot")
	}
}

func TestStartLiveDialFailureReleasesSlot(t *testing.T) {
	store := &fakeStore{}
	dialer := &failingDialer{}
	svc := newTestConversation(store, dialer)

	err := svc.StartLive(context.Background(), live.Config{Model: "m", Voice: "Kore"}, idleMic{}, nullSpeaker{}, Hooks{})
	if err == nil {
		t.Fatal("StartLive() error = nil, want dial failure")
	}
	if svc.LiveActive() {
		t.Error("LiveActive() = true after failed connect")
	}

	// The slot must be reusable after a failure.
	err = svc.StartLive(context.Background(), live.Config{Model: "m", Voice: "Kore"}, idleMic{}, nullSpeaker{}, Hooks{})
	if err == nil {
		t.Fatal("second StartLive() error = nil, want dial failure")
	}
	if dialer.calls != 2 {
		t.Errorf("dialer called %d times, want 2", dialer.calls)
	}
}

func TestStartLiveConcurrentCallersOpenOneSession(t *testing.T) {
	dialer := &countingDialer{}
	svc := newTestConversation(&fakeStore{}, dialer)

	const callers = 8
	var wg sync.WaitGroup
	var successes int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.StartLive(context.Background(), live.Config{Model: "m", Voice: "Kore"}, idleMic{}, nullSpeaker{}, Hooks{})
			if err == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("%d StartLive calls succeeded, want exactly 1", successes)
	}
	if dialer.calls != 1 {
		t.Errorf("dialer called %d times, want 1", dialer.calls)
	}
	if !svc.LiveActive() {
		t.Error("LiveActive() = false after a successful connect")
	}
	svc.StopLive(context.Background())
}

func TestStartLiveAfterStopReusesSlot(t *testing.T) {
	dialer := &countingDialer{}
	svc := newTestConversation(&fakeStore{}, dialer)
	cfg := live.Config{Model: "m", Voice: "Kore"}

	if err := svc.StartLive(context.Background(), cfg, idleMic{}, nullSpeaker{}, Hooks{}); err != nil {
		t.Fatalf("StartLive() error = %v", err)
	}
	if err := svc.StartLive(context.Background(), cfg, idleMic{}, nullSpeaker{}, Hooks{}); err == nil {
		t.Fatal("second StartLive() error = nil, want rejection while a session runs")
	}
	svc.StopLive(context.Background())

	if err := svc.StartLive(context.Background(), cfg, idleMic{}, nullSpeaker{}, Hooks{}); err != nil {
		t.Fatalf("StartLive() after StopLive() error = %v", err)
	}
	if dialer.calls != 2 {
		t.Errorf("dialer called %d times, want 2", dialer.calls)
	}
	svc.StopLive(context.Background())
}

func TestStopLiveWithoutSessionIsNoop(t *testing.T) {
	svc := newTestConversation(&fakeStore{}, &failingDialer{})
	svc.StopLive(context.Background())
	if svc.LiveActive() {
		t.Error("LiveActive() = true with no session")
	}
}
