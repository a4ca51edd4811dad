package history

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/voxlate/voxlate/audio"
	"github.com/voxlate/voxlate/domain/entities"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(Options{InMemory: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	turns := []entities.Turn{
		{ID: "t1", Role: entities.RoleUser, Text: "你好", Timestamp: time.Unix(100, 0).UTC()},
		{ID: "t2", Role: entities.RoleModel, Text: "Hello", Timestamp: time.Unix(101, 0).UTC()},
	}
	if err := store.Save(ctx, turns); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Load() returned %d turns, want 2", len(got))
	}
	if got[0].Text != "你好" || got[0].Role != entities.RoleUser {
		t.Errorf("first turn = %+v, want user 你好", got[0])
	}
	if got[1].Text != "Hello" || got[1].Role != entities.RoleModel {
		t.Errorf("second turn = %+v, want model Hello", got[1])
	}
}

func TestStoreLoadEmpty(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != nil {
		t.Errorf("Load() on empty store = %v, want nil", got)
	}
}

func TestStoreSaveReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []entities.Turn{{ID: "a", Role: entities.RoleUser, Text: "one"}}
	second := []entities.Turn{{ID: "b", Role: entities.RoleUser, Text: "two"}}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 || got[0].Text != "two" {
		t.Errorf("Load() after overwrite = %+v, want single turn 'two'", got)
	}
}

func TestStoreClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, []entities.Turn{{ID: "a", Text: "hi"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != nil {
		t.Errorf("Load() after Clear() = %v, want nil", got)
	}
}

func TestStoreDropsAudioOnSave(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	turns := []entities.Turn{{
		ID:    "a",
		Role:  entities.RoleModel,
		Text:  "Hello",
		Audio: audio.NewBuffer(1, 240, audio.PlaybackRate),
	}}
	if err := store.Save(ctx, turns); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Load() returned %d turns, want 1", len(got))
	}
	if got[0].Audio != nil {
		t.Error("audio buffer survived persistence, want it dropped")
	}
	if got[0].Text != "Hello" {
		t.Errorf("Text = %q, want %q", got[0].Text, "Hello")
	}
}
