package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/voxlate/voxlate/audio"
)

// Role identifies the author of a chat turn.
type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// TextMergeWindow bounds how long a turn keeps absorbing partial transcripts
// for the same role before a new turn is started.
const TextMergeWindow = 3 * time.Second

// Turn is a contiguous run of content attributed to one speaker. Audio is kept
// only in memory and never serialized.
type Turn struct {
	ID        string        `json:"id"`
	Role      Role          `json:"role"`
	Text      string        `json:"text"`
	Timestamp time.Time     `json:"timestamp"`
	Audio     *audio.Buffer `json:"-"`
}

// Timeline is the ordered list of chat turns and the merge policy that folds
// bursts of partial events into them. It is not safe for concurrent use; the
// owning service serializes access.
type Timeline struct {
	turns []Turn
}

// NewTimeline creates a timeline seeded with previously persisted turns.
func NewTimeline(turns []Turn) *Timeline {
	return &Timeline{turns: turns}
}

// ApplyTranscript folds a partial transcript into the timeline. Partial text
// for a turn is cumulative, so a recent same-role turn is superseded rather
// than appended to; after a role switch or once TextMergeWindow has elapsed a
// new turn begins.
func (tl *Timeline) ApplyTranscript(role Role, text string, now time.Time) Turn {
	if n := len(tl.turns); n > 0 {
		last := &tl.turns[n-1]
		if last.Role == role && now.Sub(last.Timestamp) < TextMergeWindow {
			last.Text = text
			last.Timestamp = now
			return *last
		}
	}
	tl.turns = append(tl.turns, Turn{
		ID:        NewTurnID(),
		Role:      role,
		Text:      text,
		Timestamp: now,
	})
	return tl.turns[len(tl.turns)-1]
}

// AppendAudio concatenates a decoded chunk onto the most recent turn if that
// turn is model-authored. Unlike text, audio accumulates for as long as the
// model turn remains the latest; a spoken turn routinely outlives the text
// merge window. Chunks arriving with no model turn to attach to are discarded.
func (tl *Timeline) AppendAudio(buf *audio.Buffer) bool {
	n := len(tl.turns)
	if n == 0 || tl.turns[n-1].Role != RoleModel {
		return false
	}
	last := &tl.turns[n-1]
	last.Audio = audio.Concatenate([]*audio.Buffer{last.Audio, buf})
	return true
}

// NewTurnID returns a fresh unique turn identifier.
func NewTurnID() string {
	return uuid.NewString()
}

// Append adds a fully formed turn, sealing whatever came before it.
func (tl *Timeline) Append(turn Turn) {
	if turn.ID == "" {
		turn.ID = NewTurnID()
	}
	tl.turns = append(tl.turns, turn)
}

// AttachAudio sets the audio of the turn with the given id.
func (tl *Timeline) AttachAudio(id string, buf *audio.Buffer) bool {
	for i := range tl.turns {
		if tl.turns[i].ID == id {
			tl.turns[i].Audio = buf
			return true
		}
	}
	return false
}

// Turns returns a copy of the timeline contents.
func (tl *Timeline) Turns() []Turn {
	out := make([]Turn, len(tl.turns))
	copy(out, tl.turns)
	return out
}

// Len returns the number of turns.
func (tl *Timeline) Len() int {
	return len(tl.turns)
}

// Clear drops all turns.
func (tl *Timeline) Clear() {
	tl.turns = nil
}
