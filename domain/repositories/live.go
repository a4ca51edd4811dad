package repositories

import (
	"context"

	"github.com/voxlate/voxlate/audio"
)

// LiveConfig is the negotiation payload sent when opening a live channel.
type LiveConfig struct {
	Model               string
	Voice               string
	SystemInstruction   string
	InputTranscription  bool
	OutputTranscription bool
}

// EventKind tags an inbound event from the remote service.
type EventKind int

const (
	// EventUserTranscript carries partial speech-to-text of the user.
	EventUserTranscript EventKind = iota
	// EventModelTranscript carries partial speech-to-text of the model reply.
	EventModelTranscript
	// EventAudio carries a raw PCM audio chunk of the model reply.
	EventAudio
	// EventInterrupted signals the user spoke over the model's audio.
	EventInterrupted
	// EventClosed signals the remote end closed the channel.
	EventClosed
	// EventError signals the channel failed.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventUserTranscript:
		return "user_transcript"
	case EventModelTranscript:
		return "model_transcript"
	case EventAudio:
		return "audio"
	case EventInterrupted:
		return "interrupted"
	case EventClosed:
		return "closed"
	case EventError:
		return "error"
	}
	return "unknown"
}

// ServerEvent is one decoded inbound event. Exactly one case is populated:
// Text for transcripts, Audio plus SampleRate for audio chunks, Reason for a
// close, Err for a failure. The channel adapter decodes the wire shape once;
// consumers switch on Kind and never inspect raw fields.
type ServerEvent struct {
	Kind       EventKind
	Text       string
	Audio      []byte
	SampleRate int
	Reason     string
	Err        error
}

// RealtimeChannel is one open bidirectional exchange with the remote service.
type RealtimeChannel interface {
	// Send transmits one encoded capture frame. Frames must be sent in
	// capture order.
	Send(chunk audio.EncodedChunk) error
	// Events returns the inbound event stream, delivered in arrival order.
	// The channel is closed after a terminal EventClosed or EventError.
	Events() <-chan ServerEvent
	// Close tears the channel down. Safe to call more than once.
	Close() error
}

// RealtimeDialer opens live channels. Dial returns once the remote end has
// acknowledged the session, so a returned channel is ready to send on.
type RealtimeDialer interface {
	Dial(ctx context.Context, cfg LiveConfig) (RealtimeChannel, error)
}
