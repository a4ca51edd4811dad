package gateway

import (
	"github.com/voxlate/voxlate/domain/entities"
)

// Inbound control message types sent by the browser over the text channel.
// Microphone audio arrives separately as binary frames of little-endian
// float32 samples.
const (
	msgLiveStart    = "live_start"
	msgLiveStop     = "live_stop"
	msgText         = "text"
	msgClearHistory = "clear_history"
)

// Outbound message types sent to the browser.
const (
	msgStatus = "status"
	msgTurns  = "turns"
	msgVolume = "volume"
	msgAudio  = "audio"
	msgResult = "result"
	msgError  = "error"
)

// controlMessage is the envelope of every inbound text frame.
type controlMessage struct {
	Type    string `json:"type"`
	VoiceID string `json:"voiceId,omitempty"`
	Model   string `json:"model,omitempty"`
	Text    string `json:"text,omitempty"`
}

// statusMessage reports connection state transitions to the browser.
type statusMessage struct {
	Type   string `json:"type"`
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// turnsMessage carries a full timeline snapshot.
type turnsMessage struct {
	Type  string          `json:"type"`
	Turns []entities.Turn `json:"turns"`
}

// volumeMessage reports the current microphone level.
type volumeMessage struct {
	Type  string  `json:"type"`
	Level float64 `json:"level"`
}

// audioMessage carries a scheduled playback buffer. Data is base64 16-bit PCM
// and DelayMs tells the browser how long to hold the buffer before starting
// it, preserving the gapless schedule computed server-side.
type audioMessage struct {
	Type       string `json:"type"`
	Data       string `json:"data"`
	MimeType   string `json:"mimeType"`
	SampleRate int    `json:"sampleRate"`
	DelayMs    int64  `json:"delayMs"`
}

// resultMessage answers a one-shot text translation request.
type resultMessage struct {
	Type      string        `json:"type"`
	UserTurn  entities.Turn `json:"userTurn"`
	ModelTurn entities.Turn `json:"modelTurn"`
	HasAudio  bool          `json:"hasAudio"`
}

// errorMessage reports a failed operation.
type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
