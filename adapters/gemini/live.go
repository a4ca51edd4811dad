// Package gemini implements the remote-service contracts against Google's
// generative AI API: the realtime live channel over its bidirectional
// websocket endpoint, and one-shot translation and speech synthesis through
// the genai SDK.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voxlate/voxlate/audio"
	"github.com/voxlate/voxlate/domain/repositories"
)

const (
	liveEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum inbound message size; audio chunks dominate.
	maxMessageSize = 1024 * 1024
)

// LiveDialer opens live channels against the Gemini bidirectional endpoint.
type LiveDialer struct {
	apiKey   string
	endpoint string
	logger   *zap.Logger
}

var _ repositories.RealtimeDialer = (*LiveDialer)(nil)

// NewLiveDialer creates a dialer. The credential is checked up front so the
// failure surfaces before any connection attempt.
func NewLiveDialer(apiKey string, logger *zap.Logger) (*LiveDialer, error) {
	if apiKey == "" {
		return nil, repositories.ErrCredentialMissing
	}
	return &LiveDialer{
		apiKey:   apiKey,
		endpoint: liveEndpoint,
		logger:   logger,
	}, nil
}

// Dial opens the websocket, sends the session negotiation payload and waits
// for the remote acknowledgement. The returned channel is ready to send on.
func (d *LiveDialer) Dial(ctx context.Context, cfg repositories.LiveConfig) (repositories.RealtimeChannel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, d.endpoint+"?key="+d.apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial live endpoint: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)

	model := cfg.Model
	if model == "" {
		model = LiveModel
	}
	setup := clientMessage{
		Setup: &setupPayload{
			Model: "models/" + model,
			GenerationConfig: &generationConfig{
				ResponseModalities: []string{"AUDIO"},
				SpeechConfig: &speechConfig{
					VoiceConfig: &voiceConfig{
						PrebuiltVoiceConfig: &prebuiltVoiceConfig{VoiceName: cfg.Voice},
					},
				},
			},
		},
	}
	if cfg.SystemInstruction != "" {
		setup.Setup.SystemInstruction = &contentPayload{Parts: []partPayload{{Text: cfg.SystemInstruction}}}
	}
	if cfg.InputTranscription {
		setup.Setup.InputAudioTranscription = &struct{}{}
	}
	if cfg.OutputTranscription {
		setup.Setup.OutputAudioTranscription = &struct{}{}
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(setup); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send setup: %w", err)
	}

	// The first server message acknowledges the negotiated session.
	var ack serverMessage
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read setup acknowledgement: %w", err)
	}
	if ack.SetupComplete == nil {
		conn.Close()
		return nil, fmt.Errorf("remote rejected session setup")
	}

	ch := &liveChannel{
		conn:   conn,
		events: make(chan repositories.ServerEvent, 32),
		send:   make(chan audio.EncodedChunk, 32),
		done:   make(chan struct{}),
		logger: d.logger,
	}
	go ch.readPump()
	go ch.writePump()

	d.logger.Info("Live channel open", zap.String("model", model), zap.String("voice", cfg.Voice))
	return ch, nil
}

// liveChannel is one open websocket session. The read pump decodes wire
// messages into tagged events exactly once; the write pump serializes
// outbound frames in the order Send was called.
type liveChannel struct {
	conn   *websocket.Conn
	events chan repositories.ServerEvent
	send   chan audio.EncodedChunk
	logger *zap.Logger

	closeOnce sync.Once
	done      chan struct{}

	// sendErr records a write-pump failure so the read pump can tell a
	// transport fault from an ordinary local Close.
	sendMu  sync.Mutex
	sendErr error
}

var _ repositories.RealtimeChannel = (*liveChannel)(nil)

func (c *liveChannel) Send(chunk audio.EncodedChunk) error {
	select {
	case c.send <- chunk:
		return nil
	case <-c.done:
		return fmt.Errorf("live channel closed")
	}
}

func (c *liveChannel) Events() <-chan repositories.ServerEvent {
	return c.events
}

func (c *liveChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	})
	return nil
}

func (c *liveChannel) recordSendErr(err error) {
	c.sendMu.Lock()
	if c.sendErr == nil {
		c.sendErr = err
	}
	c.sendMu.Unlock()
}

func (c *liveChannel) takeSendErr() error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.sendErr
}

// readPump decodes inbound wire messages until the connection drops, then
// emits the terminal event and closes the event stream.
func (c *liveChannel) readPump() {
	defer close(c.events)

	for {
		var msg serverMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
				// A failed write also closes done; that is a transport
				// fault, not a local teardown, and must surface as one.
				if sendErr := c.takeSendErr(); sendErr != nil {
					c.events <- repositories.ServerEvent{Kind: repositories.EventError, Err: sendErr}
				}
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.events <- repositories.ServerEvent{Kind: repositories.EventClosed, Reason: err.Error()}
			} else {
				c.events <- repositories.ServerEvent{Kind: repositories.EventError, Err: err}
			}
			return
		}

		for _, ev := range translateServerMessage(&msg, c.logger) {
			select {
			case c.events <- ev:
			case <-c.done:
				return
			}
		}
	}
}

// writePump serializes outbound frames onto the wire.
func (c *liveChannel) writePump() {
	for {
		select {
		case <-c.done:
			return
		case chunk := <-c.send:
			msg := clientMessage{
				RealtimeInput: &realtimeInput{
					MediaChunks: []mediaChunk{{MimeType: chunk.MimeType, Data: chunk.Data}},
				},
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error("Failed to write frame", zap.Error(err))
				c.recordSendErr(err)
				c.Close()
				return
			}
		}
	}
}

// translateServerMessage maps one wire message onto tagged events. A single
// message may populate several fields; events are emitted in a fixed order:
// transcripts, audio, then interruption.
func translateServerMessage(msg *serverMessage, logger *zap.Logger) []repositories.ServerEvent {
	sc := msg.ServerContent
	if sc == nil {
		return nil
	}

	var events []repositories.ServerEvent
	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		events = append(events, repositories.ServerEvent{
			Kind: repositories.EventUserTranscript,
			Text: sc.InputTranscription.Text,
		})
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		events = append(events, repositories.ServerEvent{
			Kind: repositories.EventModelTranscript,
			Text: sc.OutputTranscription.Text,
		})
	}
	if sc.ModelTurn != nil && len(sc.ModelTurn.Parts) > 0 {
		if inline := sc.ModelTurn.Parts[0].InlineData; inline != nil && inline.Data != "" {
			raw, err := base64.StdEncoding.DecodeString(inline.Data)
			if err != nil {
				logger.Warn("Failed to decode inline audio payload", zap.Error(err))
			} else {
				events = append(events, repositories.ServerEvent{
					Kind:       repositories.EventAudio,
					Audio:      raw,
					SampleRate: rateFromMimeType(inline.MimeType),
				})
			}
		}
	}
	if sc.Interrupted {
		events = append(events, repositories.ServerEvent{Kind: repositories.EventInterrupted})
	}
	return events
}

// rateFromMimeType parses "audio/pcm;rate=24000"; the playback default covers
// messages that omit the rate.
func rateFromMimeType(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		param = strings.TrimSpace(param)
		if value, found := strings.CutPrefix(param, "rate="); found {
			if rate, err := strconv.Atoi(value); err == nil {
				return rate
			}
		}
	}
	return audio.PlaybackRate
}
