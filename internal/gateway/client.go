// Package gateway is the websocket bridge between the browser UI and the
// translation services. The browser streams microphone audio as binary
// frames and receives timeline snapshots, volume levels, and scheduled
// playback audio as JSON messages.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voxlate/voxlate/domain/entities"
	"github.com/voxlate/voxlate/internal/live"
	"github.com/voxlate/voxlate/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Sized for binary audio frames.
	maxMessageSize = 512 * 1024

	// Time allowed for the live channel to come up on live_start.
	connectTimeout = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The app serves its own UI; cross-origin browsers are not expected.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Gateway upgrades browser connections and binds them to the conversation
// services. One browser client is active per connection.
type Gateway struct {
	conversations *usecase.ConversationService
	texts         *usecase.TextService
	template      live.Config
	clk           clock.Clock
	logger        *zap.Logger
}

// NewGateway creates a gateway. The template supplies the default model and
// system instruction for live sessions; the browser picks the voice.
func NewGateway(
	conversations *usecase.ConversationService,
	texts *usecase.TextService,
	template live.Config,
	clk clock.Clock,
	logger *zap.Logger,
) *Gateway {
	return &Gateway{
		conversations: conversations,
		texts:         texts,
		template:      template,
		clk:           clk,
		logger:        logger,
	}
}

// HandleWebSocket upgrades the request and starts the client pumps.
func (g *Gateway) HandleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		g.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		gateway: g,
		conn:    conn,
		send:    make(chan []byte, 256),
		mic:     &browserMic{},
		logger:  g.logger,
	}

	go client.writePump()
	go client.readPump()

	client.sendJSON(statusMessage{Type: msgStatus, State: "idle"})
	client.sendJSON(turnsMessage{Type: msgTurns, Turns: g.conversations.History()})
	return nil
}

// Client is one browser connection.
type Client struct {
	gateway *Gateway
	conn    *websocket.Conn

	// Buffered channel of outbound JSON payloads.
	send chan []byte

	mic    *browserMic
	logger *zap.Logger

	closeOnce sync.Once
}

// sendJSON queues a message for the browser. Returns false when the outbound
// queue is full; the message is dropped rather than blocking the caller,
// which may be the live session's event goroutine.
func (c *Client) sendJSON(v interface{}) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal outbound message", zap.Error(err))
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		c.logger.Warn("Outbound queue full, dropping message")
		return false
	}
}

// readPump pumps messages from the websocket connection to the services.
func (c *Client) readPump() {
	defer func() {
		c.gateway.conversations.StopLive(context.Background())
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			c.handleControl(message)
		case websocket.BinaryMessage:
			c.mic.push(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps queued messages to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}

func (c *Client) handleControl(message []byte) {
	var msg controlMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Error("Failed to parse control message", zap.Error(err))
		return
	}

	switch msg.Type {
	case msgLiveStart:
		c.handleLiveStart(msg)
	case msgLiveStop:
		c.gateway.conversations.StopLive(context.Background())
		c.sendJSON(statusMessage{Type: msgStatus, State: "idle"})
	case msgText:
		// Translation round-trips to the remote service; keep the read
		// loop free for microphone frames in the meantime.
		go c.handleText(msg)
	case msgClearHistory:
		if err := c.gateway.conversations.ClearHistory(context.Background()); err != nil {
			c.logger.Error("Failed to clear history", zap.Error(err))
			c.sendJSON(errorMessage{Type: msgError, Message: "failed to clear history"})
			return
		}
		c.sendJSON(turnsMessage{Type: msgTurns, Turns: []entities.Turn{}})
	default:
		c.logger.Warn("Unknown control message", zap.String("type", msg.Type))
	}
}

func (c *Client) handleLiveStart(msg controlMessage) {
	persona := entities.FindPersona(msg.VoiceID)
	cfg := c.gateway.template
	if msg.Model != "" {
		cfg.Model = msg.Model
	}
	cfg.Voice = persona.VoiceName

	hooks := usecase.Hooks{
		OnOpen: func() {
			c.sendJSON(statusMessage{Type: msgStatus, State: "live"})
		},
		OnTurns: func(turns []entities.Turn) {
			c.sendJSON(turnsMessage{Type: msgTurns, Turns: turns})
		},
		OnVolume: func(level float64) {
			c.sendJSON(volumeMessage{Type: msgVolume, Level: level})
		},
		OnClosed: func(reason string) {
			c.sendJSON(statusMessage{Type: msgStatus, State: "closed", Reason: reason})
		},
		OnError: func(err error) {
			c.sendJSON(errorMessage{Type: msgError, Message: err.Error()})
			c.sendJSON(statusMessage{Type: msgStatus, State: "failed"})
		},
	}

	speaker := &browserSpeaker{send: c.sendJSON, clk: c.gateway.clk}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := c.gateway.conversations.StartLive(ctx, cfg, c.mic, speaker, hooks); err != nil {
		c.logger.Error("Failed to start live session", zap.Error(err))
		c.sendJSON(errorMessage{Type: msgError, Message: err.Error()})
		c.sendJSON(statusMessage{Type: msgStatus, State: "failed"})
	}
}

func (c *Client) handleText(msg controlMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	persona := entities.FindPersona(msg.VoiceID)
	result, err := c.gateway.texts.Translate(ctx, msg.Text, persona)
	if err != nil {
		c.logger.Error("Text translation failed", zap.Error(err))
		c.sendJSON(errorMessage{Type: msgError, Message: err.Error()})
		return
	}

	c.sendJSON(resultMessage{
		Type:      msgResult,
		UserTurn:  result.UserTurn,
		ModelTurn: result.ModelTurn,
		HasAudio:  result.HasAudio,
	})
	c.sendJSON(turnsMessage{Type: msgTurns, Turns: c.gateway.conversations.History()})

	if result.HasAudio && result.ModelTurn.Audio != nil {
		speaker := &browserSpeaker{send: c.sendJSON, clk: c.gateway.clk}
		if err := speaker.PlayAt(result.ModelTurn.Audio, c.gateway.clk.Now()); err != nil {
			c.logger.Warn("Failed to ship synthesized audio", zap.Error(err))
		}
	}
}
