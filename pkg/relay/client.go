package relay

import (
	"log/slog"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/voxrelay/voxrelay/internal/metrics"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound frames; clients only send small control
	// messages, utterance audio arrives over HTTP
	maxMessageSize = 64 * 1024
)

// Client owns one participant's WebSocket connection lifecycle. It reads
// control messages off the wire and hands them to the hub, and drains the
// hub's outbound queue onto the connection.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message
	logger *slog.Logger
}

// NewClient joins the hub and binds the resulting participant to conn.
// The assigned participant id is announced to the peer end in a welcome
// control frame so later HTTP submissions can identify their sender.
func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	id, send := hub.Join()
	c := &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		send:   send,
		logger: logger.With("component", "relay.client", "participant", id),
	}

	if welcome, err := ControlMessage(Control{Type: ControlWelcome, ParticipantID: id}); err == nil {
		// Queue is empty at this point; the send cannot block.
		send <- welcome
	}
	return c
}

// ID returns the assigned participant id.
func (c *Client) ID() string {
	return c.id
}

// Serve runs the read and write pumps and blocks until the connection closes.
func (c *Client) Serve() {
	go c.writePump()
	c.readPump()
}

// readPump reads frames from the connection until it closes, dispatching
// control messages to the hub. Unparseable text frames are legacy/opaque
// payloads: counted, logged, and discarded without touching the connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			c.logger.Debug("ignoring non-text inbound frame", "bytes", len(data))
			continue
		}

		ctrl, err := DecodeControl(data)
		if err != nil {
			metrics.MalformedControlTotal.Inc()
			c.logger.Debug("discarding malformed control frame", "bytes", len(data))
			continue
		}

		switch ctrl.Type {
		case ControlLanguage:
			c.hub.SetLanguage(c.id, ctrl.Language)
		case ControlVoiceID:
			c.hub.SetVoice(c.id, ctrl.VoiceID)
		case ControlTranscription:
			c.hub.BroadcastControl(c.id, ctrl)
		}
	}
}

// writePump drains the hub queue onto the connection. Only this goroutine
// writes to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the queue - send close frame
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			wsType := websocket.TextMessage
			if msg.Binary {
				wsType = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(wsType, msg.Data); err != nil {
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
