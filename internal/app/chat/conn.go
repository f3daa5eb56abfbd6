/*
This file defines the Conn struct, the WebSocket transport for a Session. It
owns the read and write loops, the connection heartbeat, and the buffered
outbound queue that decouples broadcasts from slow readers.
*/
package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"stagechat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// capacity of the per-connection outbound queue.
	sendQueueSize = 256
)

// Conn wraps an active WebSocket connection and implements Outbound for the
// hub. Events queued after the send buffer fills are dropped and the
// connection is closed, so one stuck reader cannot stall a broadcast.
type Conn struct {
	id      string
	ws      *websocket.Conn
	session *Session

	// a buffered channel used to queue events waiting to be sent to the client.
	send chan []byte

	// guards closed; broadcasts may race the connection teardown.
	mu     sync.Mutex
	closed bool

	logger zerolog.Logger
}

// NewConn constructs a Conn and its Session, registering the connection
// with the hub. The caller must start ReadPump and WritePump.
func NewConn(id string, ws *websocket.Conn, hub *Hub, deps *Deps) *Conn {
	c := &Conn{
		id:     id,
		ws:     ws,
		send:   make(chan []byte, sendQueueSize),
		logger: logx.Logger().With().Str("conn_id", id).Logger(),
	}

	c.session = NewSession(id, hub, deps, c)
	return c
}

// Send marshals an event onto the outbound queue. Called from the hub's
// broadcast paths; it must never block.
func (c *Conn) Send(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		c.logger.Error().Err(err).Str("event", e.Name).Msg("Failed to marshal outbound event")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- payload:
	default:
		c.logger.Warn().Str("event", e.Name).Msg("Send queue full, dropping connection")
		c.closed = true
		close(c.send)
	}
}

// closeSend closes the outbound queue exactly once, terminating WritePump.
func (c *Conn) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump handles reading events from the WebSocket connection. It handles
// heartbeats (Pong), event dispatch, and cleanup upon connection closure.
func (c *Conn) ReadPump(ctx context.Context) {
	defer c.cleanupOnDisconnect()

	c.ws.SetReadLimit(maxMessageSize)

	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.processInboundFrame(ctx, messageBytes)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the
// connection's ReadPump terminates.
func (c *Conn) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.session.Close()
	c.closeSend()

	if err := c.ws.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Client connection close error")
	}
}

// processInboundFrame parses one raw frame and hands it to the session.
func (c *Conn) processInboundFrame(ctx context.Context, messageBytes []byte) {
	var inbound InboundEvent
	if err := json.Unmarshal(messageBytes, &inbound); err != nil {
		c.logger.Warn().Err(err).
			Bytes("message_bytes", messageBytes).
			Msg("Client sent invalid JSON")
		return
	}

	if inbound.Name == "" {
		c.logger.Warn().Msg("Client sent frame without event name")
		return
	}

	c.session.Handle(ctx, inbound)
}

// WritePump handles writing events from the Conn.send channel to the
// WebSocket connection.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.ws.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage handles events pulled from the send channel, writing
// them to the WebSocket. Returns true if the WritePump loop should
// continue, false if it should terminate.
func (c *Conn) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.ws.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the
// connection heartbeat. Returns false if the WritePump loop should
// terminate due to write failure.
func (c *Conn) writePingMessage() bool {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
