/*
Package chat contains the core logic for room-scoped chat synchronization:
session tracking, room membership, message ingestion, and event fanout.

This file defines the Client struct, representing an active WebSocket
connection. It manages the connection's message loops (ReadPump and
WritePump), inbound event dispatch, and cleanup on disconnect.
*/
package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 16384

	// sendQueueSize is the buffer of the per-client outbound channel.
	sendQueueSize = 256
)

// Client wraps one live WebSocket connection. Everything about the user
// behind it (display name, room) lives in the Hub's session registry; the
// Client itself only knows its connection id and transport.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// id is the connection id assigned at upgrade.
	id string

	// send is a buffered channel queuing frames to be written to the client.
	// sendMu and sendClosed guard it so fanout racing with shutdown drops
	// frames instead of writing to a closed channel.
	send       chan []byte
	sendMu     sync.Mutex
	sendClosed bool

	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, connID string) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		id:   connID,
		send: make(chan []byte, sendQueueSize),
		logger: logx.Logger().With().
			Str("component", "Client").
			Str("conn_id", connID).
			Logger(),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// ReadPump reads frames from the WebSocket connection, dispatching each
// inbound event to the Hub. It handles heartbeats (Pong) and performs the
// unconditional Hub cleanup when the connection closes.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Disconnect(c)
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in ReadPump")
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		c.processInbound(frame)
	}
}

// processInbound decodes the event envelope and dispatches by type.
// Each event runs to completion before the next frame is read, so no two
// handlers for the same connection interleave.
func (c *Client) processInbound(frame []byte) {
	var inbound struct {
		Type    EventType       `json:"type"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}

	if err := json.Unmarshal(frame, &inbound); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON frame")
		return
	}

	ctx := context.Background()

	switch inbound.Type {
	case EventUserJoin:
		var p JoinPayload
		if !c.bindPayload(inbound.Payload, &p) {
			return
		}
		c.hub.Join(ctx, c, p.DisplayName, p.Room)

	case EventSwitchRoom:
		var p SwitchRoomPayload
		if !c.bindPayload(inbound.Payload, &p) {
			return
		}
		c.hub.SwitchRoom(ctx, c, p.Room)

	case EventSendMessage:
		var p SendMessagePayload
		if !c.bindPayload(inbound.Payload, &p) {
			return
		}
		c.hub.SendMessage(ctx, c, p.Body)

	case EventSendFile:
		var p SendFilePayload
		if !c.bindPayload(inbound.Payload, &p) {
			return
		}
		c.hub.SendFile(ctx, c, p.File)

	case EventTyping:
		var p TypingPayload
		if !c.bindPayload(inbound.Payload, &p) {
			return
		}
		c.hub.SetTyping(c, p.Typing)

	case EventPrivateMessage:
		var p PrivateMessagePayload
		if !c.bindPayload(inbound.Payload, &p) {
			return
		}
		c.hub.SendPrivateMessage(ctx, c, p.To, p.Body)

	case EventMessageRead:
		var p MessageReadPayload
		if !c.bindPayload(inbound.Payload, &p) {
			return
		}
		c.hub.MarkRead(ctx, c, p.MessageID)

	case EventAddReaction:
		var p ReactionPayload
		if !c.bindPayload(inbound.Payload, &p) {
			return
		}
		c.hub.AddReaction(ctx, c, p.MessageID, p.Symbol)

	case EventRemoveReaction:
		var p ReactionPayload
		if !c.bindPayload(inbound.Payload, &p) {
			return
		}
		c.hub.RemoveReaction(ctx, c, p.MessageID, p.Symbol)

	default:
		c.logger.Warn().Str("event_type", string(inbound.Type)).Msg("Client sent unsupported event type")
	}
}

// bindPayload unmarshals the raw payload, reporting a validation error to the
// client on failure.
func (c *Client) bindPayload(raw json.RawMessage, dst any) bool {
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid event payload")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return false
	}
	return true
}

// WritePump writes queued frames to the WebSocket connection and maintains
// the heartbeat ping.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug().Err(err).Msg("Error writing close message")
				}
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Error().Err(err).Msg("Error writing frame")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}

// sendEvent marshals the event and queues it for this connection.
func (c *Client) sendEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		c.logger.Error().Err(err).Str("event_type", string(event.Type)).Msg("Error marshaling event for client")
		return
	}
	c.enqueueRaw(data)
}

// enqueueRaw queues an already-marshaled frame, dropping it when the client
// cannot keep up or has already been closed.
func (c *Client) enqueueRaw(data []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping frame")
	}
}

// sendAck queues the acknowledgement for a send operation.
func (c *Client) sendAck(ack AckPayload) {
	c.sendEvent(Event{Type: EventMessageAck, Payload: ack})
}

// SendError queues a typed error event for this connection.
func (c *Client) SendError(customErr *errs.CustomError) {
	c.sendEvent(Event{Type: EventError, Payload: ErrorPayload{
		Code:    customErr.Code,
		Message: customErr.Message,
	}})
}

// closeSend closes the outbound channel, ending the write pump. Repeated
// calls are no-ops, and enqueueRaw drops frames once the flag is set.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.send)
}
