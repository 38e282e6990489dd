/*
Package chat contains the core logic for room-scoped chat synchronization:
session tracking, room membership, message ingestion, and event fanout.

This file defines the Hub struct, the single coordinator owning the session
registry, the room directory, and the per-room typing state. All joins,
switches, and disconnects mutate that state atomically under one lock, and
every mutating operation persists through the store before anything is
broadcast.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatsync/internal/app/message"
	"chatsync/internal/app/store"
	"chatsync/internal/app/user"
	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/logx"
)

const (
	// MaxDisplayNameLen bounds the display name accepted at join and login.
	MaxDisplayNameLen = 32

	// MaxBodyBytes bounds the byte length of a message body.
	MaxBodyBytes = 5000
)

// Hub coordinates every live connection. It owns the session registry, the
// room directory derived from it, and the ephemeral typing state.
type Hub struct {
	mu sync.RWMutex

	// sessions maps connection id to live session state.
	sessions map[string]*Session

	// clients maps connection id to its transport wrapper.
	clients map[string]*Client

	// rooms maps room name to the set of member connections. Invariant: a
	// connection id appears in at most one room's member set, the room its
	// session names as CurrentRoom.
	rooms map[string]map[string]*Client

	// typing maps room name to connection id to display name. Never persisted.
	typing map[string]map[string]string

	store *store.Store

	logger zerolog.Logger
}

// NewHub constructs a Hub around the given store.
func NewHub(st *store.Store) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		clients:  make(map[string]*Client),
		rooms:    make(map[string]map[string]*Client),
		typing:   make(map[string]map[string]string),
		store:    st,
		logger:   logx.Logger().With().Str("component", "Hub").Logger(),
	}
}

// Join creates the session for a connection, enters it into the room, and
// fans out the join to the room's members. An empty room name selects the
// default room. The room registration is persisted before any broadcast.
func (h *Hub) Join(ctx context.Context, c *Client, displayName, room string) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" || len(displayName) > MaxDisplayNameLen {
		c.SendError(errs.NewError(errs.ErrDisplayNameInvalid, MaxDisplayNameLen))
		return
	}

	if room == "" {
		room = h.store.DefaultRoom()
	}

	if err := h.store.EnsureRoom(ctx, room); err != nil {
		h.logger.Error().Err(err).Str("room", room).Msg("Failed to persist room registration on join.")
		c.SendError(errs.NewError(errs.ErrPersistenceFailed))
		return
	}

	h.mu.Lock()
	// A repeated user_join replaces the session; drop any stale membership
	// first. Moving to a different room notifies the old one like SwitchRoom.
	var (
		left          bool
		leftUser      user.User
		oldRecipients []*Client
		oldMembers    []string
		oldTyping     []string
	)
	if old := h.sessions[c.id]; old != nil {
		h.leaveRoomLocked(old.CurrentRoom, c)
		if old.CurrentRoom != room {
			left = true
			leftUser = old.User()
			oldRecipients = h.roomClientsLocked(old.CurrentRoom)
			oldMembers = h.membersLocked(old.CurrentRoom)
			oldTyping = h.typingNamesLocked(old.CurrentRoom)
		}
	}
	h.sessions[c.id] = &Session{
		ConnID:        c.id,
		DisplayName:   displayName,
		Authenticated: true,
		CurrentRoom:   room,
	}
	h.clients[c.id] = c
	h.enterRoomLocked(room, c)
	members := h.membersLocked(room)
	recipients := h.roomClientsLocked(room)
	h.mu.Unlock()

	if left {
		h.fanout(oldRecipients, Event{Type: EventUserLeft, Payload: leftUser})
		h.fanout(oldRecipients, Event{Type: EventUserList, Payload: UserListPayload{Members: oldMembers}})
		h.fanout(oldRecipients, Event{Type: EventTypingUsers, Payload: TypingUsersPayload{Users: oldTyping}})
	}

	h.logger.Info().
		Str("conn_id", c.id).
		Str("display_name", displayName).
		Str("room", room).
		Int("members", len(members)).
		Msg("Connection joined room.")

	c.sendEvent(Event{Type: EventRoomJoined, Payload: RoomJoinedPayload{Room: room}})

	h.fanout(recipients, Event{Type: EventUserJoined, Payload: user.User{ID: c.id, DisplayName: displayName}})
	h.fanout(recipients, Event{Type: EventUserStatus, Payload: UserStatusPayload{ID: c.id, Status: StatusOnline}})
	h.fanout(recipients, Event{Type: EventUserList, Payload: UserListPayload{Members: members}})
}

// SwitchRoom atomically moves a connection from its current room to newRoom,
// registering newRoom if it is unknown. Typing state does not carry over.
func (h *Hub) SwitchRoom(ctx context.Context, c *Client, newRoom string) {
	newRoom = strings.TrimSpace(newRoom)
	if newRoom == "" {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	h.mu.RLock()
	sess := h.sessions[c.id]
	h.mu.RUnlock()
	if sess == nil {
		c.SendError(errs.NewError(errs.ErrUnauthorized))
		return
	}

	if err := h.store.EnsureRoom(ctx, newRoom); err != nil {
		h.logger.Error().Err(err).Str("room", newRoom).Msg("Failed to persist room registration on switch.")
		c.SendError(errs.NewError(errs.ErrPersistenceFailed))
		return
	}

	h.mu.Lock()
	oldRoom := sess.CurrentRoom
	if oldRoom == newRoom {
		h.mu.Unlock()
		c.sendEvent(Event{Type: EventRoomJoined, Payload: RoomJoinedPayload{Room: newRoom}})
		return
	}

	h.leaveRoomLocked(oldRoom, c)
	sess.CurrentRoom = newRoom
	h.enterRoomLocked(newRoom, c)

	oldRecipients := h.roomClientsLocked(oldRoom)
	oldMembers := h.membersLocked(oldRoom)
	oldTyping := h.typingNamesLocked(oldRoom)
	newRecipients := h.roomClientsLocked(newRoom)
	newMembers := h.membersLocked(newRoom)
	h.mu.Unlock()

	h.logger.Info().
		Str("conn_id", c.id).
		Str("from", oldRoom).
		Str("to", newRoom).
		Msg("Connection switched room.")

	h.fanout(oldRecipients, Event{Type: EventUserLeft, Payload: sess.User()})
	h.fanout(oldRecipients, Event{Type: EventUserList, Payload: UserListPayload{Members: oldMembers}})
	h.fanout(oldRecipients, Event{Type: EventTypingUsers, Payload: TypingUsersPayload{Users: oldTyping}})

	c.sendEvent(Event{Type: EventRoomJoined, Payload: RoomJoinedPayload{Room: newRoom}})

	h.fanout(newRecipients, Event{Type: EventUserJoined, Payload: sess.User()})
	h.fanout(newRecipients, Event{Type: EventUserList, Payload: UserListPayload{Members: newMembers}})
}

// Disconnect removes the session, room membership, and typing entry for a
// connection and fans out the departure. The cleanup is synchronous and never
// waits on an in-flight persistence operation.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	sess := h.sessions[c.id]
	if sess == nil {
		delete(h.clients, c.id)
		h.mu.Unlock()
		return
	}

	room := sess.CurrentRoom
	delete(h.sessions, c.id)
	delete(h.clients, c.id)
	h.leaveRoomLocked(room, c)

	recipients := h.roomClientsLocked(room)
	members := h.membersLocked(room)
	typing := h.typingNamesLocked(room)
	h.mu.Unlock()

	h.logger.Info().
		Str("conn_id", c.id).
		Str("display_name", sess.DisplayName).
		Str("room", room).
		Msg("Connection disconnected.")

	h.fanout(recipients, Event{Type: EventUserLeft, Payload: sess.User()})
	h.fanout(recipients, Event{Type: EventUserStatus, Payload: UserStatusPayload{ID: c.id, Status: StatusOffline}})
	h.fanout(recipients, Event{Type: EventUserList, Payload: UserListPayload{Members: members}})
	h.fanout(recipients, Event{Type: EventTypingUsers, Payload: TypingUsersPayload{Users: typing}})
}

// SendMessage runs the ingestion pipeline for a text message: precondition
// checks, stamping, persistence, acknowledgement, then room fanout.
func (h *Hub) SendMessage(ctx context.Context, c *Client, body string) {
	h.ingest(ctx, c, message.KindText, body, nil)
}

// SendFile runs the same pipeline for a file message. The binary payload was
// produced by the upload endpoint; only its metadata travels here.
func (h *Hub) SendFile(ctx context.Context, c *Client, file message.FileRef) {
	if file.URL == "" {
		c.sendAck(AckPayload{Success: false, Error: errs.NewError(errs.ErrInvalidParams).Message})
		return
	}
	h.ingest(ctx, c, message.KindFile, "", &file)
}

// ingest validates, stamps, persists, acknowledges, and broadcasts a room
// message. Persistence success is the precondition for visibility: on store
// failure the sender gets a failed ack and nothing is broadcast.
func (h *Hub) ingest(ctx context.Context, c *Client, kind message.Kind, body string, file *message.FileRef) {
	sess := h.authedSession(c)
	if sess == nil {
		c.sendAck(AckPayload{Success: false, Error: errs.NewError(errs.ErrNotJoined).Message})
		return
	}

	if kind == message.KindText {
		body = strings.TrimSpace(body)
		if body == "" {
			c.sendAck(AckPayload{Success: false, Error: errs.NewError(errs.ErrMessageBodyEmpty).Message})
			return
		}
		if len(body) > MaxBodyBytes {
			c.sendAck(AckPayload{Success: false, Error: errs.NewError(errs.ErrMessageContentTooLong).Message})
			return
		}
	}

	now := time.Now()
	msg := message.Message{
		ID:        message.NewID(now),
		SenderID:  c.id,
		Sender:    sess.DisplayName,
		RoomID:    sess.CurrentRoom,
		Body:      body,
		Kind:      kind,
		Timestamp: now,
		File:      file,
	}

	if err := h.store.AppendMessage(ctx, msg); err != nil {
		h.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to persist message.")
		c.sendAck(AckPayload{Success: false, Error: errs.NewError(errs.ErrPersistenceFailed).Message})
		return
	}

	c.sendAck(AckPayload{Success: true, MessageID: msg.ID})

	h.mu.RLock()
	recipients := h.roomClientsLocked(sess.CurrentRoom)
	h.mu.RUnlock()

	// The sender is a room member, so it receives the broadcast as well.
	h.fanout(recipients, Event{Type: EventReceiveMessage, Payload: msg})
}

// SendPrivateMessage persists a private message under the sender's current
// room and delivers it to exactly two connections, sender and recipient,
// bypassing room fanout. Persisting under the sender's room means room-scoped
// history can surface the message there; that mirrors the original design and
// is intentionally left as is.
func (h *Hub) SendPrivateMessage(ctx context.Context, c *Client, to, body string) {
	sess := h.authedSession(c)
	if sess == nil {
		c.sendAck(AckPayload{Success: false, Error: errs.NewError(errs.ErrNotJoined).Message})
		return
	}

	body = strings.TrimSpace(body)
	if body == "" {
		c.sendAck(AckPayload{Success: false, Error: errs.NewError(errs.ErrMessageBodyEmpty).Message})
		return
	}

	now := time.Now()
	msg := message.Message{
		ID:          message.NewID(now),
		SenderID:    c.id,
		Sender:      sess.DisplayName,
		RoomID:      sess.CurrentRoom,
		Body:        body,
		Kind:        message.KindPrivate,
		Timestamp:   now,
		IsPrivate:   true,
		RecipientID: to,
	}

	if err := h.store.AppendMessage(ctx, msg); err != nil {
		h.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to persist private message.")
		c.sendAck(AckPayload{Success: false, Error: errs.NewError(errs.ErrPersistenceFailed).Message})
		return
	}

	c.sendAck(AckPayload{Success: true, MessageID: msg.ID})

	h.mu.RLock()
	recipient := h.clients[to]
	h.mu.RUnlock()

	event := Event{Type: EventPrivateMessage, Payload: msg}
	c.sendEvent(event)
	if recipient != nil {
		recipient.sendEvent(event)
	} else {
		h.logger.Warn().Str("recipient_id", to).Msg("Private message recipient not connected.")
	}
}

// AddReaction persists one reaction addition and broadcasts the delta to the
// sender's current room. An already-present pair is a no-op and produces no
// broadcast. An unknown message id is logged and otherwise swallowed.
func (h *Hub) AddReaction(ctx context.Context, c *Client, messageID, symbol string) {
	h.mutateReaction(ctx, c, messageID, symbol, EventReactionAdded, h.store.AddReaction)
}

// RemoveReaction persists one reaction removal and broadcasts the delta to
// the sender's current room, with the same no-op and unknown-id behavior as
// AddReaction.
func (h *Hub) RemoveReaction(ctx context.Context, c *Client, messageID, symbol string) {
	h.mutateReaction(ctx, c, messageID, symbol, EventReactionRemoved, h.store.RemoveReaction)
}

func (h *Hub) mutateReaction(
	ctx context.Context,
	c *Client,
	messageID, symbol string,
	eventType EventType,
	mutate func(context.Context, string, string, string) (bool, error),
) {
	sess := h.authedSession(c)
	if sess == nil {
		c.SendError(errs.NewError(errs.ErrNotJoined))
		return
	}

	changed, err := mutate(ctx, messageID, sess.DisplayName, symbol)
	if err != nil {
		if errors.Is(err, store.ErrMessageNotFound) {
			h.logger.Warn().Str("message_id", messageID).Msg("Reaction mutation for unknown message id ignored.")
			return
		}
		h.logger.Error().Err(err).Str("message_id", messageID).Msg("Failed to persist reaction mutation.")
		c.SendError(errs.NewError(errs.ErrPersistenceFailed))
		return
	}

	if !changed {
		return
	}

	h.mu.RLock()
	recipients := h.roomClientsLocked(sess.CurrentRoom)
	h.mu.RUnlock()

	h.fanout(recipients, Event{Type: eventType, Payload: ReactionEventPayload{
		MessageID: messageID,
		Symbol:    symbol,
		UserID:    sess.DisplayName,
	}})
}

// MarkRead upserts a read receipt for the message and broadcasts the updated
// receipt map. The broadcast is scoped to the marking user's current room,
// which can differ from the message's own room; that scoping comes from the
// original design and is preserved.
func (h *Hub) MarkRead(ctx context.Context, c *Client, messageID string) {
	sess := h.authedSession(c)
	if sess == nil {
		c.SendError(errs.NewError(errs.ErrNotJoined))
		return
	}

	receipts, err := h.store.MarkRead(ctx, messageID, sess.DisplayName, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrMessageNotFound) {
			h.logger.Warn().Str("message_id", messageID).Msg("Read receipt for unknown message id ignored.")
			return
		}
		h.logger.Error().Err(err).Str("message_id", messageID).Msg("Failed to persist read receipt.")
		c.SendError(errs.NewError(errs.ErrPersistenceFailed))
		return
	}

	h.mu.RLock()
	recipients := h.roomClientsLocked(sess.CurrentRoom)
	h.mu.RUnlock()

	h.fanout(recipients, Event{Type: EventReadReceipt, Payload: ReadReceiptPayload{
		MessageID: messageID,
		Receipts:  receipts,
	}})
}

// SetTyping updates the ephemeral typing state for the connection's room and
// broadcasts the refreshed typing list to it.
func (h *Hub) SetTyping(c *Client, typing bool) {
	h.mu.Lock()
	sess := h.sessions[c.id]
	if sess == nil {
		h.mu.Unlock()
		return
	}

	room := sess.CurrentRoom
	if typing {
		if h.typing[room] == nil {
			h.typing[room] = make(map[string]string)
		}
		h.typing[room][c.id] = sess.DisplayName
	} else if h.typing[room] != nil {
		delete(h.typing[room], c.id)
	}

	recipients := h.roomClientsLocked(room)
	users := h.typingNamesLocked(room)
	h.mu.Unlock()

	h.fanout(recipients, Event{Type: EventTypingUsers, Payload: TypingUsersPayload{Users: users}})
}

// RoomMembers returns the display names of the room's current members.
func (h *Hub) RoomMembers(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.membersLocked(room)
}

// RoomOfUser returns the current room of any session with the given display
// name. The bool is false when no such session exists.
func (h *Hub) RoomOfUser(displayName string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sess := range h.sessions {
		if sess.DisplayName == displayName {
			return sess.CurrentRoom, true
		}
	}
	return "", false
}

// CurrentRoom returns the room of the given connection id, if it has a session.
func (h *Hub) CurrentRoom(connID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sess := h.sessions[connID]
	if sess == nil {
		return "", false
	}
	return sess.CurrentRoom, true
}

// Shutdown closes every client send channel, terminating their write pumps.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.clients {
		c.closeSend()
	}
	h.sessions = make(map[string]*Session)
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]*Client)
	h.typing = make(map[string]map[string]string)

	h.logger.Info().Msg("Hub shutdown complete.")
}

// authedSession returns the connection's session when it is authenticated and
// joined to a room, nil otherwise.
func (h *Hub) authedSession(c *Client) *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sess := h.sessions[c.id]
	if sess == nil || !sess.Authenticated || sess.CurrentRoom == "" {
		return nil
	}
	return sess
}

// enterRoomLocked inserts the client into the room's member set. Callers hold h.mu.
func (h *Hub) enterRoomLocked(room string, c *Client) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Client)
	}
	h.rooms[room][c.id] = c
}

// leaveRoomLocked removes the client from the room's member set and typing
// map. The room entry itself is kept; room names stay valid destinations.
func (h *Hub) leaveRoomLocked(room string, c *Client) {
	if h.rooms[room] != nil {
		delete(h.rooms[room], c.id)
	}
	if h.typing[room] != nil {
		delete(h.typing[room], c.id)
	}
}

// roomClientsLocked snapshots the clients in a room. Callers hold h.mu.
func (h *Hub) roomClientsLocked(room string) []*Client {
	members := h.rooms[room]
	out := make([]*Client, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// membersLocked returns the sorted display names of a room's members. Callers hold h.mu.
func (h *Hub) membersLocked(room string) []string {
	out := make([]string, 0, len(h.rooms[room]))
	for id := range h.rooms[room] {
		if sess := h.sessions[id]; sess != nil {
			out = append(out, sess.DisplayName)
		}
	}
	sort.Strings(out)
	return out
}

// typingNamesLocked returns the sorted display names typing in a room. Callers hold h.mu.
func (h *Hub) typingNamesLocked(room string) []string {
	out := make([]string, 0, len(h.typing[room]))
	for _, name := range h.typing[room] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// fanout marshals the event once and enqueues it to every recipient.
func (h *Hub) fanout(recipients []*Client, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to marshal event for fanout.")
		return
	}

	for _, c := range recipients {
		c.enqueueRaw(data)
	}
}
