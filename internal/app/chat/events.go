/*
Package chat contains the core logic for room-scoped chat synchronization:
session tracking, room membership, message ingestion, and event fanout.

This file defines the bidirectional event protocol. Every frame on the wire is
an Event envelope with an explicit type tag and a kind-specific JSON payload.
*/
package chat

import (
	"time"

	"chatsync/internal/app/message"
)

// user_joined and user_left events carry a user.User payload identifying the
// connection behind the transition.

// EventType tags the payload variant carried by an Event.
type EventType string

// Client-to-server event types.
const (
	EventUserJoin       EventType = "user_join"
	EventSwitchRoom     EventType = "switch_room"
	EventSendMessage    EventType = "send_message"
	EventSendFile       EventType = "send_file"
	EventTyping         EventType = "typing"
	EventPrivateMessage EventType = "private_message"
	EventMessageRead    EventType = "message_read"
	EventAddReaction    EventType = "add_reaction"
	EventRemoveReaction EventType = "remove_reaction"
)

// Server-to-client event types. EventPrivateMessage appears in both
// directions: inbound it carries the recipient and body, outbound the full
// persisted message.
const (
	EventRoomJoined      EventType = "room_joined"
	EventUserList        EventType = "user_list"
	EventUserJoined      EventType = "user_joined"
	EventUserLeft        EventType = "user_left"
	EventUserStatus      EventType = "user_status"
	EventReceiveMessage  EventType = "receive_message"
	EventMessageAck      EventType = "message_ack"
	EventTypingUsers     EventType = "typing_users"
	EventReadReceipt     EventType = "read_receipt"
	EventReactionAdded   EventType = "reaction_added"
	EventReactionRemoved EventType = "reaction_removed"
	EventError           EventType = "error"
)

// Event is the wire envelope for both directions of the event channel.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// JoinPayload requests joining a room under a display name.
type JoinPayload struct {
	DisplayName string `json:"displayName"`
	Room        string `json:"room"`
}

// SwitchRoomPayload requests an atomic move to another room.
type SwitchRoomPayload struct {
	Room string `json:"room"`
}

// SendMessagePayload carries the body of a text message.
type SendMessagePayload struct {
	Body string `json:"body"`
}

// SendFilePayload carries the metadata of a previously uploaded file.
type SendFilePayload struct {
	File message.FileRef `json:"fileRef"`
}

// TypingPayload signals the start or end of typing in the current room.
type TypingPayload struct {
	Typing bool `json:"typing"`
}

// PrivateMessagePayload addresses a message to one recipient connection.
type PrivateMessagePayload struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// MessageReadPayload marks a message as read by the sending connection's user.
type MessageReadPayload struct {
	MessageID string `json:"messageId"`
}

// ReactionPayload adds or removes one (symbol, user) reaction pair.
type ReactionPayload struct {
	MessageID string `json:"messageId"`
	Symbol    string `json:"symbol"`
}

// RoomJoinedPayload confirms the room a connection has entered.
type RoomJoinedPayload struct {
	Room string `json:"room"`
}

// UserListPayload is a fresh member-list snapshot for a room.
type UserListPayload struct {
	Members []string `json:"members"`
}

// UserStatusPayload reports a presence transition.
type UserStatusPayload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Presence status values carried by UserStatusPayload.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// AckPayload is the synchronous result of a send operation: either a new
// message id or a typed error message.
type AckPayload struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TypingUsersPayload lists the display names currently typing in a room.
type TypingUsersPayload struct {
	Users []string `json:"users"`
}

// ReadReceiptPayload carries the full receipt map of one message after an update.
type ReadReceiptPayload struct {
	MessageID string               `json:"messageId"`
	Receipts  map[string]time.Time `json:"receipts"`
}

// ReactionEventPayload is the delta broadcast for one reaction mutation.
type ReactionEventPayload struct {
	MessageID string `json:"messageId"`
	Symbol    string `json:"symbol"`
	UserID    string `json:"userId"`
}

// ErrorPayload reports a business error to one connection.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
