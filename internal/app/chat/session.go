/*
Package chat contains the core logic for room-scoped chat synchronization:
session tracking, room membership, message ingestion, and event fanout.

This file defines the Session struct, the live state bound to one connection.
*/
package chat

import "chatsync/internal/app/user"

// Session is the per-connection state tracked by the Hub. It is created when
// the connection joins, mutated on room switches, and destroyed on disconnect.
// Session existence is the precondition for every messaging operation.
type Session struct {
	// ConnID is the connection id assigned at WebSocket upgrade.
	ConnID string

	// DisplayName is the user-visible identity of the connection. Reactions
	// and read receipts are keyed by it, so the same person reconnecting
	// keeps their receipt and reaction history.
	DisplayName string

	// Authenticated is set when the session is created; the bearer token was
	// already verified before the connection was upgraded.
	Authenticated bool

	// CurrentRoom is the room this connection belongs to. A connection is in
	// exactly one room at a time.
	CurrentRoom string
}

// User returns the identity of the connection as sent to clients.
func (s *Session) User() user.User {
	return user.User{ID: s.ConnID, DisplayName: s.DisplayName}
}
