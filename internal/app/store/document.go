/*
Package store implements the durable document store behind the chat engine.

This file defines the Document struct, the single persisted unit holding the
retained message log, the room directory, and the read-receipt map. The whole
document is loaded and saved as one value; backends must persist it atomically.
*/
package store

import (
	"time"

	"chatsync/internal/app/message"
)

// Document is the persisted layout: the capped message log, the known room
// names, and the read receipts keyed by message id then user id.
type Document struct {
	Messages     []message.Message               `json:"messages"`
	Rooms        []string                        `json:"rooms"`
	ReadReceipts map[string]map[string]time.Time `json:"readReceipts"`
}

// normalize replaces nil collections with empty ones so that loaded documents
// from older or hand-edited files behave like freshly created ones.
func (d *Document) normalize() {
	if d.Messages == nil {
		d.Messages = []message.Message{}
	}
	if d.Rooms == nil {
		d.Rooms = []string{}
	}
	if d.ReadReceipts == nil {
		d.ReadReceipts = map[string]map[string]time.Time{}
	}
}

// clone returns a deep copy of the document. Mutations are applied to a clone
// and swapped in only after the backend write succeeds, so a failed write
// never corrupts the in-memory state.
func (d *Document) clone() *Document {
	c := &Document{
		Messages:     make([]message.Message, 0, len(d.Messages)),
		Rooms:        append([]string(nil), d.Rooms...),
		ReadReceipts: make(map[string]map[string]time.Time, len(d.ReadReceipts)),
	}

	for _, m := range d.Messages {
		c.Messages = append(c.Messages, m.Clone())
	}

	for messageID, receipts := range d.ReadReceipts {
		entry := make(map[string]time.Time, len(receipts))
		for userID, at := range receipts {
			entry[userID] = at
		}
		c.ReadReceipts[messageID] = entry
	}

	return c
}

// hasRoom reports whether the room name is already registered.
func (d *Document) hasRoom(name string) bool {
	for _, room := range d.Rooms {
		if room == name {
			return true
		}
	}
	return false
}

// findMessage returns the index of the message with the given id, or -1.
func (d *Document) findMessage(id string) int {
	for i := range d.Messages {
		if d.Messages[i].ID == id {
			return i
		}
	}
	return -1
}
