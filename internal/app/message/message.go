/*
Package message contains the core data structures for chat messages.

It defines the Message envelope shared by every message kind (text, file,
private, system), the kind-specific file reference payload, and the
timestamp-derived message id.
*/
package message

import (
	"strconv"
	"time"
)

// Kind is the explicit tag distinguishing message variants that share the
// common envelope (id, sender, room, timestamp).
type Kind string

const (
	// KindText is a plain chat message.
	KindText Kind = "text"

	// KindFile is a message referencing an uploaded file by metadata only.
	KindFile Kind = "file"

	// KindPrivate is a direct message delivered outside room fanout.
	KindPrivate Kind = "private"

	// KindSystem is a server-generated message.
	KindSystem Kind = "system"
)

// FileRef carries the metadata for an uploaded file. The binary payload
// itself lives in the upload storage backend and is referenced by URL.
type FileRef struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimetype"`
}

// Message is the persisted and broadcast chat message. It is immutable after
// creation except for Reactions, which the store mutates under its writer lock.
type Message struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Sender    string    `json:"sender"`
	RoomID    string    `json:"roomId,omitempty"`
	Body      string    `json:"body,omitempty"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// File is set only for KindFile.
	File *FileRef `json:"file,omitempty"`

	// Reactions maps a reaction symbol to the set of user ids that added it.
	Reactions map[string][]string `json:"reactions,omitempty"`

	// IsPrivate and RecipientID are set only for KindPrivate.
	IsPrivate   bool   `json:"isPrivate,omitempty"`
	RecipientID string `json:"recipientId,omitempty"`
}

// NewID derives a message id from the given time at nanosecond resolution.
// Ids can collide under sufficiently rapid sends; no disambiguation is applied.
func NewID(at time.Time) string {
	return strconv.FormatInt(at.UnixNano(), 10)
}

// Clone returns a deep copy of the message, including its reaction sets.
func (m Message) Clone() Message {
	c := m
	if m.File != nil {
		f := *m.File
		c.File = &f
	}
	if m.Reactions != nil {
		c.Reactions = make(map[string][]string, len(m.Reactions))
		for symbol, users := range m.Reactions {
			c.Reactions[symbol] = append([]string(nil), users...)
		}
	}
	return c
}
