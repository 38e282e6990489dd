/*
Package store implements the durable document store behind the chat engine.

This file defines the Store struct, the single writer through which every
mutation of the persisted document flows. Serializing the whole
read-modify-write cycle under one lock is what prevents two in-flight
mutations (say a reaction add and a message append) from overwriting each
other's effect.
*/
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatsync/internal/app/message"
	"chatsync/internal/pkg/logx"
)

// ErrMessageNotFound is returned for reaction or receipt operations that
// reference a message id outside the retained log.
var ErrMessageNotFound = errors.New("message not found in retained log")

// Backend persists the whole document. Save must be atomic: a crashed or
// failed write may lose that write but must never leave a torn document.
type Backend interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}

// Store owns the authoritative in-memory copy of the document and the single
// writer lock around it. Reads snapshot under the same lock.
type Store struct {
	mu      sync.Mutex
	backend Backend
	doc     *Document

	// retentionCap bounds the message log; insertion beyond it evicts the
	// oldest message first.
	retentionCap int

	// defaultRoom is the room a stored message with an empty roomId is
	// treated as belonging to.
	defaultRoom string

	logger zerolog.Logger
}

// New loads the document from the backend, normalizes it, and registers the
// default room if missing.
func New(ctx context.Context, backend Backend, retentionCap int, defaultRoom string) (*Store, error) {
	doc, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load store document: %w", err)
	}
	doc.normalize()

	s := &Store{
		backend:      backend,
		doc:          doc,
		retentionCap: retentionCap,
		defaultRoom:  defaultRoom,
		logger:       logx.Logger().With().Str("component", "Store").Logger(),
	}

	if err := s.EnsureRoom(ctx, defaultRoom); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("messages", len(doc.Messages)).
		Int("rooms", len(doc.Rooms)).
		Int("retention_cap", retentionCap).
		Msg("Store document loaded.")

	return s, nil
}

// RetentionCap returns the configured maximum length of the retained log.
func (s *Store) RetentionCap() int {
	return s.retentionCap
}

// DefaultRoom returns the room name used for messages persisted without one.
func (s *Store) DefaultRoom() string {
	return s.defaultRoom
}

// commit saves the mutated clone and swaps it in on success.
// Callers must hold s.mu.
func (s *Store) commit(ctx context.Context, next *Document) error {
	if err := s.backend.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to persist store document: %w", err)
	}
	s.doc = next
	return nil
}

// AppendMessage appends the message to the retained log, evicting the oldest
// message when the log would exceed the retention cap (FIFO).
func (s *Store) AppendMessage(ctx context.Context, msg message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.clone()
	next.Messages = append(next.Messages, msg.Clone())

	if evicted := len(next.Messages) - s.retentionCap; evicted > 0 {
		next.Messages = next.Messages[evicted:]
	}

	return s.commit(ctx, next)
}

// EnsureRoom registers the room name if it is not already known. Rooms are
// never deleted, so registered names stay valid destinations even when empty.
func (s *Store) EnsureRoom(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.hasRoom(name) {
		return nil
	}

	next := s.doc.clone()
	next.Rooms = append(next.Rooms, name)

	if err := s.commit(ctx, next); err != nil {
		return err
	}

	s.logger.Info().Str("room", name).Msg("Room registered.")
	return nil
}

// AddReaction adds userID to the reaction set for the given symbol. Adding an
// already-present pair is a no-op; the returned bool reports whether the
// stored state actually changed.
func (s *Store) AddReaction(ctx context.Context, messageID, userID, symbol string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.doc.findMessage(messageID)
	if idx < 0 {
		return false, ErrMessageNotFound
	}

	for _, id := range s.doc.Messages[idx].Reactions[symbol] {
		if id == userID {
			return false, nil
		}
	}

	next := s.doc.clone()
	msg := &next.Messages[idx]
	if msg.Reactions == nil {
		msg.Reactions = map[string][]string{}
	}
	msg.Reactions[symbol] = append(msg.Reactions[symbol], userID)

	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveReaction removes userID from the reaction set for the given symbol.
// Removing an absent pair is a no-op; the returned bool reports whether the
// stored state actually changed.
func (s *Store) RemoveReaction(ctx context.Context, messageID, userID, symbol string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.doc.findMessage(messageID)
	if idx < 0 {
		return false, ErrMessageNotFound
	}

	present := false
	for _, id := range s.doc.Messages[idx].Reactions[symbol] {
		if id == userID {
			present = true
			break
		}
	}
	if !present {
		return false, nil
	}

	next := s.doc.clone()
	msg := &next.Messages[idx]

	users := msg.Reactions[symbol][:0]
	for _, id := range msg.Reactions[symbol] {
		if id != userID {
			users = append(users, id)
		}
	}
	if len(users) == 0 {
		delete(msg.Reactions, symbol)
	} else {
		msg.Reactions[symbol] = users
	}

	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// MarkRead upserts the read timestamp for (messageID, userID), last write
// wins. It returns a copy of the message's full receipt map after the update.
func (s *Store) MarkRead(ctx context.Context, messageID, userID string, at time.Time) (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.findMessage(messageID) < 0 {
		return nil, ErrMessageNotFound
	}

	next := s.doc.clone()
	if next.ReadReceipts[messageID] == nil {
		next.ReadReceipts[messageID] = map[string]time.Time{}
	}
	next.ReadReceipts[messageID][userID] = at

	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}

	receipts := make(map[string]time.Time, len(s.doc.ReadReceipts[messageID]))
	for id, ts := range s.doc.ReadReceipts[messageID] {
		receipts[id] = ts
	}
	return receipts, nil
}

// Rooms returns a copy of the registered room names.
func (s *Store) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.doc.Rooms...)
}

// ReadReceipts returns a deep copy of the full receipt map.
func (s *Store) ReadReceipts() map[string]map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]map[string]time.Time, len(s.doc.ReadReceipts))
	for messageID, receipts := range s.doc.ReadReceipts {
		entry := make(map[string]time.Time, len(receipts))
		for userID, at := range receipts {
			entry[userID] = at
		}
		out[messageID] = entry
	}
	return out
}

// Message returns a copy of the message with the given id, if retained.
func (s *Store) Message(id string) (message.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.doc.findMessage(id)
	if idx < 0 {
		return message.Message{}, false
	}
	return s.doc.Messages[idx].Clone(), true
}
