/*
Package store implements the durable document store behind the chat engine.

This file defines the query engine serving both the initial-load and
"load older"/search flows. Queries only ever read the document; a full scan
per call is acceptable because the retained log is capped.
*/
package store

import (
	"sort"
	"strings"

	"chatsync/internal/app/message"
)

// QueryResult is one page of a filtered, newest-first view of the retained log.
type QueryResult struct {
	Messages []message.Message `json:"messages"`

	// Total is the size of the filtered set before paging.
	Total int `json:"total"`

	// HasMore reports whether offset+limit < Total.
	HasMore bool `json:"hasMore"`
}

// QueryMessages filters the retained log to roomID, optionally narrows it to
// messages whose body or sender name contains search as a case-insensitive
// substring, sorts the result descending by timestamp, and returns the slice
// [offset, offset+limit). A stored message without a roomId is treated as
// belonging to the default room.
func (s *Store) QueryMessages(roomID string, limit, offset int, search string) QueryResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if roomID == "" {
		roomID = s.defaultRoom
	}

	filtered := make([]message.Message, 0, len(s.doc.Messages))
	needle := strings.ToLower(search)

	for _, m := range s.doc.Messages {
		room := m.RoomID
		if room == "" {
			room = s.defaultRoom
		}
		if room != roomID {
			continue
		}

		if needle != "" &&
			!strings.Contains(strings.ToLower(m.Body), needle) &&
			!strings.Contains(strings.ToLower(m.Sender), needle) {
			continue
		}

		filtered = append(filtered, m.Clone())
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.After(filtered[j].Timestamp)
	})

	total := len(filtered)

	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}

	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return QueryResult{
		Messages: filtered[start:end],
		Total:    total,
		HasMore:  offset+limit < total,
	}
}
