package message

import (
	"strconv"
	"testing"
	"time"
)

func TestNewIDIsNanosecondTimestamp(t *testing.T) {
	at := time.Unix(1700000000, 123456789)

	id := NewID(at)

	parsed, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		t.Fatalf("id %q is not a decimal integer: %v", id, err)
	}
	if parsed != at.UnixNano() {
		t.Errorf("id = %d, want %d", parsed, at.UnixNano())
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := Message{
		ID:     "1",
		Sender: "alice",
		Kind:   KindFile,
		File:   &FileRef{URL: "/uploads/a.txt", Name: "a.txt"},
		Reactions: map[string][]string{
			"👍": {"alice", "bob"},
		},
	}

	clone := original.Clone()
	clone.File.URL = "/uploads/b.txt"
	clone.Reactions["👍"][0] = "mallory"
	clone.Reactions["🎉"] = []string{"carol"}

	if original.File.URL != "/uploads/a.txt" {
		t.Errorf("original file mutated through clone: %q", original.File.URL)
	}
	if original.Reactions["👍"][0] != "alice" {
		t.Errorf("original reaction set mutated through clone: %v", original.Reactions["👍"])
	}
	if _, ok := original.Reactions["🎉"]; ok {
		t.Error("reaction added to clone leaked into original")
	}
}
