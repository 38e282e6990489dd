package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"chatsync/internal/app/message"
)

// memBackend is an in-memory Backend for tests. When failSave is set, Save
// returns an error without recording anything.
type memBackend struct {
	doc      *Document
	saves    int
	failSave bool
}

func (b *memBackend) Load(context.Context) (*Document, error) {
	if b.doc == nil {
		return &Document{}, nil
	}
	return b.doc.clone(), nil
}

func (b *memBackend) Save(_ context.Context, doc *Document) error {
	if b.failSave {
		return errors.New("backend unavailable")
	}
	b.doc = doc.clone()
	b.saves++
	return nil
}

func newTestStore(t *testing.T, retentionCap int) (*Store, *memBackend) {
	t.Helper()

	backend := &memBackend{}
	s, err := New(context.Background(), backend, retentionCap, "general")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, backend
}

func testMessage(i int, room string) message.Message {
	return message.Message{
		ID:        fmt.Sprintf("m%d", i),
		SenderID:  "conn-1",
		Sender:    "alice",
		RoomID:    room,
		Body:      fmt.Sprintf("message %d", i),
		Kind:      message.KindText,
		Timestamp: time.Unix(1700000000+int64(i), 0),
	}
}

func TestAppendMessageEvictsOldestBeyondCap(t *testing.T) {
	s, _ := newTestStore(t, 3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := s.AppendMessage(ctx, testMessage(i, "general")); err != nil {
			t.Fatalf("AppendMessage(%d): %v", i, err)
		}
	}

	result := s.QueryMessages("general", 10, 0, "")
	if result.Total != 3 {
		t.Fatalf("Total = %d, want 3", result.Total)
	}

	// Newest first; the two oldest messages were evicted.
	wantIDs := []string{"m5", "m4", "m3"}
	for i, want := range wantIDs {
		if got := result.Messages[i].ID; got != want {
			t.Errorf("Messages[%d].ID = %q, want %q", i, got, want)
		}
	}
}

func TestAppendMessageRetainedLogLength(t *testing.T) {
	s, _ := newTestStore(t, 100)
	ctx := context.Background()

	for i := 1; i <= 40; i++ {
		if err := s.AppendMessage(ctx, testMessage(i, "general")); err != nil {
			t.Fatalf("AppendMessage(%d): %v", i, err)
		}
	}

	if got := s.QueryMessages("general", 200, 0, "").Total; got != 40 {
		t.Errorf("Total = %d, want 40 (min of N and cap)", got)
	}
}

func TestAppendMessageSaveFailureLeavesStateUntouched(t *testing.T) {
	s, backend := newTestStore(t, 10)
	ctx := context.Background()

	if err := s.AppendMessage(ctx, testMessage(1, "general")); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	backend.failSave = true
	if err := s.AppendMessage(ctx, testMessage(2, "general")); err == nil {
		t.Fatal("AppendMessage with failing backend: expected error")
	}

	backend.failSave = false
	result := s.QueryMessages("general", 10, 0, "")
	if result.Total != 1 || result.Messages[0].ID != "m1" {
		t.Errorf("store state after failed save = %+v, want only m1", result)
	}
}

func TestEnsureRoomIdempotentAndNeverDeleted(t *testing.T) {
	s, backend := newTestStore(t, 10)
	ctx := context.Background()

	if err := s.EnsureRoom(ctx, "random"); err != nil {
		t.Fatalf("EnsureRoom: %v", err)
	}
	savesAfterFirst := backend.saves

	if err := s.EnsureRoom(ctx, "random"); err != nil {
		t.Fatalf("EnsureRoom (repeat): %v", err)
	}
	if backend.saves != savesAfterFirst {
		t.Errorf("repeated EnsureRoom persisted again (%d saves, want %d)", backend.saves, savesAfterFirst)
	}

	rooms := s.Rooms()
	if len(rooms) != 2 || rooms[0] != "general" || rooms[1] != "random" {
		t.Errorf("Rooms() = %v, want [general random]", rooms)
	}
}

func TestReactionRoundTripRestoresPriorState(t *testing.T) {
	s, _ := newTestStore(t, 10)
	ctx := context.Background()

	if err := s.AppendMessage(ctx, testMessage(1, "general")); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	before, _ := s.Message("m1")

	changed, err := s.AddReaction(ctx, "m1", "alice", "👍")
	if err != nil || !changed {
		t.Fatalf("AddReaction = (%v, %v), want (true, nil)", changed, err)
	}

	changed, err = s.RemoveReaction(ctx, "m1", "alice", "👍")
	if err != nil || !changed {
		t.Fatalf("RemoveReaction = (%v, %v), want (true, nil)", changed, err)
	}

	after, _ := s.Message("m1")
	if len(after.Reactions) != len(before.Reactions) {
		t.Errorf("Reactions after round trip = %v, want %v", after.Reactions, before.Reactions)
	}
}

func TestAddReactionIdempotent(t *testing.T) {
	s, _ := newTestStore(t, 10)
	ctx := context.Background()

	if err := s.AppendMessage(ctx, testMessage(1, "general")); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	if changed, err := s.AddReaction(ctx, "m1", "alice", "🎉"); err != nil || !changed {
		t.Fatalf("first AddReaction = (%v, %v), want (true, nil)", changed, err)
	}
	if changed, err := s.AddReaction(ctx, "m1", "alice", "🎉"); err != nil || changed {
		t.Fatalf("repeated AddReaction = (%v, %v), want (false, nil)", changed, err)
	}

	msg, _ := s.Message("m1")
	if got := msg.Reactions["🎉"]; len(got) != 1 || got[0] != "alice" {
		t.Errorf("Reactions[🎉] = %v, want [alice]", got)
	}
}

func TestRemoveAbsentReactionIsNoOp(t *testing.T) {
	s, _ := newTestStore(t, 10)
	ctx := context.Background()

	if err := s.AppendMessage(ctx, testMessage(1, "general")); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	if changed, err := s.RemoveReaction(ctx, "m1", "alice", "👀"); err != nil || changed {
		t.Fatalf("RemoveReaction of absent pair = (%v, %v), want (false, nil)", changed, err)
	}
}

func TestReactionOnUnknownMessage(t *testing.T) {
	s, _ := newTestStore(t, 10)
	ctx := context.Background()

	if _, err := s.AddReaction(ctx, "nope", "alice", "👍"); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("AddReaction unknown id: err = %v, want ErrMessageNotFound", err)
	}
	if _, err := s.RemoveReaction(ctx, "nope", "alice", "👍"); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("RemoveReaction unknown id: err = %v, want ErrMessageNotFound", err)
	}
}

func TestMarkReadUpsertsLastWriteWins(t *testing.T) {
	s, _ := newTestStore(t, 10)
	ctx := context.Background()

	if err := s.AppendMessage(ctx, testMessage(1, "general")); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	first := time.Unix(1700000100, 0)
	second := time.Unix(1700000200, 0)

	if _, err := s.MarkRead(ctx, "m1", "bob", first); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	receipts, err := s.MarkRead(ctx, "m1", "bob", second)
	if err != nil {
		t.Fatalf("MarkRead (repeat): %v", err)
	}

	if len(receipts) != 1 {
		t.Fatalf("receipts for m1 = %v, want exactly one entry", receipts)
	}
	if !receipts["bob"].Equal(second) {
		t.Errorf("receipts[bob] = %v, want %v (later call wins)", receipts["bob"], second)
	}
}

func TestMarkReadUnknownMessage(t *testing.T) {
	s, _ := newTestStore(t, 10)

	if _, err := s.MarkRead(context.Background(), "nope", "bob", time.Now()); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("MarkRead unknown id: err = %v, want ErrMessageNotFound", err)
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	ctx := context.Background()

	backend, err := NewFileBackend(path)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}

	s, err := New(ctx, backend, 10, "general")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := s.AppendMessage(ctx, testMessage(1, "general")); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if _, err := s.MarkRead(ctx, "m1", "alice", time.Unix(1700000300, 0)); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	// A second store over the same file must see everything the first wrote.
	reopened, err := New(ctx, backend, 10, "general")
	if err != nil {
		t.Fatalf("New (reopen): %v", err)
	}

	if got := reopened.QueryMessages("general", 10, 0, "").Total; got != 1 {
		t.Errorf("reopened Total = %d, want 1", got)
	}
	if got := reopened.ReadReceipts(); got["m1"]["alice"].IsZero() {
		t.Errorf("reopened ReadReceipts = %v, want m1/alice entry", got)
	}
}

func TestFileBackendMissingFileYieldsEmptyDocument(t *testing.T) {
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}

	doc, err := backend.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Messages) != 0 || len(doc.Rooms) != 0 {
		t.Errorf("Load of missing file = %+v, want empty document", doc)
	}
}
