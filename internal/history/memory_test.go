package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"rootrelay/internal/activity"
)

func testRecord(conv string) Record {
	return Record{
		ID:             uuid.New(),
		ConversationID: conv,
		Type:           activity.TypeMessage,
		Text:           "hello",
		Status:         StatusReceived,
		Timestamp:      time.Now().UTC(),
	}
}

func TestNewMemoryStoreInvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		if _, err := NewMemoryStore(capacity); err != ErrInvalidCapacity {
			t.Errorf("capacity %d: expected ErrInvalidCapacity, got %v", capacity, err)
		}
	}
}

func TestSaveAndGet(t *testing.T) {
	store, err := NewMemoryStore(10)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}

	rec := testRecord("conv-1")
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ConversationID != "conv-1" {
		t.Errorf("ConversationID = %q, want %q", got.ConversationID, "conv-1")
	}
	if got.Status != StatusReceived {
		t.Errorf("Status = %q, want %q", got.Status, StatusReceived)
	}
	if store.Count() != 1 {
		t.Errorf("Count = %d, want 1", store.Count())
	}
}

func TestGetNotFound(t *testing.T) {
	store, _ := NewMemoryStore(10)
	if _, err := store.Get(uuid.New()); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEvictionAtCapacity(t *testing.T) {
	store, _ := NewMemoryStore(3)

	recs := make([]Record, 5)
	for i := range recs {
		recs[i] = testRecord(fmt.Sprintf("conv-%d", i))
		if err := store.Save(recs[i]); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	if store.Count() != 3 {
		t.Fatalf("Count = %d, want 3", store.Count())
	}

	// The two oldest records are gone.
	for i := 0; i < 2; i++ {
		if _, err := store.Get(recs[i].ID); err != ErrNotFound {
			t.Errorf("record %d: expected ErrNotFound, got %v", i, err)
		}
	}
	// The three newest survive.
	for i := 2; i < 5; i++ {
		if _, err := store.Get(recs[i].ID); err != nil {
			t.Errorf("record %d: unexpected error %v", i, err)
		}
	}
}

func TestListNewestFirst(t *testing.T) {
	store, _ := NewMemoryStore(10)

	for i := 0; i < 5; i++ {
		if err := store.Save(testRecord(fmt.Sprintf("conv-%d", i))); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	got, err := store.List(3, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"conv-4", "conv-3", "conv-2"} {
		if got[i].ConversationID != want {
			t.Errorf("got[%d].ConversationID = %q, want %q", i, got[i].ConversationID, want)
		}
	}
}

func TestListOffset(t *testing.T) {
	store, _ := NewMemoryStore(10)

	for i := 0; i < 5; i++ {
		if err := store.Save(testRecord(fmt.Sprintf("conv-%d", i))); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	got, err := store.List(10, 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ConversationID != "conv-1" || got[1].ConversationID != "conv-0" {
		t.Errorf("unexpected page: %q, %q", got[0].ConversationID, got[1].ConversationID)
	}

	if got, _ := store.List(0, 0); got != nil {
		t.Errorf("List(0, 0) = %v, want nil", got)
	}
}

func TestListWrapsAroundRing(t *testing.T) {
	store, _ := NewMemoryStore(3)

	for i := 0; i < 5; i++ {
		if err := store.Save(testRecord(fmt.Sprintf("conv-%d", i))); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	got, err := store.List(10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"conv-4", "conv-3", "conv-2"} {
		if got[i].ConversationID != want {
			t.Errorf("got[%d].ConversationID = %q, want %q", i, got[i].ConversationID, want)
		}
	}
}

func TestUpdateStatus(t *testing.T) {
	store, _ := NewMemoryStore(10)

	rec := testRecord("conv-1")
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := store.UpdateStatus(rec.ID, StatusForwarded); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	got, err := store.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusForwarded {
		t.Errorf("Status = %q, want %q", got.Status, StatusForwarded)
	}

	if err := store.UpdateStatus(uuid.New(), StatusFailed); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
