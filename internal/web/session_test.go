package web

import (
	"testing"
	"time"

	"github.com/smartbrew/outreach/internal/extract"
	"github.com/smartbrew/outreach/internal/message"
)

func TestSessionCreateAndGet(t *testing.T) {
	store := NewSessionStore(time.Minute)

	id, err := store.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(id) != 64 {
		t.Errorf("id length: got %d, want 64 hex chars", len(id))
	}

	if store.Get(id) == nil {
		t.Error("session not found")
	}
	if store.Get("") != nil {
		t.Error("empty id must return nil")
	}
	if store.Get("bogus") != nil {
		t.Error("unknown id must return nil")
	}
}

func TestSessionExpiry(t *testing.T) {
	store := NewSessionStore(-time.Second) // already expired on creation

	id, err := store.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if store.Get(id) != nil {
		t.Error("expired session returned")
	}
	if store.Count() != 0 {
		t.Errorf("expired session not purged on access: count %d", store.Count())
	}
}

func TestSessionUpdate(t *testing.T) {
	store := NewSessionStore(time.Minute)
	id, _ := store.Create()

	ok := store.Update(id, func(s *Session) {
		s.Step = "delivery"
		s.ExtractOrigin = message.OriginSent
		s.ExtractRows = []extract.Row{{RecipientEmail: "contact@acme.com"}}
	})
	if !ok {
		t.Fatal("update failed")
	}

	session := store.Get(id)
	if session.Step != "delivery" {
		t.Errorf("step: got %q", session.Step)
	}
	if len(session.ExtractRows) != 1 {
		t.Errorf("rows: got %d", len(session.ExtractRows))
	}

	if store.Update("missing", func(s *Session) {}) {
		t.Error("update of unknown session should report failure")
	}
}

func TestSessionUpdateExtendsExpiry(t *testing.T) {
	store := NewSessionStore(time.Minute)
	id, _ := store.Create()

	before := store.Get(id).ExpiresAt
	time.Sleep(10 * time.Millisecond)
	store.Update(id, func(s *Session) {})
	after := store.Get(id).ExpiresAt

	if !after.After(before) {
		t.Error("expiry not extended by update")
	}
}

func TestSessionDelete(t *testing.T) {
	store := NewSessionStore(time.Minute)
	id, _ := store.Create()

	store.Delete(id)

	if store.Get(id) != nil {
		t.Error("deleted session returned")
	}
	if store.Count() != 0 {
		t.Errorf("count: got %d, want 0", store.Count())
	}
}
