package chat

import (
	"errors"
	"testing"
)

func TestBindRequiresRegisteredConnection(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Bind("ghost", "alice", "den", "#667eea"); !errors.Is(err, ErrConnNotFound) {
		t.Fatalf("expected ErrConnNotFound, got %v", err)
	}
}

func TestBindResolveRoundTrip(t *testing.T) {
	reg := NewRegistry()
	reg.Register("c1")

	if err := reg.Bind("c1", "alice", "den", "#667eea"); err != nil {
		t.Fatalf("bind failed: %v", err)
	}

	id, err := reg.Resolve("c1")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if id.Username != "alice" || id.Room != "den" || id.Color != "#667eea" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestSecondBindRejected(t *testing.T) {
	reg := NewRegistry()
	reg.Register("c1")

	if err := reg.Bind("c1", "alice", "den", "#667eea"); err != nil {
		t.Fatalf("first bind failed: %v", err)
	}
	if err := reg.Bind("c1", "alice", "study", "#667eea"); !errors.Is(err, ErrAlreadyBound) {
		t.Fatalf("expected ErrAlreadyBound, got %v", err)
	}
}

func TestUnbindKeepsConnectionRegistered(t *testing.T) {
	reg := NewRegistry()
	reg.Register("c1")
	if err := reg.Bind("c1", "alice", "den", "#667eea"); err != nil {
		t.Fatalf("bind failed: %v", err)
	}

	reg.Unbind("c1")

	id, err := reg.Resolve("c1")
	if err != nil {
		t.Fatalf("resolve after unbind failed: %v", err)
	}
	if id.Room != "" || id.Username != "" {
		t.Fatalf("expected cleared attributes, got %+v", id)
	}
}

func TestReleaseRemovesConnection(t *testing.T) {
	reg := NewRegistry()
	reg.Register("c1")
	reg.Release("c1")

	if _, err := reg.Resolve("c1"); !errors.Is(err, ErrConnNotFound) {
		t.Fatalf("expected ErrConnNotFound after release, got %v", err)
	}
}
