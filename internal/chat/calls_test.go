package chat

import (
	"errors"
	"testing"
)

func TestStartReplacesActiveSession(t *testing.T) {
	calls := NewCalls()

	if replaced := calls.Start("den", Participant{Username: "alice", ID: "c1"}, CallAudio); replaced {
		t.Fatalf("first start must not report replacement")
	}
	if replaced := calls.Start("den", Participant{Username: "bob", ID: "c2"}, CallVideo); !replaced {
		t.Fatalf("second start must report replacement")
	}

	kind, ok := calls.Active("den")
	if !ok || kind != CallVideo {
		t.Fatalf("expected active video call, got %v %v", kind, ok)
	}
}

func TestJoinReturnsExistingParticipants(t *testing.T) {
	calls := NewCalls()
	calls.Start("den", Participant{Username: "alice", ID: "c1"}, CallVideo)

	others, kind, err := calls.Join("den", Participant{Username: "bob", ID: "c2"})
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if kind != CallVideo {
		t.Fatalf("expected video kind, got %s", kind)
	}
	if len(others) != 1 || others[0].ID != "c1" {
		t.Fatalf("expected only alice in others, got %+v", others)
	}
}

func TestJoinWithoutSession(t *testing.T) {
	calls := NewCalls()

	if _, _, err := calls.Join("den", Participant{ID: "c1"}); !errors.Is(err, ErrNoActiveCall) {
		t.Fatalf("expected ErrNoActiveCall, got %v", err)
	}
}

func TestLastLeaveEndsSession(t *testing.T) {
	calls := NewCalls()
	calls.Start("den", Participant{Username: "alice", ID: "c1"}, CallAudio)
	calls.Join("den", Participant{Username: "bob", ID: "c2"})

	remaining, ended, was := calls.Leave("den", "c1")
	if !was || ended {
		t.Fatalf("expected continuing session, got ended=%v was=%v", ended, was)
	}
	if len(remaining) != 1 || remaining[0].ID != "c2" {
		t.Fatalf("unexpected remaining: %+v", remaining)
	}

	_, ended, was = calls.Leave("den", "c2")
	if !was || !ended {
		t.Fatalf("expected session end, got ended=%v was=%v", ended, was)
	}
	if _, ok := calls.Active("den"); ok {
		t.Fatalf("session must be gone after last leave")
	}
}

func TestLeaveByNonParticipant(t *testing.T) {
	calls := NewCalls()
	calls.Start("den", Participant{Username: "alice", ID: "c1"}, CallAudio)

	if _, _, was := calls.Leave("den", "stranger"); was {
		t.Fatalf("non-participant leave must report wasParticipant=false")
	}
	if _, ok := calls.Active("den"); !ok {
		t.Fatalf("session must survive a non-participant leave")
	}
}

func TestDropDestroysSession(t *testing.T) {
	calls := NewCalls()
	calls.Start("den", Participant{Username: "alice", ID: "c1"}, CallAudio)
	calls.Drop("den")

	if _, ok := calls.Active("den"); ok {
		t.Fatalf("expected no session after drop")
	}
}
