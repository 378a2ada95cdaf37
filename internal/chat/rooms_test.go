package chat

import (
	"errors"
	"fmt"
	"testing"
)

// plainSecret matches a single plaintext. Tests use it instead of the bcrypt
// credential to stay fast.
type plainSecret string

func (s plainSecret) Match(password string) bool { return string(s) == password }

func memberFn(username, connID string) func() Member {
	return func() Member {
		return Member{Username: username, connID: connID}
	}
}

func TestCreateEnforcesRoomCap(t *testing.T) {
	rooms := NewRooms(DefaultMaxRooms)

	for i := 0; i < DefaultMaxRooms; i++ {
		if err := rooms.Create(fmt.Sprintf("room%d", i), plainSecret("pw")); err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}
	if err := rooms.Create("overflow", plainSecret("pw")); !errors.Is(err, ErrRoomLimit) {
		t.Fatalf("expected ErrRoomLimit, got %v", err)
	}
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	rooms := NewRooms(DefaultMaxRooms)

	if err := rooms.Create("den", plainSecret("pw")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := rooms.Create("den", plainSecret("other")); !errors.Is(err, ErrRoomExists) {
		t.Fatalf("expected ErrRoomExists, got %v", err)
	}
}

func TestJoinValidatesCredential(t *testing.T) {
	rooms := NewRooms(DefaultMaxRooms)
	if err := rooms.Create("den", plainSecret("secret")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, _, err := rooms.Join("den", "wrong", false, memberFn("alice", "c1")); !errors.Is(err, ErrBadCredential) {
		t.Fatalf("expected ErrBadCredential, got %v", err)
	}

	members, err := rooms.Members("den")
	if err != nil {
		t.Fatalf("members failed: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("rejected join must not add members, got %d", len(members))
	}

	added, snapshot, err := rooms.Join("den", "secret", false, memberFn("alice", "c1"))
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if added.Username != "alice" || added.ConnID() != "c1" {
		t.Fatalf("unexpected added member: %+v", added)
	}
	if len(snapshot) != 1 || snapshot[0].Username != "alice" {
		t.Fatalf("unexpected member snapshot: %+v", snapshot)
	}
}

func TestRejectedJoinDoesNotBuildMember(t *testing.T) {
	rooms := NewRooms(DefaultMaxRooms)
	if err := rooms.Create("den", plainSecret("secret")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	built := false
	build := func() Member {
		built = true
		return Member{Username: "alice", connID: "c1"}
	}

	if _, _, err := rooms.Join("den", "wrong", false, build); !errors.Is(err, ErrBadCredential) {
		t.Fatalf("expected ErrBadCredential, got %v", err)
	}
	if built {
		t.Fatalf("member constructor must not run for a rejected credential")
	}

	if _, _, err := rooms.Join("nowhere", "secret", false, build); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if built {
		t.Fatalf("member constructor must not run for a missing room")
	}
}

func TestTrustedJoinSkipsCredential(t *testing.T) {
	rooms := NewRooms(DefaultMaxRooms)
	if err := rooms.Create("den", plainSecret("secret")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, _, err := rooms.Join("den", "", true, memberFn("guest", "c1")); err != nil {
		t.Fatalf("trusted join failed: %v", err)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	rooms := NewRooms(DefaultMaxRooms)

	if _, _, err := rooms.Join("nowhere", "pw", false, memberFn("alice", "c1")); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestLeaveRemovesByConnIDNotName(t *testing.T) {
	rooms := NewRooms(DefaultMaxRooms)
	if err := rooms.Create("den", plainSecret("pw")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	// Two members sharing a display name.
	rooms.Join("den", "pw", false, memberFn("alice", "c1"))
	rooms.Join("den", "pw", false, memberFn("alice", "c2"))

	removed, remaining, deleted, err := rooms.Leave("den", "c1")
	if err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if deleted {
		t.Fatalf("room should survive with one member left")
	}
	if removed.ConnID() != "c1" {
		t.Fatalf("expected c1 removed, got %s", removed.ConnID())
	}
	if len(remaining) != 1 || remaining[0].ConnID() != "c2" {
		t.Fatalf("unexpected remaining members: %+v", remaining)
	}
}

func TestLastLeaveDeletesRoomAndFreesSlot(t *testing.T) {
	rooms := NewRooms(1)
	if err := rooms.Create("den", plainSecret("pw")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	rooms.Join("den", "pw", false, memberFn("alice", "c1"))

	_, _, deleted, err := rooms.Leave("den", "c1")
	if err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if !deleted {
		t.Fatalf("expected room deletion on last leave")
	}
	if names := rooms.Names(); len(names) != 0 {
		t.Fatalf("expected empty directory, got %v", names)
	}
	if err := rooms.Create("study", plainSecret("pw")); err != nil {
		t.Fatalf("slot should be free after deletion: %v", err)
	}
}

func TestNamesKeepCreationOrder(t *testing.T) {
	rooms := NewRooms(DefaultMaxRooms)
	for _, name := range []string{"den", "study", "attic"} {
		if err := rooms.Create(name, plainSecret("pw")); err != nil {
			t.Fatalf("create %s failed: %v", name, err)
		}
	}

	names := rooms.Names()
	if len(names) != 3 || names[0] != "den" || names[1] != "study" || names[2] != "attic" {
		t.Fatalf("unexpected order: %v", names)
	}
}
