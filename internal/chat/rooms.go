package chat

import (
	"errors"
	"sync"
)

// DefaultMaxRooms is the system-wide cap on concurrent rooms.
const DefaultMaxRooms = 5

var (
	ErrRoomLimit     = errors.New("maximum number of rooms reached")
	ErrRoomExists    = errors.New("room already exists")
	ErrRoomNotFound  = errors.New("room not found")
	ErrBadCredential = errors.New("incorrect password")
)

// Credential is the opaque room secret. Match reports whether a presented
// password is the one the room was created with. The concrete scheme is
// supplied by the caller; the directory never sees plaintext after create.
type Credential interface {
	Match(password string) bool
}

// Member is one entry in a room's member list, in join order. The connection
// id is kept so a leave removes exactly the leaver's record even when
// display names collide.
type Member struct {
	Username string `json:"username"`
	Color    string `json:"color"`

	connID string
}

// ConnID returns the connection the member record belongs to.
func (m Member) ConnID() string { return m.connID }

type room struct {
	name    string
	secret  Credential
	members []Member
}

// Rooms is the room directory: existence, membership and the credential
// gate. Rooms are created explicitly, mutated by join/leave and deleted as
// soon as they have no members.
type Rooms struct {
	mu       sync.Mutex
	rooms    map[string]*room
	order    []string
	maxRooms int
}

func NewRooms(maxRooms int) *Rooms {
	if maxRooms <= 0 {
		maxRooms = DefaultMaxRooms
	}
	return &Rooms{
		rooms:    make(map[string]*room),
		maxRooms: maxRooms,
	}
}

// Create registers a new empty room. The room counts against the cap from
// this moment even though it has no members until the first join.
func (r *Rooms) Create(name string, secret Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.rooms) >= r.maxRooms {
		return ErrRoomLimit
	}
	if _, exists := r.rooms[name]; exists {
		return ErrRoomExists
	}

	r.rooms[name] = &room{name: name, secret: secret}
	r.order = append(r.order, name)
	return nil
}

// Join validates the credential and appends the member produced by newMember.
// newMember runs only once validation has passed, so building the record may
// carry side effects (color assignment) without a rejected join leaving any
// trace. With trusted set the credential check is skipped (invite token
// joins). Returns the appended member and a snapshot of the list after the
// join.
func (r *Rooms) Join(name, password string, trusted bool, newMember func() Member) (Member, []Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[name]
	if !ok {
		return Member{}, nil, ErrRoomNotFound
	}
	if !trusted && !rm.secret.Match(password) {
		return Member{}, nil, ErrBadCredential
	}

	m := newMember()
	rm.members = append(rm.members, m)
	return m, snapshotMembers(rm.members), nil
}

// Leave removes the member record belonging to connID. It returns the
// removed member, the remaining members and whether the now-empty room was
// deleted. A connection with no record in the room is a no-op.
func (r *Rooms) Leave(name, connID string) (removed Member, remaining []Member, deleted bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[name]
	if !ok {
		return Member{}, nil, false, ErrRoomNotFound
	}

	idx := -1
	for i, m := range rm.members {
		if m.connID == connID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Member{}, snapshotMembers(rm.members), false, nil
	}

	removed = rm.members[idx]
	rm.members = append(rm.members[:idx], rm.members[idx+1:]...)

	if len(rm.members) == 0 {
		delete(r.rooms, name)
		r.removeFromOrder(name)
		return removed, nil, true, nil
	}
	return removed, snapshotMembers(rm.members), false, nil
}

// Members returns a snapshot of the room's member list in join order.
func (r *Rooms) Members(name string) ([]Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[name]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return snapshotMembers(rm.members), nil
}

// CheckCredential verifies a password against an existing room.
func (r *Rooms) CheckCredential(name, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[name]
	if !ok {
		return ErrRoomNotFound
	}
	if !rm.secret.Match(password) {
		return ErrBadCredential
	}
	return nil
}

// Names lists room names in creation order.
func (r *Rooms) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Rooms) removeFromOrder(name string) {
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

func snapshotMembers(members []Member) []Member {
	out := make([]Member, len(members))
	copy(out, members)
	return out
}
