package chat

import (
	"errors"
	"sync"
)

var (
	ErrNotInRoom    = errors.New("connection not in a room")
	ErrNoActiveCall = errors.New("no active call in room")
)

// CallKind distinguishes audio-only from video calls.
type CallKind string

const (
	CallAudio CallKind = "audio"
	CallVideo CallKind = "video"
)

func kindOf(isVideo bool) CallKind {
	if isVideo {
		return CallVideo
	}
	return CallAudio
}

// IsVideo is the wire representation of the kind.
func (k CallKind) IsVideo() bool { return k == CallVideo }

// Participant identifies one connection inside an active call.
type Participant struct {
	Username string `json:"username"`
	ID       string `json:"id"`
}

type callSession struct {
	starter      Participant
	kind         CallKind
	participants []Participant
}

// Calls tracks at most one active call session per room. A session exists
// from start-call until its participant set drains; it holds connection ids
// it does not own, so registry cleanup must route through Leave.
type Calls struct {
	mu     sync.Mutex
	active map[string]*callSession
}

func NewCalls() *Calls {
	return &Calls{
		active: make(map[string]*callSession),
	}
}

// Start opens a call session in the room with the starter as the sole
// participant. An already active session is overwritten, matching the
// single-session-per-room simplification; replaced reports when that
// happened so callers can observe it.
func (c *Calls) Start(roomName string, starter Participant, kind CallKind) (replaced bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, replaced = c.active[roomName]
	c.active[roomName] = &callSession{
		starter:      starter,
		kind:         kind,
		participants: []Participant{starter},
	}
	return replaced
}

// Join appends p to the room's active session and returns the other current
// participants, which the joiner needs to initiate a peer connection to each.
func (c *Calls) Join(roomName string, p Participant) (others []Participant, kind CallKind, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.active[roomName]
	if !ok {
		return nil, "", ErrNoActiveCall
	}

	others = make([]Participant, len(sess.participants))
	copy(others, sess.participants)
	sess.participants = append(sess.participants, p)
	return others, sess.kind, nil
}

// Leave removes connID from the room's session. When the participant set
// drains the session is destroyed and ended is true. remaining is a
// snapshot; wasParticipant is false when the connection was not in the call.
func (c *Calls) Leave(roomName, connID string) (remaining []Participant, ended, wasParticipant bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.active[roomName]
	if !ok {
		return nil, false, false
	}

	idx := -1
	for i, p := range sess.participants {
		if p.ID == connID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false, false
	}

	sess.participants = append(sess.participants[:idx], sess.participants[idx+1:]...)
	if len(sess.participants) == 0 {
		delete(c.active, roomName)
		return nil, true, true
	}

	remaining = make([]Participant, len(sess.participants))
	copy(remaining, sess.participants)
	return remaining, false, true
}

// Drop destroys the room's session without notifications. Used when the room
// itself disappears.
func (c *Calls) Drop(roomName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, roomName)
}

// Active reports the kind of the room's call, if one is running.
func (c *Calls) Active(roomName string) (CallKind, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.active[roomName]
	if !ok {
		return "", false
	}
	return sess.kind, true
}
