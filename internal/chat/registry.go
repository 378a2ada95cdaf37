package chat

import (
	"errors"
	"sync"
)

var (
	ErrConnNotFound = errors.New("connection not found")
	ErrAlreadyBound = errors.New("connection already bound to a room")
)

// Identity is the set of attributes bound to a live connection. Username,
// Color and Room stay empty until the connection joins a room.
type Identity struct {
	ConnID   string
	Username string
	Color    string
	Room     string
}

// Registry owns the connection table. A connection exists in the registry
// exactly while its underlying channel is open; absence from the registry is
// the single signal that a connection is gone.
type Registry struct {
	mu    sync.Mutex
	conns map[string]Identity
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Identity),
	}
}

// Register adds a connection with no bound attributes. Called when the
// underlying channel opens.
func (r *Registry) Register(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = Identity{ConnID: connID}
}

// Bind attaches room identity attributes to a registered connection. A
// connection joins at most one room per lifetime of its binding; a second
// Bind without an intervening Unbind fails.
func (r *Registry) Bind(connID, username, room, color string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.conns[connID]
	if !ok {
		return ErrConnNotFound
	}
	if id.Room != "" {
		return ErrAlreadyBound
	}

	id.Username = username
	id.Room = room
	id.Color = color
	r.conns[connID] = id
	return nil
}

func (r *Registry) Resolve(connID string) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.conns[connID]
	if !ok {
		return Identity{}, ErrConnNotFound
	}
	return id, nil
}

// Unbind clears the bound attributes but keeps the connection registered.
// Idempotent.
func (r *Registry) Unbind(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.conns[connID]
	if !ok {
		return
	}
	r.conns[connID] = Identity{ConnID: id.ConnID}
}

// Release removes the connection entirely. Called when the underlying
// channel closes, after room and call cleanup have run.
func (r *Registry) Release(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connID)
}
