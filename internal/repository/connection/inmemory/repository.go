package inmemory

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/V1b3Harshal/providers-backend-sub000/internal/repository/connection"
)

type entry struct {
	binding connection.Binding
	writeMu sync.Mutex
}

type Repo struct {
	mu     sync.RWMutex
	conns  map[*websocket.Conn]*entry
	byUser map[string]*websocket.Conn
	byRoom map[string]map[*websocket.Conn]struct{}
}

func NewRepo() *Repo {
	return &Repo{
		conns:  make(map[*websocket.Conn]*entry),
		byUser: make(map[string]*websocket.Conn),
		byRoom: make(map[string]map[*websocket.Conn]struct{}),
	}
}

func (r *Repo) Add(conn *websocket.Conn, binding connection.Binding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn]; ok {
		return connection.ErrAlreadyExists
	}
	if _, ok := r.byUser[binding.UserId]; ok {
		return connection.ErrAlreadyExists
	}

	r.conns[conn] = &entry{binding: binding}
	r.byUser[binding.UserId] = conn

	return nil
}

// BindRoom attaches the connection to a room.
func (r *Repo) BindRoom(conn *websocket.Conn, roomId string, isAdmin bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[conn]
	if !ok {
		return connection.ErrNotFound
	}

	if e.binding.RoomId != "" {
		r.removeFromRoom(e.binding.RoomId, conn)
	}

	e.binding.RoomId = roomId
	e.binding.IsAdmin = isAdmin

	if r.byRoom[roomId] == nil {
		r.byRoom[roomId] = make(map[*websocket.Conn]struct{})
	}
	r.byRoom[roomId][conn] = struct{}{}

	return nil
}

// UnbindRoom detaches the identity's connection from the room without
// closing it. Returns ErrNotFound if the identity has no bound conn.
func (r *Repo) UnbindRoom(roomId, userId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.byUser[userId]
	if !ok {
		return connection.ErrNotFound
	}

	e := r.conns[conn]
	if e == nil || e.binding.RoomId != roomId {
		return connection.ErrNotFound
	}

	e.binding.RoomId = ""
	e.binding.IsAdmin = false
	r.removeFromRoom(roomId, conn)

	return nil
}

// SetAdmin updates the bound admin role for an identity in a room.
func (r *Repo) SetAdmin(roomId, userId string, isAdmin bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.byUser[userId]
	if !ok {
		return connection.ErrNotFound
	}

	e := r.conns[conn]
	if e == nil || e.binding.RoomId != roomId {
		return connection.ErrNotFound
	}

	e.binding.IsAdmin = isAdmin

	return nil
}

func (r *Repo) RemoveByConn(conn *websocket.Conn) (connection.Binding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[conn]
	if !ok {
		return connection.Binding{}, connection.ErrNotFound
	}

	delete(r.conns, conn)
	delete(r.byUser, e.binding.UserId)
	if e.binding.RoomId != "" {
		r.removeFromRoom(e.binding.RoomId, conn)
	}

	return e.binding, nil
}

func (r *Repo) GetByConn(conn *websocket.Conn) (connection.Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[conn]
	if !ok {
		return connection.Binding{}, connection.ErrNotFound
	}

	return e.binding, nil
}

func (r *Repo) GetConnsByRoomId(roomId string) []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*websocket.Conn, 0, len(r.byRoom[roomId]))
	for conn := range r.byRoom[roomId] {
		conns = append(conns, conn)
	}

	return conns
}

func (r *Repo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

// Send serializes writes to a registered connection. Gorilla conns do
// not allow concurrent writers, and fanout delivery runs on a separate
// goroutine from the per-connection read loop.
func (r *Repo) Send(conn *websocket.Conn, v any) error {
	r.mu.RLock()
	e, ok := r.conns[conn]
	r.mu.RUnlock()

	if !ok {
		return connection.ErrNotFound
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	return conn.WriteJSON(v)
}

// caller must hold mu
func (r *Repo) removeFromRoom(roomId string, conn *websocket.Conn) {
	if conns, ok := r.byRoom[roomId]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(r.byRoom, roomId)
		}
	}
}
