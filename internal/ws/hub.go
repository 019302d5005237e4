// Package ws provides the real-time session synchronization layer: the
// connection registry, per-project rooms, and message broadcast.
package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ChronusArtCenter/cosycoding/internal/model"
)

const clientIDLength = 9

// Conn wraps a WebSocket connection with a serialized outbound queue.
// All sessions created over the same physical connection share one Conn,
// so writes never interleave on the wire.
type Conn struct {
	ws     *websocket.Conn
	send   chan []byte
	mu     sync.Mutex
	closed bool
}

// NewConn creates a connection wrapper around a WebSocket connection.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{
		ws:   ws,
		send: make(chan []byte, 256),
	}
}

// Send queues a message for delivery. A closed connection or a full buffer
// drops the message; a full buffer additionally closes the connection.
func (c *Conn) Send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		log.Printf("Connection send buffer full, dropping client")
		c.closeLocked()
	}
}

// SendMessage marshals and queues a message for delivery.
func (c *Conn) SendMessage(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.Send(data)
	return nil
}

// Close closes the outbound queue.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Conn) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// IsClosed returns true if the connection's outbound queue is closed.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Conn returns the underlying WebSocket connection.
func (c *Conn) Conn() *websocket.Conn {
	return c.ws
}

// SendChan returns the outbound queue for the connection.
func (c *Conn) SendChan() <-chan []byte {
	return c.send
}

// Session is one client's membership record within a room. It holds the
// client identifier issued at join time and a non-owning reference to the
// connection; the transport layer releases the connection's own resources.
type Session struct {
	clientID string
	room     *Room
	conn     *Conn
}

// ClientID returns the identifier issued to this session at join time.
func (s *Session) ClientID() string {
	return s.clientID
}

// Room returns the room this session belongs to.
func (s *Session) Room() *Room {
	return s.room
}

// Conn returns the session's connection handle.
func (s *Session) Conn() *Conn {
	return s.conn
}

// Room is the set of sessions currently joined to one project.
type Room struct {
	projectID string
	mu        sync.RWMutex
	sessions  map[*Session]bool
}

func newRoom(projectID string) *Room {
	return &Room{
		projectID: projectID,
		sessions:  make(map[*Session]bool),
	}
}

// ProjectID returns the project this room belongs to.
func (r *Room) ProjectID() string {
	return r.projectID
}

// Members returns a snapshot of the room's current sessions.
func (r *Room) Members() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		members = append(members, s)
	}
	return members
}

// MemberCount returns the number of sessions in the room.
func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// hasClientID reports whether any live session in the room holds the given
// client identifier. Caller must hold the room lock.
func (r *Room) hasClientIDLocked(clientID string) bool {
	for s := range r.sessions {
		if s.clientID == clientID {
			return true
		}
	}
	return false
}

// Broadcast delivers data to every session in the room whose connection is
// open, skipping sessions on the excluded connection. A failed recipient
// never aborts delivery to the rest.
func (r *Room) Broadcast(data []byte, exclude *Conn) {
	for _, s := range r.Members() {
		if exclude != nil && s.conn == exclude {
			continue
		}
		if s.conn.IsClosed() {
			log.Printf("Skipping closed connection for client %s in project %s", s.clientID, r.projectID)
			continue
		}
		s.conn.Send(data)
	}
}

// BroadcastMessage marshals a message and delivers it to the room.
func (r *Room) BroadcastMessage(msg *Message, exclude *Conn) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	r.Broadcast(data, exclude)
	return nil
}

// Registry is the single source of truth for which sessions are editing
// which project. Rooms are created lazily on first join and evicted when
// their last member leaves; a later join to the same project recreates the
// room, so project identifiers stay addressable.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// Admit creates a session for the connection in the project's room, creating
// the room if absent. The issued client identifier is unique among the
// room's live sessions at time of issuance. Each call creates a fresh,
// independent session; joining twice from one connection is not deduplicated.
func (g *Registry) Admit(projectID string, conn *Conn) *Session {
	g.mu.Lock()
	defer g.mu.Unlock()

	room, ok := g.rooms[projectID]
	if !ok {
		room = newRoom(projectID)
		g.rooms[projectID] = room
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	clientID := model.NewID(clientIDLength)
	for room.hasClientIDLocked(clientID) {
		clientID = model.NewID(clientIDLength)
	}

	session := &Session{
		clientID: clientID,
		room:     room,
		conn:     conn,
	}
	room.sessions[session] = true

	return session
}

// Remove deletes the session from its room. The room is dropped from the
// registry when its last session leaves.
func (g *Registry) Remove(session *Session) {
	g.mu.Lock()
	defer g.mu.Unlock()

	room := session.room

	room.mu.Lock()
	delete(room.sessions, session)
	empty := len(room.sessions) == 0
	room.mu.Unlock()

	if empty && g.rooms[room.projectID] == room {
		delete(g.rooms, room.projectID)
	}
}

// Room returns the room for the project, or nil if no one has joined it.
func (g *Registry) Room(projectID string) *Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rooms[projectID]
}

// MembersOf returns a snapshot of the sessions joined to the project,
// possibly empty. It never fails.
func (g *Registry) MembersOf(projectID string) []*Session {
	room := g.Room(projectID)
	if room == nil {
		return nil
	}
	return room.Members()
}

// RoomCount returns the number of rooms with at least one session.
func (g *Registry) RoomCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// Close drops all rooms and closes every member connection's queue.
func (g *Registry) Close() {
	g.mu.Lock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, room := range g.rooms {
		rooms = append(rooms, room)
	}
	g.rooms = make(map[string]*Room)
	g.mu.Unlock()

	for _, room := range rooms {
		for _, s := range room.Members() {
			s.conn.Close()
		}
	}
}
