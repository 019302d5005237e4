package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ChronusArtCenter/cosycoding/internal/model"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 65536
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking in production
		return true
	},
}

// MessageType represents the type of WebSocket message.
type MessageType string

const (
	// Client -> Server message types
	MessageTypeJoin         MessageType = "join"
	MessageTypeEdit         MessageType = "edit"
	MessageTypeCursor       MessageType = "cursor"
	MessageTypeAssetAdded   MessageType = "asset-added"
	MessageTypeAssetRemoved MessageType = "asset-removed"

	// Server -> Client message types
	MessageTypeInit     MessageType = "init"
	MessageTypeAssets   MessageType = "assets"
	MessageTypeUpdate   MessageType = "update"
	MessageTypeUserLeft MessageType = "user-left"
)

// defaultEditOrigin is attached to relayed edits that carry no origin.
const defaultEditOrigin = "remote"

// Changes describes an edit: a replaced range plus optional replacement text.
// From and To are opaque editor positions and pass through unparsed.
type Changes struct {
	From   json.RawMessage `json:"from,omitempty"`
	To     json.RawMessage `json:"to,omitempty"`
	Text   json.RawMessage `json:"text,omitempty"`
	Origin string          `json:"origin,omitempty"`
}

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType     `json:"type"`
	ProjectID string          `json:"projectId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Changes   *Changes        `json:"changes,omitempty"`
	CursorPos json.RawMessage `json:"cursorPos,omitempty"`
	Asset     *model.Asset    `json:"asset,omitempty"`
	AssetURL  string          `json:"assetUrl,omitempty"`
	Assets    []*model.Asset  `json:"assets,omitempty"`
}

// Handler handles WebSocket connections for collaborative editing sessions.
type Handler struct {
	service *Service
}

// NewHandler creates a new WebSocket handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleConnection upgrades the HTTP request and runs the connection's read
// and write pumps until it closes.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	conn := NewConn(wsConn)

	go h.writePump(conn)
	go h.readPump(conn)

	return nil
}

// connState tracks the sessions a single connection has created by joining.
// It is only touched from that connection's read pump, so it needs no lock.
type connState struct {
	sessions []*Session
}

// readPump pumps messages from the WebSocket connection through the
// dispatcher. On any read error the connection's sessions are evicted and
// their rooms notified.
func (h *Handler) readPump(conn *Conn) {
	state := &connState{}

	defer func() {
		for _, session := range state.sessions {
			h.service.Disconnect(session)
		}
		conn.Close()
		conn.ws.Close()
	}()

	conn.ws.SetReadLimit(maxMessageSize)
	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		h.dispatch(conn, state, raw)
	}
}

// dispatch parses one inbound payload and routes it by message kind.
// Malformed or semantically invalid payloads are logged and dropped; the
// connection stays open. Unknown kinds are silently ignored.
func (h *Handler) dispatch(conn *Conn, state *connState, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("Failed to unmarshal message: %v", err)
		return
	}

	switch msg.Type {
	case MessageTypeJoin, MessageTypeEdit, MessageTypeCursor, MessageTypeAssetAdded, MessageTypeAssetRemoved:
		if msg.ProjectID == "" {
			log.Printf("Dropping %s message without projectId", msg.Type)
			return
		}
	default:
		// Unknown kinds are silently ignored.
		return
	}

	switch msg.Type {
	case MessageTypeJoin:
		session := h.service.Join(conn, msg.ProjectID)
		state.sessions = append(state.sessions, session)
	case MessageTypeEdit:
		h.handleEdit(conn, &msg)
	case MessageTypeCursor:
		h.handleCursor(conn, &msg)
	case MessageTypeAssetAdded:
		h.handleAssetAdded(conn, &msg)
	case MessageTypeAssetRemoved:
		h.handleAssetRemoved(conn, &msg)
	}
}

// rawMissing reports whether a raw JSON field was absent or explicitly null.
func rawMissing(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// handleEdit relays a well-formed edit to the sender's room-mates.
// Edits missing the replaced range are rejected; text and origin are
// optional.
func (h *Handler) handleEdit(conn *Conn, msg *Message) {
	if msg.Changes == nil || rawMissing(msg.Changes.From) || rawMissing(msg.Changes.To) {
		log.Printf("Invalid changes object in edit for project %s", msg.ProjectID)
		return
	}

	origin := msg.Changes.Origin
	if origin == "" {
		origin = defaultEditOrigin
	}

	h.service.RelayUpdate(conn, msg.ProjectID, &Changes{
		From:   msg.Changes.From,
		To:     msg.Changes.To,
		Text:   msg.Changes.Text,
		Origin: origin,
	})
}

// handleCursor relays a cursor position to the sender's room-mates.
func (h *Handler) handleCursor(conn *Conn, msg *Message) {
	if rawMissing(msg.CursorPos) || msg.ClientID == "" {
		log.Printf("Dropping cursor message with missing fields for project %s", msg.ProjectID)
		return
	}

	h.service.RelayCursor(conn, msg.ProjectID, msg.ClientID, msg.CursorPos)
}

// handleAssetAdded persists then announces a new asset. The store call may
// block, so it runs off the read loop; a slow store never stalls this
// connection's other messages or unrelated broadcasts.
func (h *Handler) handleAssetAdded(conn *Conn, msg *Message) {
	if msg.Asset == nil || msg.Asset.URL == "" {
		log.Printf("Dropping asset-added message without asset for project %s", msg.ProjectID)
		return
	}

	draft := msg.Asset.Draft()
	go h.service.AddAsset(conn, msg.ProjectID, draft)
}

// handleAssetRemoved persists then announces an asset removal.
func (h *Handler) handleAssetRemoved(conn *Conn, msg *Message) {
	if msg.AssetURL == "" {
		log.Printf("Dropping asset-removed message without assetUrl for project %s", msg.ProjectID)
		return
	}

	go h.service.RemoveAsset(conn, msg.ProjectID, msg.AssetURL)
}

// writePump pumps queued messages to the WebSocket connection and keeps the
// peer alive with pings.
func (h *Handler) writePump(conn *Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.ws.Close()
	}()

	for {
		select {
		case message, ok := <-conn.SendChan():
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Each message goes in its own frame so the frontend can
			// JSON.parse frames independently.
			if err := conn.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SetCheckOrigin sets a custom origin checker for the WebSocket upgrader.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}
