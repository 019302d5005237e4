package ws

import (
	"context"
	"log"

	"github.com/ChronusArtCenter/cosycoding/internal/model"
)

// AssetStore is the external asset persistence consumed by the service.
// Satisfied by repository.AssetRepository.
type AssetStore interface {
	ListByProject(ctx context.Context, projectID string) ([]*model.Asset, error)
	Insert(ctx context.Context, projectID string, draft model.AssetDraft) (*model.Asset, error)
	DeleteByURL(ctx context.Context, projectID, url string) error
}

// Service manages session lifecycle (join, disconnect) and coordinates asset
// mutations against the external store before they are announced to rooms.
type Service struct {
	registry *Registry
	assets   AssetStore
}

// NewService creates a new session synchronization service.
func NewService(assets AssetStore) *Service {
	return &Service{
		registry: NewRegistry(),
		assets:   assets,
	}
}

// Registry returns the session registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Join admits the connection into the project's room, sends it an init
// message carrying its client identifier, and replays the project's current
// assets to it asynchronously. A slow or failing asset fetch never blocks or
// fails the join.
func (s *Service) Join(conn *Conn, projectID string) *Session {
	session := s.registry.Admit(projectID, conn)

	if err := conn.SendMessage(&Message{
		Type:     MessageTypeInit,
		ClientID: session.ClientID(),
	}); err != nil {
		log.Printf("Failed to send init to client %s: %v", session.ClientID(), err)
	}

	go s.replayAssets(session, projectID)

	return session
}

// replayAssets sends the project's asset list to the newly joined session
// alone, and only when non-empty; the rest of the room already has this
// state. On fetch failure the client simply starts with no asset list.
func (s *Service) replayAssets(session *Session, projectID string) {
	assets, err := s.assets.ListByProject(context.Background(), projectID)
	if err != nil {
		log.Printf("Failed to load assets for project %s: %v", projectID, err)
		return
	}
	if len(assets) == 0 {
		return
	}

	if err := session.Conn().SendMessage(&Message{
		Type:   MessageTypeAssets,
		Assets: assets,
	}); err != nil {
		log.Printf("Failed to send assets to client %s: %v", session.ClientID(), err)
	}
}

// Disconnect evicts the session from the registry and notifies the departed
// session's own room. The client identifier is captured before removal so it
// survives the session's destruction.
func (s *Service) Disconnect(session *Session) {
	clientID := session.ClientID()
	room := session.Room()

	s.registry.Remove(session)

	if err := room.BroadcastMessage(&Message{
		Type:     MessageTypeUserLeft,
		ClientID: clientID,
	}, nil); err != nil {
		log.Printf("Failed to broadcast user-left for client %s: %v", clientID, err)
	}
}

// RelayUpdate fans an edit out to the sender's room-mates. Edits to a
// project no one has joined are dropped.
func (s *Service) RelayUpdate(from *Conn, projectID string, changes *Changes) {
	room := s.registry.Room(projectID)
	if room == nil {
		return
	}

	if err := room.BroadcastMessage(&Message{
		Type:    MessageTypeUpdate,
		Changes: changes,
	}, from); err != nil {
		log.Printf("Failed to broadcast update for project %s: %v", projectID, err)
	}
}

// RelayCursor fans a cursor position out to the sender's room-mates.
func (s *Service) RelayCursor(from *Conn, projectID, clientID string, cursorPos []byte) {
	room := s.registry.Room(projectID)
	if room == nil {
		return
	}

	if err := room.BroadcastMessage(&Message{
		Type:      MessageTypeCursor,
		ClientID:  clientID,
		CursorPos: cursorPos,
	}, from); err != nil {
		log.Printf("Failed to broadcast cursor for project %s: %v", projectID, err)
	}
}

// AddAsset persists a new asset through the external store, then announces
// it to the room with its server-assigned fields. On persistence failure no
// broadcast occurs, so other clients never observe an asset the store does
// not contain.
func (s *Service) AddAsset(from *Conn, projectID string, draft model.AssetDraft) {
	asset, err := s.assets.Insert(context.Background(), projectID, draft)
	if err != nil {
		log.Printf("Error handling asset addition for project %s: %v", projectID, err)
		return
	}

	room := s.registry.Room(projectID)
	if room == nil {
		return
	}

	if err := room.BroadcastMessage(&Message{
		Type:  MessageTypeAssetAdded,
		Asset: asset,
	}, from); err != nil {
		log.Printf("Failed to broadcast asset-added for project %s: %v", projectID, err)
	}
}

// RemoveAsset persists an asset deletion, then announces it to the room.
// Same rule as AddAsset: no broadcast unless the store accepted the change.
func (s *Service) RemoveAsset(from *Conn, projectID, assetURL string) {
	if err := s.assets.DeleteByURL(context.Background(), projectID, assetURL); err != nil {
		log.Printf("Error handling asset removal for project %s: %v", projectID, err)
		return
	}

	room := s.registry.Room(projectID)
	if room == nil {
		return
	}

	if err := room.BroadcastMessage(&Message{
		Type:     MessageTypeAssetRemoved,
		AssetURL: assetURL,
	}, from); err != nil {
		log.Printf("Failed to broadcast asset-removed for project %s: %v", projectID, err)
	}
}

// Close tears down the registry and every member connection's queue.
func (s *Service) Close() {
	s.registry.Close()
}
