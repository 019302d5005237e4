package model

import "time"

// Asset represents an uploaded file's metadata entry attached to a project.
type Asset struct {
	ID        string    `json:"id,omitempty"`
	ProjectID string    `json:"projectId,omitempty"`
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	Type      string    `json:"type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// AssetDraft is the client-supplied portion of an asset, before the store
// assigns an identifier and creation time.
type AssetDraft struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Size     int64  `json:"size"`
}

// Draft strips the server-assigned fields from an asset.
func (a *Asset) Draft() AssetDraft {
	return AssetDraft{
		URL:      a.URL,
		Filename: a.Filename,
		Type:     a.Type,
		Size:     a.Size,
	}
}
