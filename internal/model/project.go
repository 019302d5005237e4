package model

import "time"

// Project represents a shared code document identified by a short code.
type Project struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the project's expiry has passed at the given time.
func (p *Project) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// SaveProjectRequest represents a request to create or update a project.
// The ID is optional; the server generates one when absent.
type SaveProjectRequest struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}
