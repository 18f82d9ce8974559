package domain

import (
	"time"
)

// Link is a short code mapped to a redirect target with its usage counters
type Link struct {
	Code        string     `json:"code"`
	URL         string     `json:"url"`
	Clicks      int64      `json:"clicks"`
	LastClicked *time.Time `json:"last_clicked"`
	CreatedAt   time.Time  `json:"created_at"`
}

// PendingClicks holds resolve hits that have not been written to the repository yet
type PendingClicks struct {
	Count       int64     `json:"count"`
	LastClicked time.Time `json:"last_clicked"`
}

// Merge folds other into p, keeping the latest click time
func (p *PendingClicks) Merge(other PendingClicks) {
	p.Count += other.Count
	if other.LastClicked.After(p.LastClicked) {
		p.LastClicked = other.LastClicked
	}
}

// ApplyTo adds the pending clicks to a link read from the repository
func (p PendingClicks) ApplyTo(link *Link) {
	if p.Count == 0 {
		return
	}
	link.Clicks += p.Count
	if link.LastClicked == nil || p.LastClicked.After(*link.LastClicked) {
		last := p.LastClicked
		link.LastClicked = &last
	}
}

// CreateLinkRequest represents the request to create a link
type CreateLinkRequest struct {
	URL  string `json:"url"`
	Code string `json:"code,omitempty"`
}

// ErrorResponse is the JSON body returned for failed API calls
type ErrorResponse struct {
	Error string `json:"error"`
}

// DeleteLinkResponse is the JSON body returned after a successful delete
type DeleteLinkResponse struct {
	Success bool `json:"success"`
}

// HealthResponse is the JSON body returned by the health endpoint
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}
