package model

import "time"

// Politician is the identity record a comparison or summary is built around.
type Politician struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Party     string    `json:"party,omitempty"`
	Position  string    `json:"position,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
