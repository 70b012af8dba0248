package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Event is the slice of the catalog the booking core needs: an id to
// reference, a price to charge and a title for the ticket. The full catalog
// lives with the site frontend.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID        string    `bun:"id,pk" json:"id"`
	Title     string    `bun:"title,notnull" json:"title"`
	Price     float64   `bun:"price,notnull" json:"price"`
	Venue     string    `bun:"venue,nullzero" json:"venue,omitempty"`
	Date      string    `bun:"date,nullzero" json:"date,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

type EventRequest struct {
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Venue string  `json:"venue,omitempty"`
	Date  string  `json:"date,omitempty"`
}
