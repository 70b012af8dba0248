package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

// ErrEventNotFound means the referenced event is not in the catalog.
var ErrEventNotFound = errors.New("event not found")

// Store is the booking core's view of the event catalog. The site manages
// events elsewhere; the core only needs an id to validate against and the
// price and title for the ticket.
type Store struct {
	Bun *bun.DB
}

func (s *Store) CreateEvent(event *models.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	_, err := s.Bun.NewInsert().Model(event).Exec(context.Background())
	return err
}

func (s *Store) GetEvent(id string) (*models.Event, error) {
	var event models.Event
	err := s.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *Store) ListEvents() ([]models.Event, error) {
	events := []models.Event{}
	err := s.Bun.NewSelect().
		Model(&events).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Migrate creates the events table if it does not exist yet.
func Migrate(db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Event)(nil)).IfNotExists().Exec(context.Background())
	return err
}
