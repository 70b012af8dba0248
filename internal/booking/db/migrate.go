package db

import (
	"context"
	"log"

	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

// Migrate creates the ledger tables if they do not exist yet.
func Migrate(db *bun.DB) {
	ctx := context.Background()

	tables := []interface{}{(*models.Order)(nil), (*models.Booking)(nil)}
	for _, m := range tables {
		_, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx)
		if err != nil {
			log.Fatalf("create table failed for %T: %v", m, err)
		}
	}

	log.Println("orders and bookings tables ready")
}
