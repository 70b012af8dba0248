package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Lock serializes confirmation attempts per order. The ledger's
// conditional update is the correctness guarantee; this lock just keeps a
// double-submitted confirmation from rendering and mailing the same ticket
// twice while the first attempt is still in flight.
type Lock struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewLock(client *redis.Client, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Lock{Client: client, TTL: ttl}
}

func key(orderID string) string {
	return "confirm_lock:" + orderID
}

// Lock tries to take the per-order confirm lock. The TTL bounds how long a
// crashed confirmation can hold the order; after expiry a retry proceeds.
func (l *Lock) Lock(orderID string) (bool, error) {
	return l.Client.SetNX(context.Background(), key(orderID), orderID, l.TTL).Result()
}

// Unlock releases the confirm lock for an order.
func (l *Lock) Unlock(orderID string) error {
	_, err := l.Client.Del(context.Background(), key(orderID)).Result()
	return err
}
