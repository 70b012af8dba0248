package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateOrderID returns an order id in the site's ORD-<unix>-<rand>
// format. The id doubles as the payment-system reference (the tr field of
// the UPI link), so it must be unique and easy to read off a bank
// statement.
func GenerateOrderID() string {
	timestamp := time.Now().UnixMilli()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(1000))
	return fmt.Sprintf("ORD-%d-%03d", timestamp, randomNum.Int64())
}

// GenerateEventID returns an event id in the site's EV-<unix> format.
func GenerateEventID() string {
	timestamp := time.Now().UnixMilli()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(1000))
	return fmt.Sprintf("EV-%d-%03d", timestamp, randomNum.Int64())
}
