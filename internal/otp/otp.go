package otp

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// Channel is the delivery channel a code verifies.
type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelMobile Channel = "mobile"
)

// Record is a stored one-time code challenge. Only the bcrypt hash of the
// code is kept; the plaintext exists just long enough to be delivered.
type Record struct {
	Hash     []byte    `json:"hash"`
	IssuedAt time.Time `json:"issuedAt"`
	Attempts int       `json:"attempts"`
}

// Store persists pending challenges keyed by (userID, channel) with a TTL.
// Find on a missing or expired key returns sentinel.ErrNotFound. Update
// rewrites the record without touching the remaining TTL, so counting a
// failed attempt never extends the challenge's life.
type Store interface {
	Save(ctx context.Context, userID string, channel Channel, rec *Record, ttl time.Duration) error
	Update(ctx context.Context, userID string, channel Channel, rec *Record) error
	Find(ctx context.Context, userID string, channel Channel) (*Record, error)
	Delete(ctx context.Context, userID string, channel Channel) error
}

// GenerateCode returns a zero-padded numeric code of the given length.
func GenerateCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
