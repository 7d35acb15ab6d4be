package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"poker-club/internal/game/viewmodel"
)

const seatTokenPrefix = "seat_"

func newSeatToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("seat token: %w", err)
	}
	return seatTokenPrefix + hex.EncodeToString(b), nil
}

func hashSeatToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// seatForToken finds the seat a token was issued to. Only hashes are kept.
func (c *Coordinator) seatForToken(token string) (int, error) {
	if token == "" {
		return -1, fmt.Errorf("%w: missing", ErrSeatToken)
	}
	want := []byte(hashSeatToken(token))
	for seat, held := range c.tokens {
		if subtle.ConstantTimeCompare([]byte(held), want) == 1 {
			return seat, nil
		}
	}
	return -1, ErrSeatToken
}

// Authorize resolves a seat token to the seat it was issued for. Transports
// call it before speaking for a seat.
func (c *Coordinator) Authorize(ctx context.Context, token string) (int, error) {
	seat := -1
	_, err := c.do(ctx, "authorize", func() (viewmodel.TableView, error) {
		s, err := c.seatForToken(token)
		seat = s
		return viewmodel.TableView{}, err
	})
	return seat, err
}
