package session

import (
	"context"

	"poker-club/internal/broadcast"
	"poker-club/internal/game"
)

// Roster moves chips between players' accounts and the table and keeps the
// hand history. Every call happens on the table's writer goroutine.
type Roster interface {
	BuyIn(ctx context.Context, tableID, playerID string, amount int64) error
	CashOut(ctx context.Context, tableID, playerID string, amount int64) error
	SettleHand(ctx context.Context, tableID string, r *game.HandResult) error
	RecordAbort(ctx context.Context, tableID string, r *game.HandResult) error
	ChargeFee(ctx context.Context, tableID, handID, playerID, reason string, amount int64) error
}

// Presence tells a retry attempt whether the seat's player has a live
// connection again.
type Presence interface {
	Online(tableID string, seat int) bool
}

type nopRoster struct{}

func (nopRoster) BuyIn(context.Context, string, string, int64) error         { return nil }
func (nopRoster) CashOut(context.Context, string, string, int64) error       { return nil }
func (nopRoster) SettleHand(context.Context, string, *game.HandResult) error  { return nil }
func (nopRoster) RecordAbort(context.Context, string, *game.HandResult) error { return nil }
func (nopRoster) ChargeFee(context.Context, string, string, string, string, int64) error {
	return nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, broadcast.Event) error { return nil }
