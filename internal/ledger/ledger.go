package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"poker-club/internal/game"
	"poker-club/internal/session"
	"poker-club/internal/store"
)

var _ session.Roster = (*Ledger)(nil)

// Ledger keeps player balances and hand history in Postgres. Chips move
// off the account at buy-in and back at cash-out; hand deltas only change
// table stacks and are recorded for history.
type Ledger struct {
	Store *store.Store
	// Starting funds an account the first time its player buys in.
	Starting int64
}

func New(s *store.Store, starting int64) *Ledger {
	return &Ledger{Store: s, Starting: starting}
}

func (l *Ledger) BuyIn(ctx context.Context, tableID, playerID string, amount int64) error {
	if l.Starting > 0 {
		if err := l.Store.EnsureAccount(ctx, playerID, l.Starting); err != nil {
			return err
		}
	}
	_, err := l.Store.Debit(ctx, playerID, amount, "buy_in", "table", tableID)
	switch {
	case errors.Is(err, store.ErrInsufficientBalance):
		return fmt.Errorf("%w: balance below buy-in %d", game.ErrInsufficientStack, amount)
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: no account for %s", game.ErrInsufficientStack, playerID)
	}
	return err
}

func (l *Ledger) CashOut(ctx context.Context, tableID, playerID string, amount int64) error {
	_, err := l.Store.Credit(ctx, playerID, amount, "cash_out", "table", tableID)
	return err
}

func (l *Ledger) SettleHand(ctx context.Context, tableID string, r *game.HandResult) error {
	h, err := handRecord(tableID, r)
	if err != nil {
		return err
	}
	return l.Store.SaveHand(ctx, h)
}

func (l *Ledger) RecordAbort(ctx context.Context, tableID string, r *game.HandResult) error {
	return l.SettleHand(ctx, tableID, r)
}

func (l *Ledger) ChargeFee(ctx context.Context, tableID, handID, playerID, reason string, amount int64) error {
	return l.Store.RecordFee(ctx, store.Fee{TableID: tableID, HandID: handID, PlayerID: playerID, Reason: reason, Amount: amount})
}

func (l *Ledger) Balance(ctx context.Context, playerID string) (int64, error) {
	return l.Store.GetAccountBalance(ctx, playerID)
}

// handRecord flattens a result into the stored hand and its deltas, one
// row per dealt-in seat in seat order.
func handRecord(tableID string, r *game.HandResult) (store.Hand, error) {
	blob, err := json.Marshal(r)
	if err != nil {
		return store.Hand{}, fmt.Errorf("encode hand %s: %w", r.HandID, err)
	}
	h := store.Hand{
		ID:          r.HandID,
		TableID:     tableID,
		HandNumber:  r.HandNumber,
		FoldOut:     r.FoldOut,
		Aborted:     r.Aborted,
		AbortReason: r.AbortReason,
		Pot:         r.PaidOut(),
		Board:       r.Board,
		Result:      blob,
	}
	if r.Aborted {
		h.Pot = 0
	}
	seats := make([]int, 0, len(r.Players))
	for seat := range r.Players {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	for _, seat := range seats {
		h.Deltas = append(h.Deltas, store.HandDelta{
			Seat:        seat,
			PlayerID:    r.Players[seat],
			Contributed: r.Contributed[seat],
			Payout:      r.Payouts[seat],
			Delta:       r.Deltas[seat],
		})
	}
	return h, nil
}

// Topup credits an account, opening it when needed.
func (l *Ledger) Topup(ctx context.Context, playerID string, amount int64) (int64, error) {
	if err := l.Store.EnsureAccount(ctx, playerID, 0); err != nil {
		return 0, err
	}
	return l.Store.Credit(ctx, playerID, amount, "topup", "admin", store.NewID())
}

func (l *Ledger) OpenTable(ctx context.Context, t store.Table) error {
	return l.Store.CreateTable(ctx, t)
}

func (l *Ledger) CloseTable(ctx context.Context, id string) error {
	return l.Store.CloseTable(ctx, id)
}

func (l *Ledger) History(ctx context.Context, tableID string, limit int) ([]store.Hand, error) {
	return l.Store.ListHands(ctx, tableID, limit)
}

func (l *Ledger) Entries(ctx context.Context, playerID string, limit, offset int) ([]store.LedgerEntry, error) {
	return l.Store.ListLedgerEntries(ctx, store.LedgerFilter{PlayerID: playerID}, limit, offset)
}
