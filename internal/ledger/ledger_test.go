package ledger

import (
	"context"
	"errors"
	"testing"

	"poker-club/internal/game"
	"poker-club/internal/store"
	"poker-club/internal/testutil"
)

func TestLedgerRoundTrip(t *testing.T) {
	st, err := store.New(testutil.PostgresDSN(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	ctx := context.Background()
	l := New(st, 1000)

	if err := l.BuyIn(ctx, "t1", "alice", 400); err != nil {
		t.Fatalf("buy in: %v", err)
	}
	if err := l.BuyIn(ctx, "t1", "alice", 700); !errors.Is(err, game.ErrInsufficientStack) {
		t.Fatalf("expected insufficient stack, got %v", err)
	}
	r := &game.HandResult{
		HandID:      "hand_1",
		HandNumber:  1,
		Players:     map[int]string{0: "alice", 1: "bob"},
		Contributed: map[int]int64{0: 20, 1: 20},
		Payouts:     map[int]int64{1: 40},
		Deltas:      map[int]int64{0: -20, 1: 20},
	}
	if err := l.SettleHand(ctx, "t1", r); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if err := l.ChargeFee(ctx, "t1", "hand_1", "alice", "rabbit_hunt", 5); err != nil {
		t.Fatalf("fee: %v", err)
	}
	if err := l.CashOut(ctx, "t1", "alice", 375); err != nil {
		t.Fatalf("cash out: %v", err)
	}
	bal, err := l.Balance(ctx, "alice")
	if err != nil || bal != 975 {
		t.Fatalf("expected 975, got %d %v", bal, err)
	}
	h, err := st.GetHand(ctx, "hand_1")
	if err != nil || len(h.Deltas) != 2 {
		t.Fatalf("stored hand: %+v %v", h, err)
	}
}
