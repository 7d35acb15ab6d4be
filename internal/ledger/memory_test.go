package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"poker-club/internal/game"
	"poker-club/internal/session"
	"poker-club/internal/store"
)

func TestMemoryBuyInAndCashOut(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(1000)
	require.NoError(t, m.BuyIn(ctx, "t1", "alice", 600))
	err := m.BuyIn(ctx, "t1", "alice", 600)
	require.True(t, errors.Is(err, game.ErrInsufficientStack))

	require.NoError(t, m.CashOut(ctx, "t1", "alice", 750))
	bal, err := m.Balance(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(1150), bal)
}

func TestMemorySettlesThroughTable(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2000)
	c, err := session.NewCoordinator("t1", session.Options{
		Rules: game.Rules{
			Capacity:        2,
			Levels:          []game.BlindLevel{{SmallBlind: 10, BigBlind: 20}},
			AllowRabbitHunt: true,
			RabbitHuntCost:  5,
		},
		ActionTime: 15 * time.Second,
		Clock:      quartz.NewMock(t),
		Roster:     m,
	})
	require.NoError(t, err)

	_, err = c.Join(ctx, 0, "alice", 1000)
	require.NoError(t, err)
	_, err = c.Join(ctx, 1, "bob", 1000)
	require.NoError(t, err)

	v, err := c.Act(ctx, 0, game.ActionFold, 0, "")
	require.NoError(t, err)
	require.Equal(t, int64(2), v.HandNumber)

	_, err = c.RabbitHunt(ctx, 0)
	require.ErrorIs(t, err, game.ErrIllegalAction, "the next hand is already running")

	require.NoError(t, c.Close(ctx))
	hands := m.Hands("t1")
	require.Len(t, hands, 2)
	require.True(t, hands[0].FoldOut)
	require.True(t, hands[1].Aborted)

	alice, err := m.Balance(ctx, "alice")
	require.NoError(t, err)
	bob, err := m.Balance(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, int64(4000), alice+bob)
	require.Equal(t, int64(1990), alice)
}

func TestHandRecordRows(t *testing.T) {
	r := &game.HandResult{
		HandID:      "h1",
		HandNumber:  3,
		Players:     map[int]string{2: "carol", 0: "alice"},
		Contributed: map[int]int64{0: 20, 2: 20},
		Payouts:     map[int]int64{0: 40},
		Deltas:      map[int]int64{0: 20, 2: -20},
		FoldOut:     true,
	}
	h, err := handRecord("t1", r)
	require.NoError(t, err)
	require.Equal(t, int64(40), h.Pot)
	require.Len(t, h.Deltas, 2)
	require.Equal(t, 0, h.Deltas[0].Seat)
	require.Equal(t, "carol", h.Deltas[1].PlayerID)
	require.Equal(t, int64(-20), h.Deltas[1].Delta)
	require.Contains(t, string(h.Result), `"fold_out":true`)
}

func TestMemoryTopupAndEntries(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(100)
	bal, err := m.Topup(ctx, "alice", 50)
	require.NoError(t, err)
	require.Equal(t, int64(150), bal)
	require.NoError(t, m.BuyIn(ctx, "t1", "alice", 120))

	entries, err := m.Entries(ctx, "alice", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "buy_in", entries[0].Type)
	require.Equal(t, int64(-120), entries[0].Amount)

	entries, err = m.Entries(ctx, "alice", 10, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "topup", entries[0].Type)

	require.ErrorIs(t, m.CloseTable(ctx, "t1"), store.ErrNotFound)
	require.NoError(t, m.OpenTable(ctx, store.Table{ID: "t1", Capacity: 6}))
	require.NoError(t, m.CloseTable(ctx, "t1"))
}
