package session

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poker-club/internal/broadcast"
	"poker-club/internal/game"
	"poker-club/internal/game/viewmodel"
	"poker-club/internal/reconnect"
)

type fakeRoster struct {
	mu       sync.Mutex
	buyIns   map[string]int64
	cashOuts map[string]int64
	settled  []*game.HandResult
	aborted  []*game.HandResult
	fees     map[string]int64
	failBuy  error
}

func newFakeRoster() *fakeRoster {
	return &fakeRoster{buyIns: map[string]int64{}, cashOuts: map[string]int64{}, fees: map[string]int64{}}
}

func (r *fakeRoster) BuyIn(_ context.Context, _, playerID string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failBuy != nil {
		return r.failBuy
	}
	r.buyIns[playerID] += amount
	return nil
}

func (r *fakeRoster) CashOut(_ context.Context, _, playerID string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cashOuts[playerID] += amount
	return nil
}

func (r *fakeRoster) SettleHand(_ context.Context, _ string, res *game.HandResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settled = append(r.settled, res)
	return nil
}

func (r *fakeRoster) RecordAbort(_ context.Context, _ string, res *game.HandResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aborted = append(r.aborted, res)
	return nil
}

func (r *fakeRoster) ChargeFee(_ context.Context, _, _, playerID, _ string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fees[playerID] += amount
	return nil
}

func (r *fakeRoster) settledHands() []*game.HandResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*game.HandResult(nil), r.settled...)
}

type fakePresence struct {
	mu     sync.Mutex
	online map[int]bool
}

func (p *fakePresence) Online(_ string, seat int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[seat]
}

func (p *fakePresence) set(seat int, on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[seat] = on
}

type testTable struct {
	c      *Coordinator
	clock  *quartz.Mock
	roster *fakeRoster
	hub    *broadcast.Hub
}

func newTestTable(t *testing.T, configure func(*Options)) *testTable {
	t.Helper()
	clock := quartz.NewMock(t)
	roster := newFakeRoster()
	hub := broadcast.NewHub(200)
	opts := Options{
		Rules: game.Rules{
			Capacity:        6,
			Levels:          []game.BlindLevel{{SmallBlind: 10, BigBlind: 20}},
			AllowStraddle:   true,
			AllowBombPot:    true,
			BombPotAnte:     50,
			AllowRabbitHunt: true,
			RabbitHuntCost:  5,
		},
		ActionTime: 15 * time.Second,
		TimeBank:   30 * time.Second,
		MinBuyIn:   100,
		MaxBuyIn:   5000,
		Reconnect:  reconnect.DefaultPolicy(),
		Clock:      clock,
		Rand:       rand.New(rand.NewSource(1)),
		Roster:     roster,
		Publisher:  hub,
	}
	if configure != nil {
		configure(&opts)
	}
	c, err := NewCoordinator("t1", opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return &testTable{c: c, clock: clock, roster: roster, hub: hub}
}

// join seats player and returns the seat token from the reply.
func (tt *testTable) join(t *testing.T, seat int, player string, buyIn int64) string {
	t.Helper()
	v, err := tt.c.Join(context.Background(), seat, player, buyIn)
	require.NoError(t, err)
	require.NotEmpty(t, v.SeatToken)
	return v.SeatToken
}

func (tt *testTable) events(name string) []broadcast.Event {
	var out []broadcast.Event
	for _, ev := range tt.hub.Buffer("t1").ReplayAfter("", broadcast.Public) {
		if ev.Event == name {
			out = append(out, ev)
		}
	}
	return out
}

func (tt *testTable) advance(t *testing.T, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tt.clock.Advance(d).MustWait(ctx)
}

func TestHeadsUpAllInSingleLayer(t *testing.T) {
	tt := newTestTable(t, nil)
	ctx := context.Background()
	tt.join(t, 0, "alice", 500)
	tt.join(t, 1, "bob", 500)

	v, err := tt.c.Snapshot(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "preflop", v.Phase)
	require.Equal(t, 0, v.CurrentActorSeat)
	require.Len(t, v.Seats[0].HoleCards, 2)
	require.Empty(t, v.Seats[1].HoleCards)

	_, err = tt.c.Act(ctx, 0, game.ActionAllIn, 0, v.TurnID)
	require.NoError(t, err)
	_, err = tt.c.Act(ctx, 1, game.ActionCall, 0, "")
	require.NoError(t, err)

	settled := tt.roster.settledHands()
	require.Len(t, settled, 1)
	res := settled[0]
	require.Len(t, res.Pots, 1)
	assert.Equal(t, int64(1000), res.Pots[0].Amount)
	assert.ElementsMatch(t, []int{0, 1}, res.Pots[0].Eligible)
	assert.Equal(t, int64(1000), res.PaidOut())
	assert.Len(t, res.Board, 5)
	assert.Equal(t, int64(0), res.Deltas[0]+res.Deltas[1])

	results := tt.events("hand_result")
	require.Len(t, results, 1)
	assert.Same(t, res, results[0].Data.(*game.HandResult))
}

func TestTimeoutFoldsFacingBet(t *testing.T) {
	tt := newTestTable(t, nil)
	tt.join(t, 0, "alice", 500)
	tt.join(t, 1, "bob", 500)

	tt.advance(t, 15*time.Second)

	settled := tt.roster.settledHands()
	require.Len(t, settled, 1)
	assert.True(t, settled[0].FoldOut)
	assert.Equal(t, int64(-10), settled[0].Deltas[0])
	assert.Equal(t, int64(10), settled[0].Deltas[1])

	var sawAutoFold bool
	for _, ev := range tt.events("action") {
		out := ev.Data.(*game.Outcome)
		if out.Seat == 0 && out.Action == "fold" && out.Auto {
			sawAutoFold = true
		}
	}
	assert.True(t, sawAutoFold)

	v, err := tt.c.Snapshot(context.Background(), broadcast.Public)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.HandNumber, "next hand should start at once")
}

func TestStaleTurnRejected(t *testing.T) {
	tt := newTestTable(t, nil)
	ctx := context.Background()
	tt.join(t, 0, "alice", 500)
	tt.join(t, 1, "bob", 500)

	v, err := tt.c.Snapshot(ctx, 0)
	require.NoError(t, err)
	old := v.TurnID
	_, err = tt.c.Act(ctx, 0, game.ActionCall, 0, old)
	require.NoError(t, err)

	_, err = tt.c.Act(ctx, 1, game.ActionCheck, 0, old)
	require.ErrorIs(t, err, game.ErrStaleTurn)
	require.ErrorIs(t, err, game.ErrInvalidTurn)

	_, err = tt.c.Act(ctx, 0, game.ActionCheck, 0, "")
	require.ErrorIs(t, err, game.ErrInvalidTurn)
}

func TestCommandErrors(t *testing.T) {
	tt := newTestTable(t, func(o *Options) {
		o.Rules.AllowStraddle = false
		o.Rules.AllowBombPot = false
		o.Rules.AllowRabbitHunt = false
	})
	ctx := context.Background()
	tt.join(t, 0, "alice", 500)

	_, err := tt.c.Act(ctx, 0, game.ActionCheck, 0, "")
	require.ErrorIs(t, err, game.ErrTableNotReady)

	_, err = tt.c.Join(ctx, 0, "bob", 500)
	require.ErrorIs(t, err, game.ErrSeatUnavailable)
	_, err = tt.c.Join(ctx, 9, "bob", 500)
	require.ErrorIs(t, err, game.ErrSeatUnavailable)
	_, err = tt.c.Join(ctx, 1, "alice", 500)
	require.ErrorIs(t, err, game.ErrSeatUnavailable)
	_, err = tt.c.Join(ctx, 1, "bob", 50)
	require.ErrorIs(t, err, game.ErrIllegalAction)

	_, err = tt.c.PostStraddle(ctx, 0, 40)
	require.ErrorIs(t, err, ErrFeatureDisabled)
	require.ErrorIs(t, err, game.ErrIllegalAction)
	_, err = tt.c.TriggerBombPot(ctx)
	require.ErrorIs(t, err, ErrFeatureDisabled)
	_, err = tt.c.RabbitHunt(ctx, 0)
	require.ErrorIs(t, err, ErrFeatureDisabled)

	_, err = tt.c.UseTimeBank(ctx, 0, 10)
	require.ErrorIs(t, err, game.ErrTableNotReady)
}

func TestBuyInFailureLeavesSeatFree(t *testing.T) {
	tt := newTestTable(t, nil)
	tt.roster.failBuy = game.ErrInsufficientStack
	_, err := tt.c.Join(context.Background(), 0, "alice", 500)
	require.ErrorIs(t, err, game.ErrInsufficientStack)

	v, err := tt.c.Snapshot(context.Background(), broadcast.Public)
	require.NoError(t, err)
	require.Empty(t, v.Seats)
}

func TestReconnectKeepsTurnDeadline(t *testing.T) {
	tt := newTestTable(t, nil)
	ctx := context.Background()
	tt.join(t, 0, "alice", 500)
	tt.join(t, 1, "bob", 500)

	tt.advance(t, 5*time.Second)
	v, err := tt.c.Snapshot(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, int64(10000), v.Seats[0].TimerRemainingMS)

	v, err = tt.c.Disconnect(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "reconnecting", v.Seats[0].Connection)
	require.Equal(t, "disconnected", v.Seats[0].Status)

	// Retries fire at +1s, +3s and +7s; none finds the player.
	tt.advance(t, time.Second)
	tt.advance(t, 2*time.Second)
	tt.advance(t, 4*time.Second)
	tt.advance(t, 2*time.Second)

	v, err = tt.c.Reconnect(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "connected", v.Seats[0].Connection)
	assert.Equal(t, "active", v.Seats[0].Status)
	assert.Equal(t, int64(1000), v.Seats[0].TimerRemainingMS)
	assert.Equal(t, 0, v.CurrentActorSeat)

	_, err = tt.c.Act(ctx, 0, game.ActionCall, 0, v.TurnID)
	require.NoError(t, err)
}

func TestDisconnectedActorFoldsOnTimeout(t *testing.T) {
	tt := newTestTable(t, func(o *Options) {
		o.Reconnect = reconnect.Policy{BaseDelay: time.Minute, Multiplier: 2, MaxDelay: time.Minute, MaxAttempts: 5}
	})
	ctx := context.Background()
	tt.join(t, 0, "alice", 500)
	tt.join(t, 1, "bob", 500)
	_, err := tt.c.Act(ctx, 0, game.ActionCall, 0, "")
	require.NoError(t, err)

	// Bob could check, but an offline seat always folds.
	_, err = tt.c.Disconnect(ctx, 1)
	require.NoError(t, err)
	tt.advance(t, 15*time.Second)

	settled := tt.roster.settledHands()
	require.Len(t, settled, 1)
	assert.True(t, settled[0].FoldOut)
	assert.Equal(t, int64(20), settled[0].Deltas[0])
}

func TestPresenceRestoresSeat(t *testing.T) {
	presence := &fakePresence{online: map[int]bool{}}
	tt := newTestTable(t, func(o *Options) { o.Presence = presence })
	ctx := context.Background()
	tt.join(t, 0, "alice", 500)
	tt.join(t, 1, "bob", 500)

	_, err := tt.c.Disconnect(ctx, 1)
	require.NoError(t, err)
	tt.advance(t, time.Second)
	presence.set(1, true)
	tt.advance(t, 2*time.Second)

	v, err := tt.c.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "connected", v.Seats[1].Connection)
}

func TestReconnectExhausted(t *testing.T) {
	tt := newTestTable(t, func(o *Options) {
		o.Reconnect = reconnect.Policy{BaseDelay: time.Second, Multiplier: 2, MaxDelay: 30 * time.Second, MaxAttempts: 2}
	})
	ctx := context.Background()
	tt.join(t, 0, "alice", 500)
	token := tt.join(t, 1, "bob", 500)

	_, err := tt.c.Disconnect(ctx, 1)
	require.NoError(t, err)
	tt.advance(t, time.Second)
	tt.advance(t, 2*time.Second)

	_, err = tt.c.Reconnect(ctx, 1)
	require.ErrorIs(t, err, game.ErrConnectionExhausted)
	require.Len(t, tt.events("connection_exhausted"), 1)

	_, err = tt.c.Join(ctx, 1, "bob", 500)
	require.ErrorIs(t, err, game.ErrSeatUnavailable, "joining again would take a second buy-in")
	_, err = tt.c.Rejoin(ctx, token)
	require.NoError(t, err, "the token holder may take the seat back")
	v, err := tt.c.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "connected", v.Seats[1].Connection)
}

func TestLeaveStopsReconnectRetries(t *testing.T) {
	tt := newTestTable(t, func(o *Options) {
		o.Reconnect = reconnect.Policy{BaseDelay: time.Second, Multiplier: 2, MaxDelay: 30 * time.Second, MaxAttempts: 2}
	})
	ctx := context.Background()
	for i, p := range []string{"alice", "bob", "carol"} {
		tt.join(t, i, p, 500)
	}
	v, err := tt.c.Snapshot(ctx, broadcast.Public)
	require.NoError(t, err)
	require.Equal(t, "preflop", v.Phase)
	leaver := (v.CurrentActorSeat + 1) % 3

	_, err = tt.c.Disconnect(ctx, leaver)
	require.NoError(t, err)
	_, err = tt.c.Leave(ctx, leaver)
	require.NoError(t, err)

	// Both attempts would have run by now.
	tt.advance(t, time.Second)
	tt.advance(t, 2*time.Second)
	assert.Empty(t, tt.events("connection_exhausted"))
}

func TestCancelReconnect(t *testing.T) {
	tt := newTestTable(t, nil)
	ctx := context.Background()
	alice := tt.join(t, 0, "alice", 500)
	bob := tt.join(t, 1, "bob", 500)

	_, err := tt.c.CancelReconnect(ctx, 1)
	require.ErrorIs(t, err, game.ErrIllegalAction)
	_, err = tt.c.Rejoin(ctx, bob)
	require.ErrorIs(t, err, game.ErrIllegalAction)

	_, err = tt.c.Disconnect(ctx, 1)
	require.NoError(t, err)
	_, err = tt.c.CancelReconnect(ctx, 1)
	require.NoError(t, err)

	_, err = tt.c.Reconnect(ctx, 1)
	require.ErrorIs(t, err, game.ErrSeatUnavailable)

	_, err = tt.c.Join(ctx, 1, "mallory", 500)
	require.ErrorIs(t, err, game.ErrSeatUnavailable)
	_, err = tt.c.Rejoin(ctx, "seat_forged")
	require.ErrorIs(t, err, ErrSeatToken)
	_, err = tt.c.Rejoin(ctx, alice)
	require.ErrorIs(t, err, game.ErrIllegalAction, "alice's token only speaks for seat 0")
	_, err = tt.c.Rejoin(ctx, bob)
	require.NoError(t, err)
}

func TestSeatTokens(t *testing.T) {
	tt := newTestTable(t, nil)
	ctx := context.Background()
	alice := tt.join(t, 0, "alice", 500)
	bob := tt.join(t, 1, "bob", 500)
	require.NotEqual(t, alice, bob)

	seat, err := tt.c.Authorize(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, seat)

	_, err = tt.c.Authorize(ctx, "")
	require.ErrorIs(t, err, ErrSeatToken)
	_, err = tt.c.Authorize(ctx, "seat_"+strings.Repeat("0", 48))
	require.ErrorIs(t, err, ErrSeatToken)

	for _, ev := range tt.hub.Buffer("t1").ReplayAfter("", broadcast.Public) {
		b, err := json.Marshal(ev.Data)
		require.NoError(t, err)
		assert.NotContains(t, string(b), bob, "event %s leaks a seat token", ev.Event)
	}
	v, err := tt.c.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, v.SeatToken)

	_, err = tt.c.Leave(ctx, 1)
	require.NoError(t, err)
	_, err = tt.c.Authorize(ctx, bob)
	require.ErrorIs(t, err, ErrSeatToken, "a freed seat drops its token")
}

func TestBombPotJumpsToFlop(t *testing.T) {
	tt := newTestTable(t, func(o *Options) { o.HandInterval = 5 * time.Second })
	ctx := context.Background()
	for i, p := range []string{"a", "b", "c", "d"} {
		tt.join(t, i, p, 1000)
	}
	v, err := tt.c.TriggerBombPot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "flop", v.Phase)
	assert.Equal(t, int64(200), v.Pot)
	assert.True(t, v.BombPot)
	assert.False(t, v.PendingBombPot)
	assert.Len(t, v.CommunityCards, 3)
	assert.Equal(t, -1, v.BigBlindSeat)
}

func TestPendingBombPotNextHand(t *testing.T) {
	tt := newTestTable(t, nil)
	ctx := context.Background()
	tt.join(t, 0, "alice", 500)
	tt.join(t, 1, "bob", 500)

	v, err := tt.c.TriggerBombPot(ctx)
	require.NoError(t, err)
	require.True(t, v.PendingBombPot)
	require.Equal(t, "preflop", v.Phase)

	v, err = tt.c.Act(ctx, 0, game.ActionFold, 0, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.HandNumber)
	assert.True(t, v.BombPot)
	assert.Equal(t, "flop", v.Phase)
	assert.Equal(t, int64(100), v.Pot)
}

func TestBombPotNeedsTwoSeats(t *testing.T) {
	tt := newTestTable(t, nil)
	ctx := context.Background()

	_, err := tt.c.TriggerBombPot(ctx)
	require.ErrorIs(t, err, game.ErrTableNotReady)

	tt.join(t, 0, "alice", 500)
	_, err = tt.c.TriggerBombPot(ctx)
	require.ErrorIs(t, err, game.ErrTableNotReady)

	v, err := tt.c.Snapshot(ctx, broadcast.Public)
	require.NoError(t, err)
	assert.False(t, v.PendingBombPot, "a rejected trigger leaves nothing pending")

	tt.join(t, 1, "bob", 500)
	v, err = tt.c.Snapshot(ctx, broadcast.Public)
	require.NoError(t, err)
	assert.False(t, v.BombPot)
	assert.Equal(t, "preflop", v.Phase)
}

func TestStraddleThroughSession(t *testing.T) {
	tt := newTestTable(t, func(o *Options) { o.HandInterval = 5 * time.Second })
	ctx := context.Background()
	for i, p := range []string{"a", "b", "c"} {
		tt.join(t, i, p, 1000)
	}
	tt.advance(t, 5*time.Second)
	v, err := tt.c.Snapshot(ctx, broadcast.Public)
	require.NoError(t, err)
	utg := v.CurrentActorSeat
	v, err = tt.c.PostStraddle(ctx, utg, 40)
	require.NoError(t, err)
	assert.Equal(t, utg, v.StraddleSeat)
	assert.Equal(t, int64(40), v.CurrentBet)
	assert.NotEqual(t, utg, v.CurrentActorSeat)
}

func TestRabbitHuntThroughSession(t *testing.T) {
	tt := newTestTable(t, func(o *Options) { o.HandInterval = 5 * time.Second })
	ctx := context.Background()
	tt.join(t, 0, "alice", 500)
	tt.join(t, 1, "bob", 500)
	tt.advance(t, 5*time.Second)

	_, err := tt.c.RabbitHunt(ctx, 0)
	require.ErrorIs(t, err, game.ErrIllegalAction)

	_, err = tt.c.Act(ctx, 0, game.ActionFold, 0, "")
	require.NoError(t, err)

	v, err := tt.c.RabbitHunt(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, v.RabbitCards, 5)
	assert.Equal(t, int64(485), v.Seats[0].Stack)
	assert.Equal(t, int64(5), tt.roster.fees["alice"])
	assert.Len(t, tt.events("rabbit_hunt"), 1)
}

func TestTimeBankExtendsTurn(t *testing.T) {
	tt := newTestTable(t, nil)
	ctx := context.Background()
	tt.join(t, 0, "alice", 500)
	tt.join(t, 1, "bob", 500)

	_, err := tt.c.UseTimeBank(ctx, 1, 10)
	require.ErrorIs(t, err, game.ErrInvalidTurn)

	v, err := tt.c.UseTimeBank(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(25000), v.Seats[0].TimerRemainingMS)
	assert.Equal(t, int64(20000), v.Seats[0].TimeBankMS)

	tt.advance(t, 15*time.Second)
	require.Empty(t, tt.roster.settledHands(), "bank time must postpone the expiry")
	tt.advance(t, 10*time.Second)
	require.Len(t, tt.roster.settledHands(), 1)
}

func TestLeaveMidHandCashesOutAfterHand(t *testing.T) {
	tt := newTestTable(t, nil)
	ctx := context.Background()
	tt.join(t, 0, "alice", 500)
	tt.join(t, 1, "bob", 500)

	v, err := tt.c.Leave(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "waiting", v.Phase)
	assert.Len(t, v.Seats, 1)
	assert.Equal(t, int64(490), tt.roster.cashOuts["alice"])

	_, err = tt.c.Leave(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(510), tt.roster.cashOuts["bob"])
}

func TestCloseRefundsRunningHand(t *testing.T) {
	tt := newTestTable(t, nil)
	tt.join(t, 0, "alice", 500)
	tt.join(t, 1, "bob", 500)

	require.NoError(t, tt.c.Close(context.Background()))
	require.Len(t, tt.roster.aborted, 1)
	assert.Equal(t, int64(500), tt.roster.cashOuts["alice"])
	assert.Equal(t, int64(500), tt.roster.cashOuts["bob"])

	_, err := tt.c.Snapshot(context.Background(), 0)
	require.True(t, errors.Is(err, ErrTableClosed))
	require.ErrorIs(t, tt.c.Close(context.Background()), ErrTableClosed)
}

func TestSnapshotSequenceIncreases(t *testing.T) {
	tt := newTestTable(t, nil)
	tt.join(t, 0, "alice", 500)
	tt.join(t, 1, "bob", 500)
	snaps := tt.events("snapshot")
	require.NotEmpty(t, snaps)
	var last uint64
	for _, ev := range snaps {
		v := ev.Data.(viewmodel.TableView)
		require.Greater(t, v.Seq, last)
		require.Equal(t, strconv.FormatUint(v.Seq, 10), ev.EventID)
		require.Empty(t, v.Seats[0].HoleCards, "public snapshots never carry hole cards")
		last = v.Seq
	}
	private := tt.hub.Buffer("t1").ReplayAfter("", 1)
	var holes int
	for _, ev := range private {
		if ev.Event == "hole_cards" {
			holes++
			require.Equal(t, 1, ev.Seat)
		}
	}
	require.Equal(t, 1, holes)
}
