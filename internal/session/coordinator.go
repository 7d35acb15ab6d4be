package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"poker-club/internal/broadcast"
	"poker-club/internal/game"
	"poker-club/internal/game/viewmodel"
	"poker-club/internal/reconnect"
	"poker-club/internal/turntimer"
)

// Coordinator owns one table. Commands, timer expiries, retry attempts and
// hand scheduling all run as closures on a single goroutine, so the engine
// only ever has one writer.
type Coordinator struct {
	id     string
	opts   Options
	clock  quartz.Clock
	engine *game.Engine
	timer  *turntimer.Timer
	conns  *reconnect.Manager
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	cmds   chan func()
	quit   chan struct{}
	exited chan struct{}
	once   sync.Once

	// Fields below belong to the writer goroutine.
	seq         uint64
	tokens      map[int]string
	pendingBomb bool
	nextHand    *quartz.Timer
	closed      bool
}

func NewCoordinator(id string, opts Options) (*Coordinator, error) {
	opts = opts.withDefaults()
	engine, err := game.NewEngine(id, opts.Rules, opts.Rand)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", id, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		id:     id,
		opts:   opts,
		clock:  opts.Clock,
		engine: engine,
		log:    log.With().Str("table_id", id).Logger(),
		ctx:    ctx,
		cancel: cancel,
		cmds:   make(chan func()),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
		tokens: map[int]string{},
	}
	c.timer = turntimer.New(c.clock, opts.ActionTime, opts.TimeBank, func(exp turntimer.Expiry) {
		c.call(func() { c.expire(exp) })
	})
	c.conns = reconnect.NewManager(c.clock, opts.Reconnect, func(a reconnect.Attempt) {
		c.call(func() { c.retry(a) })
	})
	go c.loop()
	metricTablesOpen.Add(1)
	c.log.Info().Int("capacity", opts.Rules.Capacity).Dur("action_time", opts.ActionTime).Msg("table opened")
	return c, nil
}

func (c *Coordinator) ID() string {
	return c.id
}

func (c *Coordinator) loop() {
	defer close(c.exited)
	for {
		select {
		case <-c.quit:
			return
		case fn := <-c.cmds:
			fn()
		}
	}
}

// call runs fn on the writer goroutine and waits for it. Clock callbacks
// use it so an expiry is fully applied before the clock moves on.
func (c *Coordinator) call(fn func()) {
	done := make(chan struct{})
	select {
	case c.cmds <- func() { defer close(done); fn() }:
	case <-c.quit:
		return
	}
	select {
	case <-done:
	case <-c.exited:
	}
}

type reply struct {
	view viewmodel.TableView
	err  error
}

// do submits a command. A rejected command leaves the table untouched and
// is counted.
func (c *Coordinator) do(ctx context.Context, name string, fn func() (viewmodel.TableView, error)) (viewmodel.TableView, error) {
	ch := make(chan reply, 1)
	cmd := func() {
		if c.closed {
			ch <- reply{err: ErrTableClosed}
			return
		}
		v, err := fn()
		ch <- reply{view: v, err: err}
	}
	select {
	case c.cmds <- cmd:
	case <-c.quit:
		return viewmodel.TableView{}, ErrTableClosed
	case <-ctx.Done():
		return viewmodel.TableView{}, ctx.Err()
	}
	select {
	case r := <-ch:
		if r.err != nil {
			metricCommandsRejected.Add(1)
			c.log.Info().Str("command", name).Err(r.err).Msg("command rejected")
		} else {
			c.log.Debug().Str("command", name).Uint64("seq", r.view.Seq).Msg("command applied")
		}
		return r.view, r.err
	case <-c.exited:
		return viewmodel.TableView{}, ErrTableClosed
	}
}

// Close ends the table. A running hand is aborted and refunded, every seat
// is cashed out and the writer goroutine stops.
func (c *Coordinator) Close(ctx context.Context) error {
	var err error
	ran := false
	c.once.Do(func() {
		ran = true
		ch := make(chan error, 1)
		select {
		case c.cmds <- func() { ch <- c.shutdown() }:
			err = <-ch
		case <-ctx.Done():
			err = ctx.Err()
		}
		close(c.quit)
		<-c.exited
		c.cancel()
		metricTablesOpen.Add(-1)
	})
	if !ran {
		return ErrTableClosed
	}
	return err
}

func (c *Coordinator) shutdown() error {
	c.closed = true
	c.cancelNextHand()
	c.timer.Stop()
	var errs []error
	if c.engine.State.Phase.Betting() {
		out, err := c.engine.AbortHand(ErrTableClosed)
		if err == nil {
			c.finishHand(out)
		}
	}
	for i, s := range c.engine.State.Seats {
		if s == nil {
			continue
		}
		dep, _, err := c.engine.Leave(i)
		if err != nil || dep == nil {
			continue
		}
		if err := c.depart(*dep); err != nil {
			errs = append(errs, err)
		}
	}
	c.publish("table_closed", broadcast.Public, map[string]any{"table_id": c.id})
	c.log.Info().Msg("table closed")
	return errors.Join(errs...)
}

func (c *Coordinator) view(viewer int) viewmodel.TableView {
	v := viewmodel.Build(c.engine, viewer, c.seatClock)
	v.Seq = c.seq
	v.PendingBombPot = c.pendingBomb
	return v
}

func (c *Coordinator) seatClock(seat int) viewmodel.SeatClock {
	return viewmodel.SeatClock{
		TimerRemaining: c.timer.Remaining(seat),
		TimeBank:       c.timer.Bank(seat),
		Connection:     string(c.conns.Status(seat).State),
	}
}

func (c *Coordinator) publish(name string, seat int, data any) {
	c.seq++
	ev := broadcast.Event{
		EventID:  strconv.FormatUint(c.seq, 10),
		Event:    name,
		TableID:  c.id,
		Seat:     seat,
		ServerTS: c.clock.Now().UnixMilli(),
		Data:     data,
	}
	if err := c.opts.Publisher.Publish(c.ctx, ev); err != nil {
		c.log.Warn().Err(err).Str("event", name).Msg("publish failed")
	}
}

func (c *Coordinator) publishSnapshot() {
	c.seq++
	v := c.view(broadcast.Public)
	ev := broadcast.Event{
		EventID:  strconv.FormatUint(c.seq, 10),
		Event:    "snapshot",
		TableID:  c.id,
		Seat:     broadcast.Public,
		ServerTS: c.clock.Now().UnixMilli(),
		Data:     v,
	}
	if err := c.opts.Publisher.Publish(c.ctx, ev); err != nil {
		c.log.Warn().Err(err).Msg("publish snapshot failed")
	}
}

func (c *Coordinator) handLog() *zerolog.Logger {
	l := c.log.With().Str("hand_id", c.engine.State.HandID).Int64("hand_no", c.engine.State.HandNumber).Logger()
	return &l
}

// apply reacts to an accepted engine transition: it restarts the turn
// timer for the next actor or settles a finished hand, then publishes.
func (c *Coordinator) apply(out *game.Outcome) {
	if out == nil {
		c.publishSnapshot()
		return
	}
	if out.Seat >= 0 && out.Action != "" {
		metricActionsApplied.Add(1)
		c.publish("action", broadcast.Public, out)
	}
	if len(out.Dealt) > 0 {
		c.publish("board", broadcast.Public, map[string]any{
			"phase": out.Phase,
			"cards": game.CardStrings(out.Dealt),
			"board": game.CardStrings(c.engine.State.Community),
		})
	}
	if out.HandOver {
		c.finishHand(out)
		c.scheduleHand()
		return
	}
	if out.NextActor >= 0 {
		c.timer.Start(out.NextActor, out.TurnID)
	}
	c.publishSnapshot()
}

func (c *Coordinator) finishHand(out *game.Outcome) {
	c.timer.Stop()
	r := out.Result
	lg := c.handLog()
	if r.Aborted {
		metricHandsAborted.Add(1)
		lg.Error().Str("reason", r.AbortReason).Msg("hand aborted")
		if err := c.opts.Roster.RecordAbort(c.ctx, c.id, r); err != nil {
			lg.Error().Err(err).Msg("record aborted hand")
		}
	} else {
		lg.Info().Int64("pot", r.PaidOut()).Bool("fold_out", r.FoldOut).Msg("hand settled")
		if err := c.opts.Roster.SettleHand(c.ctx, c.id, r); err != nil {
			lg.Error().Err(err).Msg("settle hand")
		}
	}
	c.publish("hand_result", broadcast.Public, r)
	for _, d := range c.engine.FinishHand() {
		if err := c.depart(d); err != nil {
			lg.Error().Err(err).Str("player_id", d.PlayerID).Msg("cash out after hand")
		}
	}
	c.publishSnapshot()
}

// depart releases a seat that already left the engine.
func (c *Coordinator) depart(d game.Departure) error {
	c.timer.Forget(d.Seat)
	c.conns.Forget(d.Seat)
	delete(c.tokens, d.Seat)
	c.log.Info().Int("seat", d.Seat).Str("player_id", d.PlayerID).Int64("stack", d.Stack).Msg("seat left")
	if d.Stack <= 0 {
		return nil
	}
	return c.opts.Roster.CashOut(c.ctx, c.id, d.PlayerID, d.Stack)
}

// scheduleHand queues the next deal after the hand interval.
func (c *Coordinator) scheduleHand() {
	if c.closed || c.nextHand != nil || !c.engine.CanStartHand() {
		return
	}
	if c.opts.HandInterval <= 0 {
		c.startHand()
		return
	}
	c.nextHand = c.clock.AfterFunc(c.opts.HandInterval, func() {
		c.call(func() {
			c.nextHand = nil
			c.startHand()
		})
	}, "session", "next_hand")
}

func (c *Coordinator) cancelNextHand() {
	if c.nextHand != nil {
		c.nextHand.Stop()
		c.nextHand = nil
	}
}

func (c *Coordinator) startHand() {
	if c.closed || !c.engine.CanStartHand() {
		return
	}
	c.cancelNextHand()
	handID := c.opts.NewHandID()
	var (
		out *game.Outcome
		err error
	)
	if c.pendingBomb {
		c.pendingBomb = false
		out, err = c.engine.StartBombPot(handID)
	} else {
		out, err = c.engine.StartHand(handID)
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("start hand")
		return
	}
	metricHandsStarted.Add(1)
	st := c.engine.State
	c.handLog().Info().Int("dealer", st.Dealer).Bool("bomb_pot", st.BombPot).Msg("hand started")
	c.publish("hand_started", broadcast.Public, map[string]any{
		"hand_id":     st.HandID,
		"hand_number": st.HandNumber,
		"dealer_seat": st.Dealer,
		"bomb_pot":    st.BombPot,
		"level":       st.Level,
	})
	for _, s := range st.Seats {
		if s == nil || !s.InHand || len(s.Hole) == 0 {
			continue
		}
		c.publish("hole_cards", s.Index, map[string]any{
			"hand_id": st.HandID,
			"seat":    s.Index,
			"cards":   game.CardStrings(s.Hole),
		})
	}
	c.apply(out)
}

func (c *Coordinator) expire(exp turntimer.Expiry) {
	if c.closed || !c.timer.Claim(exp) {
		return
	}
	out, err := c.engine.ApplyTimeout(exp.Seat, exp.Turn)
	if err != nil {
		c.log.Debug().Err(err).Int("seat", exp.Seat).Msg("expiry ignored")
		return
	}
	metricTimeouts.Add(1)
	c.handLog().Info().Int("seat", exp.Seat).Str("action", out.Action).Msg("turn timed out")
	c.apply(out)
}

func (c *Coordinator) retry(a reconnect.Attempt) {
	if c.closed {
		return
	}
	present := c.opts.Presence != nil && c.opts.Presence.Online(c.id, a.Seat)
	switch c.conns.Resolve(a, present) {
	case reconnect.Stale:
		return
	case reconnect.Reconnected:
		_ = c.engine.SetOffline(a.Seat, false)
		c.log.Info().Int("seat", a.Seat).Int("attempt", a.N).Msg("seat reconnected")
	case reconnect.Retrying:
		c.log.Debug().Int("seat", a.Seat).Int("attempt", a.N).Msg("reconnect attempt failed")
	case reconnect.Exhausted:
		metricReconnectsFailed.Add(1)
		_ = c.engine.SetSittingOut(a.Seat, true)
		c.log.Warn().Int("seat", a.Seat).Int("attempts", a.N).Msg("reconnect attempts exhausted")
		c.publish("connection_exhausted", broadcast.Public, map[string]any{"seat": a.Seat})
	}
	c.publishSnapshot()
}
