package session

import (
	"context"
	"fmt"
	"time"

	"poker-club/internal/broadcast"
	"poker-club/internal/game"
	"poker-club/internal/game/viewmodel"
	"poker-club/internal/reconnect"
)

// Join seats a player with a buy-in. The reply carries the seat token that
// authenticates every later command for the seat.
func (c *Coordinator) Join(ctx context.Context, seat int, playerID string, buyIn int64) (viewmodel.TableView, error) {
	return c.do(ctx, "join", func() (viewmodel.TableView, error) {
		st := c.engine.State
		if seat < 0 || seat >= len(st.Seats) {
			return viewmodel.TableView{}, fmt.Errorf("%w: seat %d out of range", game.ErrSeatUnavailable, seat)
		}
		if s := st.Seats[seat]; s != nil {
			if s.PlayerID == playerID && c.conns.Status(seat).Permanent {
				return viewmodel.TableView{}, fmt.Errorf("%w: seat %d is held for %s; rejoin with its seat token", game.ErrSeatUnavailable, seat, playerID)
			}
			return viewmodel.TableView{}, fmt.Errorf("%w: seat %d is taken", game.ErrSeatUnavailable, seat)
		}
		if _, ok := c.engine.SeatOf(playerID); ok {
			return viewmodel.TableView{}, fmt.Errorf("%w: player %s already seated", game.ErrSeatUnavailable, playerID)
		}
		if buyIn <= 0 || (c.opts.MinBuyIn > 0 && buyIn < c.opts.MinBuyIn) || (c.opts.MaxBuyIn > 0 && buyIn > c.opts.MaxBuyIn) {
			return viewmodel.TableView{}, fmt.Errorf("%w: buy-in %d outside %d-%d", game.ErrIllegalAction, buyIn, c.opts.MinBuyIn, c.opts.MaxBuyIn)
		}
		token, err := newSeatToken()
		if err != nil {
			return viewmodel.TableView{}, err
		}
		if err := c.opts.Roster.BuyIn(c.ctx, c.id, playerID, buyIn); err != nil {
			return viewmodel.TableView{}, err
		}
		if err := c.engine.SeatPlayer(seat, playerID, buyIn); err != nil {
			if rerr := c.opts.Roster.CashOut(c.ctx, c.id, playerID, buyIn); rerr != nil {
				c.log.Error().Err(rerr).Str("player_id", playerID).Msg("refund buy-in")
			}
			return viewmodel.TableView{}, err
		}
		c.tokens[seat] = hashSeatToken(token)
		c.timer.Track(seat)
		c.conns.Track(seat)
		c.log.Info().Int("seat", seat).Str("player_id", playerID).Int64("buy_in", buyIn).Msg("seat joined")
		c.publish("seat_joined", broadcast.Public, map[string]any{"seat": seat, "player_id": playerID, "stack": buyIn})
		c.publishSnapshot()
		c.scheduleHand()
		v := c.view(seat)
		v.SeatToken = token
		return v, nil
	})
}

// Rejoin takes back a permanently disconnected seat with its stack and no
// new buy-in. Only the holder of the seat token may do so.
func (c *Coordinator) Rejoin(ctx context.Context, token string) (viewmodel.TableView, error) {
	return c.do(ctx, "rejoin", func() (viewmodel.TableView, error) {
		seat, err := c.seatForToken(token)
		if err != nil {
			return viewmodel.TableView{}, err
		}
		if !c.conns.Status(seat).Permanent {
			return viewmodel.TableView{}, fmt.Errorf("%w: seat %d is still connected or retrying", game.ErrIllegalAction, seat)
		}
		c.conns.Rejoin(seat)
		_ = c.engine.SetOffline(seat, false)
		_ = c.engine.SetSittingOut(seat, false)
		c.log.Info().Int("seat", seat).Msg("seat rejoined")
		c.publishSnapshot()
		c.scheduleHand()
		return c.view(seat), nil
	})
}

// Leave frees the seat. A seat in the running hand folds now and is cashed
// out when the hand ends.
func (c *Coordinator) Leave(ctx context.Context, seat int) (viewmodel.TableView, error) {
	return c.do(ctx, "leave", func() (viewmodel.TableView, error) {
		dep, out, err := c.engine.Leave(seat)
		if err != nil {
			return viewmodel.TableView{}, err
		}
		if dep != nil {
			if err := c.depart(*dep); err != nil {
				c.log.Error().Err(err).Str("player_id", dep.PlayerID).Msg("cash out")
			}
			c.publish("seat_left", broadcast.Public, map[string]any{"seat": seat, "player_id": dep.PlayerID, "stack": dep.Stack})
		} else {
			// Leaving at hand end; nobody is coming back for the connection.
			c.conns.Forget(seat)
		}
		c.apply(out)
		return c.view(broadcast.Public), nil
	})
}

// Act applies fold, check, call, raise or all-in for the seat to act. A
// non-empty turnID must name the live turn.
func (c *Coordinator) Act(ctx context.Context, seat int, kind game.ActionKind, amount int64, turnID string) (viewmodel.TableView, error) {
	return c.do(ctx, "act", func() (viewmodel.TableView, error) {
		if err := c.engine.CheckTurn(turnID); err != nil {
			return viewmodel.TableView{}, err
		}
		out, err := c.engine.ApplyAction(seat, kind, amount)
		if err != nil {
			return viewmodel.TableView{}, err
		}
		c.apply(out)
		return c.view(seat), nil
	})
}

// UseTimeBank extends the seat's running turn by up to seconds from its
// bank.
func (c *Coordinator) UseTimeBank(ctx context.Context, seat int, seconds int) (viewmodel.TableView, error) {
	return c.do(ctx, "use_time_bank", func() (viewmodel.TableView, error) {
		if !c.engine.State.Phase.Betting() {
			return viewmodel.TableView{}, fmt.Errorf("%w: no betting round in progress", game.ErrTableNotReady)
		}
		added, err := c.timer.UseBank(seat, time.Duration(seconds)*time.Second)
		if err != nil {
			return viewmodel.TableView{}, err
		}
		c.publish("time_bank", broadcast.Public, map[string]any{"seat": seat, "added_ms": added.Milliseconds()})
		c.publishSnapshot()
		return c.view(seat), nil
	})
}

func (c *Coordinator) PostStraddle(ctx context.Context, seat int, amount int64) (viewmodel.TableView, error) {
	return c.do(ctx, "post_straddle", func() (viewmodel.TableView, error) {
		if !c.opts.Rules.AllowStraddle {
			return viewmodel.TableView{}, fmt.Errorf("%w: straddle", ErrFeatureDisabled)
		}
		out, err := c.engine.PostStraddle(seat, amount)
		if err != nil {
			return viewmodel.TableView{}, err
		}
		c.apply(out)
		return c.view(seat), nil
	})
}

// TriggerBombPot deals a bomb pot now when the table is idle, otherwise
// marks the next hand as one. An idle table without two eligible seats
// rejects it rather than leaving a bomb pot pending.
func (c *Coordinator) TriggerBombPot(ctx context.Context) (viewmodel.TableView, error) {
	return c.do(ctx, "trigger_bomb_pot", func() (viewmodel.TableView, error) {
		if !c.opts.Rules.AllowBombPot {
			return viewmodel.TableView{}, fmt.Errorf("%w: bomb pot", ErrFeatureDisabled)
		}
		idle := c.engine.State.Phase == game.PhaseWaiting
		if idle && !c.engine.CanStartHand() {
			return viewmodel.TableView{}, fmt.Errorf("%w: bomb pot needs two eligible seats, have %d", game.ErrTableNotReady, len(c.engine.EligibleSeats()))
		}
		c.pendingBomb = true
		if idle {
			c.startHand()
		} else {
			c.publishSnapshot()
		}
		return c.view(broadcast.Public), nil
	})
}

// RabbitHunt reveals the undealt board of the last folded-out hand to the
// seat. The reply carries the cards; the fee is recorded with the roster.
func (c *Coordinator) RabbitHunt(ctx context.Context, seat int) (viewmodel.TableView, error) {
	return c.do(ctx, "rabbit_hunt", func() (viewmodel.TableView, error) {
		if !c.opts.Rules.AllowRabbitHunt {
			return viewmodel.TableView{}, fmt.Errorf("%w: rabbit hunt", ErrFeatureDisabled)
		}
		cards, fee, err := c.engine.RabbitHunt(seat)
		if err != nil {
			return viewmodel.TableView{}, err
		}
		st := c.engine.State
		s := st.Seats[seat]
		if fee > 0 {
			if err := c.opts.Roster.ChargeFee(c.ctx, c.id, st.LastResult.HandID, s.PlayerID, "rabbit_hunt", fee); err != nil {
				c.log.Error().Err(err).Int("seat", seat).Msg("record rabbit hunt fee")
			}
		}
		shown := game.CardStrings(cards)
		c.publish("rabbit_hunt", broadcast.Public, map[string]any{
			"seat":    seat,
			"hand_id": st.LastResult.HandID,
			"cards":   shown,
			"fee":     fee,
		})
		c.publishSnapshot()
		v := c.view(seat)
		v.RabbitCards = shown
		return v, nil
	})
}

// Disconnect is raised by a transport when the seat's connection drops. It
// starts the retry schedule; the turn timer keeps running.
func (c *Coordinator) Disconnect(ctx context.Context, seat int) (viewmodel.TableView, error) {
	return c.do(ctx, "disconnect", func() (viewmodel.TableView, error) {
		if err := c.conns.Lost(seat); err != nil {
			return viewmodel.TableView{}, err
		}
		if c.conns.Status(seat).State != reconnect.Connected {
			_ = c.engine.SetOffline(seat, true)
		}
		c.log.Info().Int("seat", seat).Msg("seat disconnected")
		c.publishSnapshot()
		return c.view(broadcast.Public), nil
	})
}

// Reconnect restores the seat at once. The running turn keeps its original
// deadline.
func (c *Coordinator) Reconnect(ctx context.Context, seat int) (viewmodel.TableView, error) {
	return c.do(ctx, "reconnect", func() (viewmodel.TableView, error) {
		if err := c.conns.Reconnect(seat); err != nil {
			return viewmodel.TableView{}, err
		}
		if err := c.engine.SetOffline(seat, false); err != nil {
			return viewmodel.TableView{}, err
		}
		c.log.Info().Int("seat", seat).Msg("seat reconnected")
		c.publishSnapshot()
		c.scheduleHand()
		return c.view(seat), nil
	})
}

// CancelReconnect gives up on the seat's connection. The seat sits out
// until its player joins it again.
func (c *Coordinator) CancelReconnect(ctx context.Context, seat int) (viewmodel.TableView, error) {
	return c.do(ctx, "cancel_reconnect", func() (viewmodel.TableView, error) {
		if err := c.conns.Cancel(seat); err != nil {
			return viewmodel.TableView{}, err
		}
		_ = c.engine.SetSittingOut(seat, true)
		c.log.Info().Int("seat", seat).Msg("reconnect cancelled")
		c.publishSnapshot()
		return c.view(broadcast.Public), nil
	})
}

// Snapshot returns the table as seen from viewer; -1 is a spectator.
func (c *Coordinator) Snapshot(ctx context.Context, viewer int) (viewmodel.TableView, error) {
	return c.do(ctx, "snapshot", func() (viewmodel.TableView, error) {
		return c.view(viewer), nil
	})
}
