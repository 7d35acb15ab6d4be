package game

import (
	"errors"
	"fmt"
)

func (e *Engine) newResult() *HandResult {
	t := e.State
	r := &HandResult{
		HandID:      t.HandID,
		HandNumber:  t.HandNumber,
		Board:       CardStrings(t.Community),
		Players:     map[int]string{},
		Contributed: map[int]int64{},
		Payouts:     map[int]int64{},
		Deltas:      map[int]int64{},
	}
	for _, s := range t.Seats {
		if s != nil && s.InHand {
			r.Players[s.Index] = s.PlayerID
			r.Contributed[s.Index] = s.HandContrib
		}
	}
	return r
}

func (e *Engine) foldOut(out *Outcome) {
	t := e.State
	e.returnUncalled()
	winner := t.next(-1, (*Seat).live)
	r := e.newResult()
	r.FoldOut = true
	r.Pots = t.Pots()
	total := t.Pot()
	r.Awards = []PotAward{{
		Pot:     Pot{Amount: total, Cap: r.Contributed[winner], Eligible: []int{winner}},
		Winners: []int{winner},
		Shares:  map[int]int64{winner: total},
	}}
	r.Payouts[winner] = total
	e.settle(out, r)
}

func (e *Engine) showdown(out *Outcome) {
	t := e.State
	pots := t.Pots()
	if err := e.checkPots(pots); err != nil {
		e.abort(out, err)
		return
	}
	r := e.newResult()
	r.Pots = pots

	ranks := map[int]HandRank{}
	for _, s := range t.Seats {
		if !s.live() {
			continue
		}
		cards := append(append([]Card(nil), s.Hole...), t.Community...)
		h, err := Evaluate(cards)
		if err != nil {
			e.abort(out, fmt.Errorf("%w: seat %d: %v", ErrCorruptPot, s.Index, err))
			return
		}
		ranks[s.Index] = h
		r.Reveals = append(r.Reveals, Reveal{
			Seat:     s.Index,
			PlayerID: s.PlayerID,
			Hole:     CardStrings(s.Hole),
			Best:     CardStrings(h.Best),
			Category: h.Category.String(),
			Hand:     h.Describe(),
		})
	}

	for _, p := range pots {
		winners := []int{p.Eligible[0]}
		if len(p.Eligible) > 1 {
			winners = winners[:0]
			var best HandRank
			for _, seat := range p.Eligible {
				h := ranks[seat]
				switch {
				case len(winners) == 0 || h.BetterThan(best):
					best = h
					winners = []int{seat}
				case h.Compare(best) == 0:
					winners = append(winners, seat)
				}
			}
		}
		winners = t.clockwiseFromDealer(winners)
		a := PotAward{Pot: p, Winners: winners, Shares: splitPot(p.Amount, winners)}
		if h, ok := ranks[winners[0]]; ok && len(p.Eligible) > 1 {
			a.Hand = h.Describe()
		}
		for seat, v := range a.Shares {
			r.Payouts[seat] += v
		}
		r.Awards = append(r.Awards, a)
	}
	e.settle(out, r)
}

// splitPot divides evenly; the odd chips go to the first winner, who is the
// earliest clockwise from the button.
func splitPot(amount int64, winners []int) map[int]int64 {
	shares := make(map[int]int64, len(winners))
	n := int64(len(winners))
	each := amount / n
	for _, w := range winners {
		shares[w] = each
	}
	shares[winners[0]] += amount - each*n
	return shares
}

func (e *Engine) checkPots(pots []Pot) error {
	t := e.State
	if got, want := PotsTotal(pots), t.Pot(); got != want {
		return fmt.Errorf("%w: layers hold %d, contributions %d", ErrCorruptPot, got, want)
	}
	for i, p := range pots {
		if len(p.Eligible) == 0 {
			return fmt.Errorf("%w: pot %d has no eligible seat", ErrCorruptPot, i)
		}
		for _, seat := range p.Eligible {
			if !t.Seats[seat].live() {
				return fmt.Errorf("%w: pot %d lists folded seat %d", ErrCorruptPot, i, seat)
			}
		}
	}
	return nil
}

func (e *Engine) settle(out *Outcome, r *HandResult) {
	t := e.State
	for seat, v := range r.Payouts {
		t.Seats[seat].Stack += v
	}
	for seat, c := range r.Contributed {
		r.Deltas[seat] = r.Payouts[seat] - c
	}
	e.closeHand(out, r)
}

func (e *Engine) closeHand(out *Outcome, r *HandResult) {
	t := e.State
	t.Phase = PhaseShowdown
	t.CurrentActor = -1
	t.LastResult = r
	out.Phase = PhaseShowdown
	out.NextActor = -1
	out.TurnID = ""
	out.HandOver = true
	out.Result = r
}

// abort refunds every contribution and ends the hand without a winner.
func (e *Engine) abort(out *Outcome, cause error) {
	t := e.State
	r := e.newResult()
	r.Aborted = true
	r.AbortReason = cause.Error()
	r.Refunds = map[int]int64{}
	for _, s := range t.Seats {
		if s == nil || !s.InHand {
			continue
		}
		r.Refunds[s.Index] = s.HandContrib
		r.Deltas[s.Index] = 0
		s.Stack += s.HandContrib
		s.HandContrib, s.StreetBet = 0, 0
	}
	e.closeHand(out, r)
}

// AbortHand cancels the running hand, refunding all contributions.
func (e *Engine) AbortHand(cause error) (*Outcome, error) {
	if !e.State.Phase.Betting() {
		return nil, fmt.Errorf("%w: no hand to abort", ErrTableNotReady)
	}
	if cause == nil {
		cause = errors.New("aborted")
	}
	out := &Outcome{Seat: -1, Action: "abort"}
	e.abort(out, cause)
	return out, nil
}
