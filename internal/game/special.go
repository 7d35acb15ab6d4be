package game

import "fmt"

// StartBombPot starts a hand where every dealt-in seat posts the bomb pot
// ante and the flop comes out at once. There is no preflop betting.
func (e *Engine) StartBombPot(handID string) (*Outcome, error) {
	t := e.State
	if !t.Rules.AllowBombPot {
		return nil, illegal("bomb pots are disabled")
	}
	out, err := e.begin(handID)
	if err != nil || out.HandOver {
		return out, err
	}
	t.BombPot = true
	for _, s := range t.Seats {
		if s != nil && s.InHand {
			post(s, t.Rules.BombPotAnte, false, labelBombAnte)
		}
	}
	out.Action = "bomb_pot"
	flop, err := e.Deck.DealN(3)
	if err != nil {
		e.abort(out, err)
		return out, nil
	}
	t.Community = append(t.Community, flop...)
	t.Phase = PhaseFlop
	out.Dealt = flop
	out.Phase = PhaseFlop
	e.advance(out, t.Dealer, false)
	return out, nil
}

// PostStraddle lets the first seat to act preflop post a blind of at least
// two big blinds before any voluntary action. The straddle becomes the bet
// to call and the straddler keeps the option to raise when action returns.
func (e *Engine) PostStraddle(idx int, amount int64) (*Outcome, error) {
	t := e.State
	if !t.Rules.AllowStraddle {
		return nil, illegal("straddles are disabled")
	}
	if t.Phase != PhasePreflop || t.BombPot {
		return nil, illegal("straddle only before preflop action")
	}
	s, err := t.Seat(idx)
	if err != nil {
		return nil, err
	}
	if t.StraddleSeat >= 0 {
		return nil, illegal("seat %d already straddled", t.StraddleSeat)
	}
	if t.count(func(s *Seat) bool { return s.Acted }) > 0 {
		return nil, illegal("preflop action already started")
	}
	if t.count(func(s *Seat) bool { return s.InHand }) < 3 {
		return nil, illegal("straddle needs three or more players")
	}
	if idx != t.CurrentActor {
		return nil, fmt.Errorf("%w: only seat %d may straddle", ErrInvalidTurn, t.CurrentActor)
	}
	if s.Status != SeatActive {
		return nil, illegal("seat %d is %s", idx, s.Status)
	}
	if floor := 2 * t.Level.BigBlind; amount < floor {
		return nil, illegal("straddle %d below %d", amount, floor)
	}
	if amount > s.Stack {
		return nil, fmt.Errorf("%w: straddle %d exceeds stack %d", ErrInsufficientStack, amount, s.Stack)
	}
	post(s, amount, true, labelStraddle)
	t.CurrentBet = amount
	t.MinRaise = amount
	t.FullBetLevel = amount
	t.StraddleSeat = idx

	out := &Outcome{Seat: idx, Action: labelStraddle, Amount: amount}
	e.advance(out, idx, false)
	return out, nil
}

// RabbitHunt shows a seat of the last, folded-out hand the community cards
// that would have come. The fee leaves the seat's stack and never touches
// the pot.
func (e *Engine) RabbitHunt(idx int) ([]Card, int64, error) {
	t := e.State
	if !t.Rules.AllowRabbitHunt {
		return nil, 0, illegal("rabbit hunting is disabled")
	}
	r := t.LastResult
	if r == nil || !r.FoldOut || t.Phase.Betting() {
		return nil, 0, illegal("no folded-out hand to hunt")
	}
	s, err := t.Seat(idx)
	if err != nil {
		return nil, 0, err
	}
	if r.Players[idx] != s.PlayerID {
		return nil, 0, illegal("seat %d was not dealt into hand %d", idx, r.HandNumber)
	}
	if s.RabbitHunted {
		return nil, 0, illegal("seat %d already hunted hand %d", idx, r.HandNumber)
	}
	missing := 5 - len(t.Community)
	if missing <= 0 {
		return nil, 0, illegal("the board is complete")
	}
	cost := t.Rules.RabbitHuntCost
	if s.Stack < cost {
		return nil, 0, fmt.Errorf("%w: rabbit hunt costs %d", ErrInsufficientStack, cost)
	}
	if e.Deck == nil || e.Deck.Remaining() < missing {
		return nil, 0, ErrDeckExhausted
	}
	s.Stack -= cost
	s.RabbitHunted = true
	if s.Stack == 0 && !s.InHand {
		e.refreshStatus(s)
	}
	return e.Deck.Peek(missing), cost, nil
}
