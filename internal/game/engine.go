package game

import (
	"fmt"
	"math/rand"
	"time"
)

// Engine is the betting state machine of one table. It is not safe for
// concurrent use; the session coordinator is its only writer.
type Engine struct {
	State *Table
	Deck  *Deck
	// NewDeck builds the deck for each hand. Tests replace it to stack cards.
	NewDeck func() *Deck

	turn int
}

// Outcome reports what one accepted command did to the table.
type Outcome struct {
	Seat   int    `json:"seat"`
	Action string `json:"action"`
	Amount int64  `json:"amount"`
	Auto   bool   `json:"auto,omitempty"`

	Dealt     []Card      `json:"-"`
	Phase     Phase       `json:"phase"`
	NextActor int         `json:"next_actor"`
	TurnID    string      `json:"turn_id,omitempty"`
	HandOver  bool        `json:"hand_over"`
	Result    *HandResult `json:"result,omitempty"`
}

// Departure is a seat that left the table with its remaining stack.
type Departure struct {
	Seat     int
	PlayerID string
	Stack    int64
}

func NewEngine(tableID string, rules Rules, rnd *rand.Rand) (*Engine, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e := &Engine{State: NewTable(tableID, rules)}
	e.NewDeck = func() *Deck {
		d := NewDeck()
		d.Shuffle(rnd)
		return d
	}
	return e, nil
}

// TurnID names the current actor activation, e.g. "h12-t4". Empty when
// nobody is to act.
func (e *Engine) TurnID() string {
	t := e.State
	if t.CurrentActor < 0 || !t.Phase.Betting() {
		return ""
	}
	return fmt.Sprintf("h%d-t%d", t.HandNumber, e.turn)
}

// CheckTurn rejects a command aimed at an activation that already ended.
// An empty id is not checked.
func (e *Engine) CheckTurn(turnID string) error {
	if turnID == "" || turnID == e.TurnID() {
		return nil
	}
	return fmt.Errorf("%w: turn %s is over", ErrStaleTurn, turnID)
}

func (e *Engine) SeatPlayer(idx int, playerID string, stack int64) error {
	t := e.State
	if idx < 0 || idx >= len(t.Seats) {
		return fmt.Errorf("%w: seat %d out of range", ErrSeatUnavailable, idx)
	}
	if t.Seats[idx] != nil {
		return fmt.Errorf("%w: seat %d is taken", ErrSeatUnavailable, idx)
	}
	if playerID == "" {
		return fmt.Errorf("%w: player id required", ErrSeatUnavailable)
	}
	if _, ok := e.SeatOf(playerID); ok {
		return fmt.Errorf("%w: player %s already seated", ErrSeatUnavailable, playerID)
	}
	if stack <= 0 {
		return fmt.Errorf("%w: buy-in must be positive", ErrInsufficientStack)
	}
	t.Seats[idx] = &Seat{Index: idx, PlayerID: playerID, Stack: stack, Status: SeatActive}
	return nil
}

func (e *Engine) SeatOf(playerID string) (int, bool) {
	for _, s := range e.State.Seats {
		if s != nil && s.PlayerID == playerID {
			return s.Index, true
		}
	}
	return -1, false
}

// Leave removes the seat at once when it is not in the hand. A seat dealt
// into the running hand folds (if it still can) and departs at FinishHand,
// so the returned Departure is nil.
func (e *Engine) Leave(idx int) (*Departure, *Outcome, error) {
	t := e.State
	s, err := t.Seat(idx)
	if err != nil {
		return nil, nil, err
	}
	if !s.InHand || t.Phase == PhaseWaiting {
		t.Seats[idx] = nil
		return &Departure{Seat: idx, PlayerID: s.PlayerID, Stack: s.Stack}, nil, nil
	}
	s.Leaving = true
	if !t.Phase.Betting() || !s.canAct() {
		return nil, nil, nil
	}
	if idx == t.CurrentActor {
		out, err := e.act(s, ActionFold, 0, true)
		return nil, out, err
	}
	s.Status = SeatFolded
	s.Acted = true
	s.LastAction = string(ActionFold)
	out := &Outcome{Seat: idx, Action: string(ActionFold), Auto: true}
	e.advance(out, t.CurrentActor, true)
	return nil, out, nil
}

// SetOffline marks connectivity. An offline seat keeps its place in the
// running hand but cannot act; its timer folds it.
func (e *Engine) SetOffline(idx int, offline bool) error {
	s, err := e.State.Seat(idx)
	if err != nil {
		return err
	}
	s.Offline = offline
	e.refreshStatus(s)
	return nil
}

func (e *Engine) SetSittingOut(idx int, out bool) error {
	s, err := e.State.Seat(idx)
	if err != nil {
		return err
	}
	s.SittingOut = out
	e.refreshStatus(s)
	return nil
}

func (e *Engine) refreshStatus(s *Seat) {
	if s.InHand && e.State.Phase != PhaseWaiting {
		switch {
		case s.Offline && s.Status == SeatActive:
			s.Status = SeatDisconnected
		case !s.Offline && s.Status == SeatDisconnected:
			s.Status = SeatActive
		}
		return
	}
	switch {
	case s.SittingOut || s.Stack == 0:
		s.Status = SeatSittingOut
	case s.Offline:
		s.Status = SeatDisconnected
	default:
		s.Status = SeatActive
	}
}

func (e *Engine) EligibleSeats() []int {
	var out []int
	for _, s := range e.State.Seats {
		if s != nil && !s.Leaving && !s.SittingOut && !s.Offline && s.Stack > 0 {
			out = append(out, s.Index)
		}
	}
	return out
}

func (e *Engine) CanStartHand() bool {
	return e.State.Phase == PhaseWaiting && len(e.EligibleSeats()) >= 2
}

// StartHand moves the button, deals hole cards, posts antes and blinds and
// hands the turn to the seat after the big blind.
func (e *Engine) StartHand(handID string) (*Outcome, error) {
	out, err := e.begin(handID)
	if err != nil || out.HandOver {
		return out, err
	}
	t := e.State
	lvl := t.Level
	if lvl.Ante > 0 {
		for _, s := range t.Seats {
			if s != nil && s.InHand {
				post(s, lvl.Ante, false, labelAnte)
			}
		}
	}
	if t.count(func(s *Seat) bool { return s.InHand }) == 2 {
		t.SmallBlindSeat = t.Dealer
	} else {
		t.SmallBlindSeat = t.next(t.Dealer, func(s *Seat) bool { return s.InHand })
	}
	t.BigBlindSeat = t.next(t.SmallBlindSeat, func(s *Seat) bool { return s.InHand })
	post(t.Seats[t.SmallBlindSeat], lvl.SmallBlind, true, labelSmallBlind)
	post(t.Seats[t.BigBlindSeat], lvl.BigBlind, true, labelBigBlind)
	t.CurrentBet = lvl.BigBlind
	t.MinRaise = lvl.BigBlind
	t.FullBetLevel = lvl.BigBlind

	out.Seat = -1
	out.Action = "deal"
	e.advance(out, t.BigBlindSeat, false)
	return out, nil
}

func (e *Engine) begin(handID string) (*Outcome, error) {
	t := e.State
	if t.Phase != PhaseWaiting {
		return nil, fmt.Errorf("%w: hand %d still running", ErrTableNotReady, t.HandNumber)
	}
	seats := e.EligibleSeats()
	if len(seats) < 2 {
		return nil, fmt.Errorf("%w: %d eligible seats", ErrTableNotReady, len(seats))
	}
	in := make(map[int]bool, len(seats))
	for _, i := range seats {
		in[i] = true
	}

	t.HandNumber++
	t.HandID = handID
	t.Level = t.Rules.LevelFor(t.HandNumber)
	t.Phase = PhasePreflop
	t.Community = nil
	t.LastResult = nil
	t.BombPot = false
	t.SmallBlindSeat, t.BigBlindSeat, t.StraddleSeat = -1, -1, -1
	t.CurrentActor = -1
	t.CurrentBet, t.MinRaise, t.FullBetLevel = 0, t.Level.BigBlind, 0
	e.turn = 0
	for _, s := range t.Seats {
		if s == nil {
			continue
		}
		s.StreetBet, s.HandContrib = 0, 0
		s.Hole = nil
		s.LastAction = ""
		s.Acted, s.ActedAt = false, 0
		s.RabbitHunted = false
		s.InHand = in[s.Index]
		if s.InHand {
			s.Status = SeatActive
		}
	}
	t.Dealer = t.next(t.Dealer, func(s *Seat) bool { return s.InHand })

	out := &Outcome{Seat: -1, Phase: PhasePreflop, NextActor: -1}
	e.Deck = e.NewDeck()
	for round := 0; round < 2; round++ {
		for i := 0; i < len(t.Seats); i++ {
			s := t.Seats[(t.Dealer+1+i)%len(t.Seats)]
			if s == nil || !s.InHand {
				continue
			}
			c, err := e.Deck.Deal()
			if err != nil {
				e.abort(out, err)
				return out, nil
			}
			s.Hole = append(s.Hole, c)
		}
	}
	return out, nil
}

func post(s *Seat, amount int64, street bool, label string) int64 {
	if amount > s.Stack {
		amount = s.Stack
	}
	s.Stack -= amount
	s.HandContrib += amount
	if street {
		s.StreetBet += amount
	}
	if s.Stack == 0 {
		s.Status = SeatAllIn
	}
	s.LastAction = label
	return amount
}

// ApplyAction validates and applies a player action. A rejected action
// leaves the table untouched.
func (e *Engine) ApplyAction(idx int, kind ActionKind, amount int64) (*Outcome, error) {
	t := e.State
	if !t.Phase.Betting() {
		return nil, fmt.Errorf("%w: no betting round in progress", ErrTableNotReady)
	}
	s, err := t.Seat(idx)
	if err != nil {
		return nil, err
	}
	if idx != t.CurrentActor {
		return nil, fmt.Errorf("%w: seat %d to act, not seat %d", ErrInvalidTurn, t.CurrentActor, idx)
	}
	if s.Status != SeatActive {
		return nil, illegal("seat %d is %s", idx, s.Status)
	}
	return e.act(s, kind, amount, false)
}

// ApplyTimeout plays the default action for an expired turn: check when
// that is legal, otherwise fold. Offline seats always fold. The turn id
// must name the live activation, so a second expiry for the same deadline
// is rejected as stale.
func (e *Engine) ApplyTimeout(idx int, turnID string) (*Outcome, error) {
	t := e.State
	if !t.Phase.Betting() || idx != t.CurrentActor || turnID != e.TurnID() {
		return nil, fmt.Errorf("%w: timeout for seat %d turn %s", ErrStaleTurn, idx, turnID)
	}
	s := t.Seats[idx]
	kind := ActionFold
	if !s.Offline && t.ToCall(idx) == 0 {
		kind = ActionCheck
	}
	return e.act(s, kind, 0, true)
}

func (e *Engine) act(s *Seat, kind ActionKind, amount int64, auto bool) (*Outcome, error) {
	t := e.State
	m, err := e.resolve(s, kind, amount)
	if err != nil {
		return nil, err
	}
	if m.kind == ActionFold {
		s.Status = SeatFolded
	} else if m.pay > 0 {
		s.Stack -= m.pay
		s.StreetBet += m.pay
		s.HandContrib += m.pay
		if s.Stack == 0 {
			s.Status = SeatAllIn
		}
		if s.StreetBet > t.CurrentBet {
			if by := s.StreetBet - t.CurrentBet; by >= t.MinRaise {
				t.MinRaise = by
				t.FullBetLevel = s.StreetBet
			}
			t.CurrentBet = s.StreetBet
		}
	}
	s.Acted = true
	s.ActedAt = t.CurrentBet
	s.LastAction = m.label

	out := &Outcome{Seat: s.Index, Action: m.label, Amount: m.pay, Auto: auto}
	e.advance(out, s.Index, false)
	return out, nil
}

// advance ends the hand, closes streets or picks the next actor after a
// state change. With inclusive set the search for the next actor starts at
// from itself, which keeps the turn with a seat that was not the one acting.
func (e *Engine) advance(out *Outcome, from int, inclusive bool) {
	t := e.State
	out.NextActor = -1
	if t.count((*Seat).live) == 1 {
		e.foldOut(out)
		return
	}
	for t.Phase.Betting() && e.streetComplete() {
		if !e.closeStreet(out) {
			return
		}
		from, inclusive = t.Dealer, false
	}
	if !t.Phase.Betting() {
		return
	}
	start := from
	if inclusive {
		start = from - 1
	}
	prev := t.CurrentActor
	t.CurrentActor = t.next(start, e.needsAction)
	if t.CurrentActor != prev || !inclusive {
		e.turn++
	}
	out.Phase = t.Phase
	out.NextActor = t.CurrentActor
	out.TurnID = e.TurnID()
}

// closeStreet returns uncalled chips, resets street bets and deals the next
// street. It returns false once the hand is over.
func (e *Engine) closeStreet(out *Outcome) bool {
	t := e.State
	e.returnUncalled()
	for _, s := range t.Seats {
		if s != nil {
			s.StreetBet = 0
			s.Acted, s.ActedAt = false, 0
		}
	}
	t.CurrentBet, t.MinRaise, t.FullBetLevel = 0, t.Level.BigBlind, 0
	t.CurrentActor = -1

	var n int
	var next Phase
	switch t.Phase {
	case PhasePreflop:
		n, next = 3, PhaseFlop
	case PhaseFlop:
		n, next = 1, PhaseTurn
	case PhaseTurn:
		n, next = 1, PhaseRiver
	default:
		e.showdown(out)
		return false
	}
	cards, err := e.Deck.DealN(n)
	if err != nil {
		e.abort(out, err)
		return false
	}
	t.Community = append(t.Community, cards...)
	t.Phase = next
	out.Dealt = append(out.Dealt, cards...)
	out.Phase = next
	return true
}

// returnUncalled gives back the part of the highest street bet nobody
// matched. A folded top bettor forfeits it.
func (e *Engine) returnUncalled() {
	var top *Seat
	second := int64(0)
	for _, s := range e.State.Seats {
		if s == nil || !s.InHand {
			continue
		}
		switch {
		case top == nil || s.StreetBet > top.StreetBet:
			if top != nil && top.StreetBet > second {
				second = top.StreetBet
			}
			top = s
		case s.StreetBet > second:
			second = s.StreetBet
		}
	}
	if top == nil || top.Status == SeatFolded || top.StreetBet <= second {
		return
	}
	back := top.StreetBet - second
	top.StreetBet -= back
	top.HandContrib -= back
	top.Stack += back
	if top.Status == SeatAllIn && top.Stack > 0 {
		top.Status = SeatActive
		if top.Offline {
			top.Status = SeatDisconnected
		}
	}
}

// FinishHand returns the table to waiting after payout. Seats that asked to
// leave during the hand are removed and returned.
func (e *Engine) FinishHand() []Departure {
	t := e.State
	if t.Phase != PhaseShowdown {
		return nil
	}
	var gone []Departure
	for i, s := range t.Seats {
		if s == nil {
			continue
		}
		if s.Leaving {
			gone = append(gone, Departure{Seat: i, PlayerID: s.PlayerID, Stack: s.Stack})
			t.Seats[i] = nil
			continue
		}
		s.InHand = false
		s.StreetBet, s.HandContrib = 0, 0
		s.Hole = nil
		s.Acted, s.ActedAt = false, 0
		e.refreshStatus(s)
	}
	t.Phase = PhaseWaiting
	t.CurrentActor = -1
	t.CurrentBet = 0
	return gone
}
