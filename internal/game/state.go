package game

import "fmt"

type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePreflop  Phase = "preflop"
	PhaseFlop     Phase = "flop"
	PhaseTurn     Phase = "turn"
	PhaseRiver    Phase = "river"
	PhaseShowdown Phase = "showdown"
)

// Betting reports whether the phase is one of the four streets.
func (p Phase) Betting() bool {
	switch p {
	case PhasePreflop, PhaseFlop, PhaseTurn, PhaseRiver:
		return true
	}
	return false
}

type SeatStatus string

const (
	SeatActive       SeatStatus = "active"
	SeatFolded       SeatStatus = "folded"
	SeatAllIn        SeatStatus = "all_in"
	SeatSittingOut   SeatStatus = "sitting_out"
	SeatDisconnected SeatStatus = "disconnected"
)

type ActionKind string

const (
	ActionFold  ActionKind = "fold"
	ActionCheck ActionKind = "check"
	ActionCall  ActionKind = "call"
	ActionRaise ActionKind = "raise"
	ActionAllIn ActionKind = "all_in"
)

func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(s); k {
	case ActionFold, ActionCheck, ActionCall, ActionRaise, ActionAllIn:
		return k, nil
	case "allin", "all-in":
		return ActionAllIn, nil
	case "bet":
		return ActionRaise, nil
	}
	return "", illegal("unknown action %q", s)
}

// Labels for forced bets shown as a seat's last action.
const (
	labelSmallBlind = "small_blind"
	labelBigBlind   = "big_blind"
	labelAnte       = "ante"
	labelStraddle   = "straddle"
	labelBombAnte   = "bomb_ante"
)

type BlindLevel struct {
	SmallBlind int64 `json:"small_blind"`
	BigBlind   int64 `json:"big_blind"`
	Ante       int64 `json:"ante"`
	// Hands the level lasts; zero means it never ends.
	Hands int `json:"hands"`
}

type Rules struct {
	Capacity        int
	Levels          []BlindLevel
	AllowStraddle   bool
	AllowBombPot    bool
	BombPotAnte     int64
	AllowRabbitHunt bool
	RabbitHuntCost  int64
}

func (r Rules) Validate() error {
	if r.Capacity < 2 || r.Capacity > 9 {
		return fmt.Errorf("capacity %d outside 2-9", r.Capacity)
	}
	if len(r.Levels) == 0 {
		return fmt.Errorf("blind schedule is empty")
	}
	for i, l := range r.Levels {
		if l.BigBlind <= 0 || l.SmallBlind < 0 || l.SmallBlind > l.BigBlind || l.Ante < 0 {
			return fmt.Errorf("blind level %d invalid: %+v", i, l)
		}
	}
	if r.AllowBombPot && r.BombPotAnte <= 0 {
		return fmt.Errorf("bomb pot ante must be positive")
	}
	if r.RabbitHuntCost < 0 {
		return fmt.Errorf("rabbit hunt cost must not be negative")
	}
	return nil
}

// LevelFor returns the blind level in force for the given 1-based hand number.
func (r Rules) LevelFor(hand int64) BlindLevel {
	played := hand - 1
	for _, l := range r.Levels {
		if l.Hands <= 0 || played < int64(l.Hands) {
			return l
		}
		played -= int64(l.Hands)
	}
	return r.Levels[len(r.Levels)-1]
}

type Seat struct {
	Index       int
	PlayerID    string
	Stack       int64
	StreetBet   int64
	HandContrib int64
	Status      SeatStatus
	Hole        []Card
	LastAction  string

	InHand  bool
	Acted   bool
	ActedAt int64
	Offline bool

	// SittingOut keeps a funded seat out of new hands until it rejoins.
	SittingOut   bool
	Leaving      bool
	RabbitHunted bool
}

// canAct is true for dealt-in seats that still owe decisions this hand.
// Offline seats keep their turn so the timer can fold them.
func (s *Seat) canAct() bool {
	return s != nil && s.InHand && (s.Status == SeatActive || s.Status == SeatDisconnected)
}

func (s *Seat) live() bool {
	return s != nil && s.InHand && s.Status != SeatFolded
}

type Table struct {
	ID        string
	Rules     Rules
	Phase     Phase
	Community []Card
	Seats     []*Seat

	Dealer         int
	SmallBlindSeat int
	BigBlindSeat   int
	StraddleSeat   int
	CurrentActor   int

	CurrentBet int64
	MinRaise   int64
	// FullBetLevel is the bet level set by the last full raise (or the big
	// blind). A seat that acted at or above it is not reopened by a short
	// all-in.
	FullBetLevel int64

	HandNumber int64
	HandID     string
	Level      BlindLevel
	BombPot    bool

	LastResult *HandResult
}

func NewTable(id string, rules Rules) *Table {
	return &Table{
		ID:             id,
		Rules:          rules,
		Phase:          PhaseWaiting,
		Seats:          make([]*Seat, rules.Capacity),
		Dealer:         -1,
		SmallBlindSeat: -1,
		BigBlindSeat:   -1,
		StraddleSeat:   -1,
		CurrentActor:   -1,
	}
}

func (t *Table) Seat(idx int) (*Seat, error) {
	if idx < 0 || idx >= len(t.Seats) {
		return nil, fmt.Errorf("%w: seat %d out of range", ErrSeatUnavailable, idx)
	}
	s := t.Seats[idx]
	if s == nil {
		return nil, fmt.Errorf("%w: seat %d is empty", ErrSeatUnavailable, idx)
	}
	return s, nil
}

// Pot is every chip moved from stacks this hand.
func (t *Table) Pot() int64 {
	total := int64(0)
	for _, s := range t.Seats {
		if s != nil {
			total += s.HandContrib
		}
	}
	return total
}

func (t *Table) Contributions() []Contribution {
	out := make([]Contribution, 0, len(t.Seats))
	for _, s := range t.Seats {
		if s == nil || !s.InHand {
			continue
		}
		out = append(out, Contribution{Seat: s.Index, Amount: s.HandContrib, Folded: s.Status == SeatFolded})
	}
	return out
}

func (t *Table) Pots() []Pot {
	return ComputePots(t.Contributions())
}

// ToCall is what the seat owes to stay in. When no other seat can still
// act, a blind posted short of the bet level caps it at the highest bet
// actually made against the seat.
func (t *Table) ToCall(idx int) int64 {
	s := t.Seats[idx]
	if s == nil {
		return 0
	}
	bet := t.CurrentBet
	others, high := false, int64(0)
	for _, o := range t.Seats {
		if o == nil || o.Index == idx || !o.live() {
			continue
		}
		if o.canAct() {
			others = true
			break
		}
		high = max(high, o.StreetBet)
	}
	if !others {
		bet = min(bet, high)
	}
	if bet <= s.StreetBet {
		return 0
	}
	return bet - s.StreetBet
}

// next walks clockwise from idx (exclusive) and returns the first seat
// accepted by ok, or -1.
func (t *Table) next(idx int, ok func(*Seat) bool) int {
	n := len(t.Seats)
	for step := 1; step <= n; step++ {
		i := ((idx+step)%n + n) % n
		if s := t.Seats[i]; s != nil && ok(s) {
			return i
		}
	}
	return -1
}

func (t *Table) count(ok func(*Seat) bool) int {
	c := 0
	for _, s := range t.Seats {
		if s != nil && ok(s) {
			c++
		}
	}
	return c
}

// clockwiseFromDealer orders seats by their distance after the button.
func (t *Table) clockwiseFromDealer(seats []int) []int {
	n := len(t.Seats)
	out := append([]int(nil), seats...)
	dist := func(i int) int { return ((i-t.Dealer-1)%n + n) % n }
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && dist(out[j]) < dist(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

type PotAward struct {
	Pot     Pot           `json:"pot"`
	Winners []int         `json:"winners"`
	Shares  map[int]int64 `json:"shares"`
	Hand    string        `json:"hand,omitempty"`
}

type Reveal struct {
	Seat     int      `json:"seat"`
	PlayerID string   `json:"player_id"`
	Hole     []string `json:"hole"`
	Best     []string `json:"best"`
	Category string   `json:"category"`
	Hand     string   `json:"hand"`
}

type HandResult struct {
	HandID      string         `json:"hand_id"`
	HandNumber  int64          `json:"hand_number"`
	FoldOut     bool           `json:"fold_out"`
	Aborted     bool           `json:"aborted"`
	AbortReason string         `json:"abort_reason,omitempty"`
	Board       []string       `json:"board"`
	Pots        []Pot          `json:"pots"`
	Awards      []PotAward     `json:"awards"`
	Reveals     []Reveal       `json:"reveals,omitempty"`
	Players     map[int]string `json:"players"`
	Contributed map[int]int64  `json:"contributed"`
	Payouts     map[int]int64  `json:"payouts"`
	Deltas      map[int]int64  `json:"deltas"`
	Refunds     map[int]int64  `json:"refunds,omitempty"`
}

// PaidOut is the sum of all payouts; equal to the pot for settled hands.
func (r *HandResult) PaidOut() int64 {
	total := int64(0)
	for _, v := range r.Payouts {
		total += v
	}
	return total
}
