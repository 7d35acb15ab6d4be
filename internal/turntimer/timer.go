package turntimer

import (
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"

	"poker-club/internal/game"
)

// Expiry identifies the activation whose deadline passed.
type Expiry struct {
	Seat int
	Turn string
}

// Timer runs the countdown of the seat whose turn it is and keeps every
// seat's time bank. Only one activation is live at a time; starting a new
// one cancels the previous countdown.
type Timer struct {
	clock      quartz.Clock
	actionTime time.Duration
	allowance  time.Duration
	onExpire   func(Expiry)

	mu     sync.Mutex
	banks  map[int]time.Duration
	active *activation
}

type activation struct {
	seat     int
	turn     string
	deadline time.Time
	timer    *quartz.Timer
	banked   bool
	fired    bool
}

// New builds a timer. onExpire runs on the clock's goroutine and must hand
// the expiry to the table's single writer, which then calls Claim.
func New(clock quartz.Clock, actionTime, allowance time.Duration, onExpire func(Expiry)) *Timer {
	return &Timer{
		clock:      clock,
		actionTime: actionTime,
		allowance:  allowance,
		onExpire:   onExpire,
		banks:      map[int]time.Duration{},
	}
}

func (t *Timer) ActionTime() time.Duration {
	return t.actionTime
}

// Track gives a newly seated player the full time bank. The bank is never
// refilled while the seat stays.
func (t *Timer) Track(seat int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.banks[seat] = t.allowance
}

// Forget drops the seat's bank and cancels its countdown if it is running.
func (t *Timer) Forget(seat int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.banks, seat)
	if t.active != nil && t.active.seat == seat {
		t.stopLocked()
	}
}

// Start begins the countdown for a new activation. Restarting the live
// activation is a no-op, so a state change that keeps the same turn does
// not give the seat fresh time.
func (t *Timer) Start(seat int, turn string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a := t.active; a != nil && a.seat == seat && a.turn == turn && !a.fired {
		return
	}
	t.stopLocked()
	a := &activation{
		seat:     seat,
		turn:     turn,
		deadline: t.clock.Now().Add(t.actionTime),
	}
	exp := Expiry{Seat: seat, Turn: turn}
	a.timer = t.clock.AfterFunc(t.actionTime, func() { t.onExpire(exp) }, "turntimer", "expire")
	t.active = a
}

// Stop cancels the live countdown, if any.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Timer) stopLocked() {
	if t.active == nil {
		return
	}
	t.active.timer.Stop()
	t.active = nil
}

// Turn returns the live activation's turn id, or "".
func (t *Timer) Turn() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return ""
	}
	return t.active.turn
}

// Remaining is the time left on the seat's live countdown; zero for any
// other seat.
func (t *Timer) Remaining(seat int) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	a := t.active
	if a == nil || a.seat != seat || a.fired {
		return 0
	}
	left := a.deadline.Sub(t.clock.Now())
	if left < 0 {
		return 0
	}
	return left
}

func (t *Timer) Bank(seat int) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.banks[seat]
}

// UseBank moves up to d from the seat's bank onto its live deadline. It is
// allowed once per activation and returns the time actually added.
func (t *Timer) UseBank(seat int, d time.Duration) (time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a := t.active
	if a == nil || a.seat != seat || a.fired {
		return 0, fmt.Errorf("%w: seat %d has no running turn", game.ErrInvalidTurn, seat)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: time bank request must be positive", game.ErrIllegalAction)
	}
	if a.banked {
		return 0, fmt.Errorf("%w: time bank already used this turn", game.ErrIllegalAction)
	}
	bank := t.banks[seat]
	if bank <= 0 {
		return 0, fmt.Errorf("%w: time bank is empty", game.ErrIllegalAction)
	}
	if d > bank {
		d = bank
	}
	t.banks[seat] = bank - d
	a.banked = true
	a.deadline = a.deadline.Add(d)
	a.timer.Reset(a.deadline.Sub(t.clock.Now()), "turntimer", "bank")
	return d, nil
}

// Claim decides whether an expiry may still act. It succeeds once per
// activation and only after the deadline, so a duplicate firing or one
// overtaken by a time bank extension is ignored.
func (t *Timer) Claim(exp Expiry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	a := t.active
	if a == nil || a.seat != exp.Seat || a.turn != exp.Turn || a.fired {
		return false
	}
	if t.clock.Now().Before(a.deadline) {
		return false
	}
	a.fired = true
	return true
}
