package reconnect

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/coder/quartz"

	"poker-club/internal/game"
)

type State string

const (
	Connected    State = "connected"
	Disconnected State = "disconnected"
	Reconnecting State = "reconnecting"
)

// Policy is the exponential backoff schedule between retry attempts.
type Policy struct {
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	MaxAttempts int
}

func DefaultPolicy() Policy {
	return Policy{BaseDelay: time.Second, Multiplier: 2, MaxDelay: 30 * time.Second, MaxAttempts: 5}
}

// Delay is the wait before the given 1-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Attempt is one scheduled retry. Gen ties it to the retry loop that
// scheduled it; attempts from an earlier loop are stale.
type Attempt struct {
	Seat int
	N    int
	Gen  uint64
}

type Result int

const (
	Stale Result = iota
	Reconnected
	Retrying
	Exhausted
)

type Status struct {
	State     State     `json:"state"`
	Attempts  int       `json:"attempts"`
	NextRetry time.Time `json:"next_retry,omitempty"`
	// Permanent is set after a cancel or once attempts run out. Only an
	// explicit rejoin clears it.
	Permanent bool `json:"permanent"`
	Exhausted bool `json:"exhausted"`
}

type conn struct {
	Status
	gen   uint64
	timer *quartz.Timer
}

// Manager tracks connectivity per seat and drives the retry schedule.
type Manager struct {
	clock   quartz.Clock
	policy  Policy
	onRetry func(Attempt)

	mu    sync.Mutex
	seats map[int]*conn
}

// NewManager builds a manager. onRetry runs on the clock's goroutine and
// must hand the attempt to the table's single writer.
func NewManager(clock quartz.Clock, policy Policy, onRetry func(Attempt)) *Manager {
	return &Manager{clock: clock, policy: policy, onRetry: onRetry, seats: map[int]*conn{}}
}

func (m *Manager) Policy() Policy {
	return m.policy
}

func (m *Manager) Track(seat int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.seats[seat]; ok {
		m.stopLocked(c)
	}
	m.seats[seat] = &conn{Status: Status{State: Connected}}
}

// Forget releases the seat, cancelling any pending retry.
func (m *Manager) Forget(seat int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.seats[seat]; ok {
		m.stopLocked(c)
		delete(m.seats, seat)
	}
}

func (m *Manager) Status(seat int) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.seats[seat]
	if !ok {
		return Status{State: Disconnected}
	}
	return c.Status
}

// Lost starts the retry loop for a seat whose connection dropped. The seat
// reports Reconnecting until an attempt finds it, and Disconnected once the
// loop is cancelled or runs out. A seat already retrying or permanently
// disconnected is left alone.
func (m *Manager) Lost(seat int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.seats[seat]
	if !ok {
		return fmt.Errorf("%w: seat %d not tracked", game.ErrSeatUnavailable, seat)
	}
	if c.State != Connected {
		return nil
	}
	c.State = Reconnecting
	c.Attempts = 0
	c.gen++
	m.scheduleLocked(seat, c, 1)
	return nil
}

func (m *Manager) scheduleLocked(seat int, c *conn, n int) {
	d := m.policy.Delay(n)
	c.NextRetry = m.clock.Now().Add(d)
	a := Attempt{Seat: seat, N: n, Gen: c.gen}
	c.timer = m.clock.AfterFunc(d, func() { m.onRetry(a) }, "reconnect", "retry")
}

func (m *Manager) stopLocked(c *conn) {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.NextRetry = time.Time{}
}

// Resolve records the outcome of a fired attempt. present is whether the
// player's connection was found again.
func (m *Manager) Resolve(a Attempt, present bool) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.seats[a.Seat]
	if !ok || c.gen != a.Gen || c.Permanent || c.State == Connected || a.N != c.Attempts+1 {
		return Stale
	}
	c.Attempts = a.N
	c.timer = nil
	if present {
		c.State = Connected
		c.NextRetry = time.Time{}
		return Reconnected
	}
	if a.N >= m.policy.MaxAttempts {
		c.State = Disconnected
		c.Permanent = true
		c.Exhausted = true
		c.NextRetry = time.Time{}
		return Exhausted
	}
	m.scheduleLocked(a.Seat, c, a.N+1)
	return Retrying
}

// Reconnect is a manual "reconnect now": it skips the remaining backoff
// and restores the seat at once.
func (m *Manager) Reconnect(seat int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.seats[seat]
	if !ok {
		return fmt.Errorf("%w: seat %d not tracked", game.ErrSeatUnavailable, seat)
	}
	switch {
	case c.Exhausted:
		return fmt.Errorf("%w: seat %d gave up after %d attempts", game.ErrConnectionExhausted, seat, c.Attempts)
	case c.Permanent:
		return fmt.Errorf("%w: seat %d cancelled reconnection; rejoin to continue", game.ErrSeatUnavailable, seat)
	case c.State == Connected:
		return nil
	}
	m.stopLocked(c)
	c.gen++
	c.State = Connected
	return nil
}

// Cancel aborts the retry loop and leaves the seat permanently
// disconnected until the player rejoins.
func (m *Manager) Cancel(seat int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.seats[seat]
	if !ok {
		return fmt.Errorf("%w: seat %d not tracked", game.ErrSeatUnavailable, seat)
	}
	if c.State == Connected || c.Permanent {
		return fmt.Errorf("%w: seat %d has no reconnection in progress", game.ErrIllegalAction, seat)
	}
	m.stopLocked(c)
	c.gen++
	c.State = Disconnected
	c.Permanent = true
	return nil
}

// Rejoin clears a permanent disconnect when the player takes the seat back.
func (m *Manager) Rejoin(seat int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.seats[seat]
	if !ok {
		m.seats[seat] = &conn{Status: Status{State: Connected}}
		return
	}
	m.stopLocked(c)
	c.gen++
	c.Status = Status{State: Connected}
}
