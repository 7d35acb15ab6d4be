package ledger

import (
	"context"
	"fmt"
	"sync"

	"poker-club/internal/game"
	"poker-club/internal/session"
	"poker-club/internal/store"
)

var _ session.Roster = (*Memory)(nil)

// Memory is the in-process roster used when no database is configured.
type Memory struct {
	Starting int64

	mu       sync.Mutex
	balances map[string]int64
	entries  []store.LedgerEntry
	hands    []store.Hand
	fees     []store.Fee
	tables   map[string]store.Table
}

func NewMemory(starting int64) *Memory {
	return &Memory{Starting: starting, balances: map[string]int64{}}
}

func (m *Memory) BuyIn(_ context.Context, tableID, playerID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[playerID]
	if !ok {
		bal = m.Starting
	}
	if bal < amount {
		return fmt.Errorf("%w: balance %d below buy-in %d", game.ErrInsufficientStack, bal, amount)
	}
	m.balances[playerID] = bal - amount
	m.record(playerID, "buy_in", -amount, tableID)
	return nil
}

func (m *Memory) CashOut(_ context.Context, tableID, playerID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[playerID]
	if !ok {
		bal = m.Starting
	}
	m.balances[playerID] = bal + amount
	m.record(playerID, "cash_out", amount, tableID)
	return nil
}

func (m *Memory) record(playerID, kind string, amount int64, tableID string) {
	m.entries = append(m.entries, store.LedgerEntry{
		ID:       store.NewID(),
		PlayerID: playerID,
		Type:     kind,
		Amount:   amount,
		RefType:  "table",
		RefID:    tableID,
	})
}

func (m *Memory) SettleHand(_ context.Context, tableID string, r *game.HandResult) error {
	h, err := handRecord(tableID, r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, prev := range m.hands {
		if prev.ID == h.ID {
			return fmt.Errorf("hand %s already recorded", h.ID)
		}
	}
	m.hands = append(m.hands, h)
	return nil
}

func (m *Memory) RecordAbort(ctx context.Context, tableID string, r *game.HandResult) error {
	return m.SettleHand(ctx, tableID, r)
}

func (m *Memory) ChargeFee(_ context.Context, tableID, handID, playerID, reason string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fees = append(m.fees, store.Fee{ID: store.NewID(), TableID: tableID, HandID: handID, PlayerID: playerID, Reason: reason, Amount: amount})
	return nil
}

func (m *Memory) Balance(_ context.Context, playerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[playerID]
	if !ok {
		return 0, store.ErrNotFound
	}
	return bal, nil
}

// Hands returns the recorded hands of a table, oldest first.
func (m *Memory) Hands(tableID string) []store.Hand {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Hand
	for _, h := range m.hands {
		if h.TableID == tableID {
			out = append(out, h)
		}
	}
	return out
}

func (m *Memory) Fees(playerID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := int64(0)
	for _, f := range m.fees {
		if f.PlayerID == playerID {
			total += f.Amount
		}
	}
	return total
}

func (m *Memory) Topup(_ context.Context, playerID string, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[playerID]
	if !ok {
		bal = m.Starting
	}
	m.balances[playerID] = bal + amount
	m.record(playerID, "topup", amount, "")
	return m.balances[playerID], nil
}

func (m *Memory) OpenTable(_ context.Context, t store.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tables == nil {
		m.tables = map[string]store.Table{}
	}
	t.Status = "open"
	m.tables[t.ID] = t
	return nil
}

func (m *Memory) CloseTable(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok {
		return store.ErrNotFound
	}
	t.Status = "closed"
	m.tables[id] = t
	return nil
}

// History returns a table's most recent hands, newest first.
func (m *Memory) History(_ context.Context, tableID string, limit int) ([]store.Hand, error) {
	hands := m.Hands(tableID)
	out := make([]store.Hand, 0, len(hands))
	for i := len(hands) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, hands[i])
	}
	return out, nil
}

// Entries lists ledger entries newest first.
func (m *Memory) Entries(_ context.Context, playerID string, limit, offset int) ([]store.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.LedgerEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if playerID != "" && e.PlayerID != playerID {
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, e)
	}
	return out, nil
}
