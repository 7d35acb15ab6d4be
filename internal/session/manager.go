package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"poker-club/internal/ids"
)

// Manager is the registry of open tables. Each table runs its own
// coordinator; the manager only guards the map.
type Manager struct {
	defaults Options

	mu     sync.Mutex
	tables map[string]*Coordinator
}

// NewManager builds a registry whose tables start from defaults.
func NewManager(defaults Options) *Manager {
	return &Manager{defaults: defaults, tables: map[string]*Coordinator{}}
}

func (m *Manager) Defaults() Options {
	return m.defaults
}

// Create opens a table. An empty id gets a generated one; configure may
// adjust the defaults for this table.
func (m *Manager) Create(id string, configure func(*Options)) (*Coordinator, error) {
	if id == "" {
		id = ids.Table()
	}
	opts := m.defaults
	if configure != nil {
		configure(&opts)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTableExists, id)
	}
	c, err := NewCoordinator(id, opts)
	if err != nil {
		return nil, err
	}
	m.tables[id] = c
	return c, nil
}

func (m *Manager) Get(id string) (*Coordinator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.tables[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTable, id)
	}
	return c, nil
}

// List returns the open table ids in order.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.tables))
	for id := range m.tables {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	c, ok := m.tables[id]
	delete(m.tables, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoTable, id)
	}
	return c.Close(ctx)
}

// CloseAll shuts every table down, collecting their errors.
func (m *Manager) CloseAll(ctx context.Context) error {
	var errs []error
	for _, id := range m.List() {
		if err := m.Close(ctx, id); err != nil && !errors.Is(err, ErrNoTable) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
