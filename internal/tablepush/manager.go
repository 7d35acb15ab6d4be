package tablepush

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog/log"

	"poker-club/internal/broadcast"
	"poker-club/internal/tablepush/platforms"
)

// Manager is a broadcast.Publisher that turns public table events into
// webhook messages. Publish never blocks the table; a full queue drops.
type Manager struct {
	cfg      Config
	router   Router
	adapters map[string]platforms.Adapter
	clock    quartz.Clock

	dispatchCh chan pushJob
	retryQ     *retryQueue
	breaker    *breaker
	done       chan struct{}

	mu      sync.Mutex
	started bool
}

func NewManager(cfg Config) *Manager {
	return newManager(cfg, quartz.NewReal(), nil)
}

func newManager(cfg Config, clock quartz.Clock, adapters map[string]platforms.Adapter) *Manager {
	if adapters == nil {
		client := platforms.NewHTTPClient(cfg.RequestTimeout)
		adapters = map[string]platforms.Adapter{
			"discord": platforms.NewDiscordAdapter(client),
			"feishu":  platforms.NewFeishuAdapter(client),
		}
	}
	if cfg.DispatchBuffer <= 0 {
		cfg.DispatchBuffer = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.CircuitOpenDuration <= 0 {
		cfg.CircuitOpenDuration = 30 * time.Second
	}
	m := &Manager{
		cfg:        cfg,
		router:     Router{},
		adapters:   adapters,
		clock:      clock,
		dispatchCh: make(chan pushJob, cfg.DispatchBuffer),
		breaker:    newBreaker(cfg.FailureThreshold, cfg.CircuitOpenDuration),
		done:       make(chan struct{}),
	}
	m.retryQ = newRetryQueue(clock, m.dispatchCh, m.done)
	return m
}

func (m *Manager) Start(ctx context.Context) error {
	if !m.cfg.Enabled {
		return nil
	}
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	for i := 0; i < m.cfg.Workers; i++ {
		go m.worker(ctx)
	}
	go func() {
		<-ctx.Done()
		close(m.done)
	}()
	log.Info().Int("targets", len(m.cfg.Targets)).Int("workers", m.cfg.Workers).Msg("table push started")
	return nil
}

func (m *Manager) Publish(_ context.Context, ev broadcast.Event) error {
	if !m.cfg.Enabled || ev.Seat != broadcast.Public {
		return nil
	}
	m.handleEvent(ev)
	return nil
}

func (m *Manager) handleEvent(ev broadcast.Event) {
	norm := normalizeEvent(ev)
	if norm.EventType == "" {
		return
	}
	targets := m.router.MatchTargets(m.cfg.Targets, norm)
	if len(targets) == 0 {
		return
	}
	formatted, ok := FormatMessage(norm)
	if !ok {
		return
	}
	for _, target := range targets {
		if !m.enqueue(pushJob{Target: target, Event: norm, Formatted: formatted}) {
			metricPushDroppedTotal.Add(1)
		}
	}
}

func (m *Manager) enqueue(job pushJob) bool {
	select {
	case <-m.done:
		return false
	case m.dispatchCh <- job:
		metricPushQueuedTotal.Add(1)
		metricPushQueueLen.Set(int64(len(m.dispatchCh)))
		return true
	default:
		return false
	}
}

func normalizeEvent(ev broadcast.Event) NormalizedEvent {
	raw := asMap(ev.Data)
	tableID := ev.TableID
	if tableID == "" {
		tableID = stringField(raw, "table_id")
	}
	amount := int64Ptr(raw, "amount")
	if amount == nil {
		amount = int64Ptr(raw, "fee")
	}
	if amount == nil {
		amount = int64Ptr(raw, "stack")
	}
	var handNumber int64
	if n := int64Ptr(raw, "hand_number"); n != nil {
		handNumber = *n
	}
	return NormalizedEvent{
		EventID:    ev.EventID,
		EventType:  ev.Event,
		ServerTS:   ev.ServerTS,
		TableID:    tableID,
		HandID:     stringField(raw, "hand_id"),
		HandNumber: handNumber,
		Seat:       intPtr(raw, "seat"),
		PlayerID:   stringField(raw, "player_id"),
		Amount:     amount,
		BombPot:    boolField(raw, "bomb_pot"),
		Raw:        raw,
	}
}

func asMap(v any) map[string]any {
	if v == nil {
		return map[string]any{}
	}
	if m, ok := v.(map[string]any); ok {
		raw, err := json.Marshal(m)
		if err != nil {
			return m
		}
		out := map[string]any{}
		if err := json.Unmarshal(raw, &out); err != nil {
			return m
		}
		return out
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func intPtr(m map[string]any, key string) *int {
	f, ok := m[key].(float64)
	if !ok {
		return nil
	}
	x := int(f)
	return &x
}

func int64Ptr(m map[string]any, key string) *int64 {
	f, ok := m[key].(float64)
	if !ok {
		return nil
	}
	x := int64(f)
	return &x
}
