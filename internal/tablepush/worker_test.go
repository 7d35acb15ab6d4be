package tablepush

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"

	"poker-club/internal/broadcast"
	"poker-club/internal/tablepush/platforms"
)

type failAdapter struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (a *failAdapter) Name() string { return "fail" }

func (a *failAdapter) Send(_ context.Context, _ string, _ string, _ platforms.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.fail {
		return errors.New("failed")
	}
	return nil
}

func (a *failAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func testManager(t *testing.T, cfg Config, adapter platforms.Adapter) (*Manager, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	cfg.Enabled = true
	if len(cfg.Targets) == 0 {
		cfg.Targets = []Target{{Platform: "fail", Endpoint: "https://example.com", Enabled: true}}
	}
	m := newManager(cfg, clock, map[string]platforms.Adapter{"fail": adapter})
	t.Cleanup(func() { close(m.done) })
	return m, clock
}

func TestRetryStopsAtMaxAttempts(t *testing.T) {
	ctx := context.Background()
	adapter := &failAdapter{fail: true}
	m, clock := testManager(t, Config{RetryMax: 1, RetryBase: 10 * time.Millisecond}, adapter)

	m.deliver(ctx, pushJob{Target: m.cfg.Targets[0], Formatted: FormattedMessage{Title: "x"}})
	clock.Advance(10 * time.Millisecond).MustWait(ctx)
	var retried pushJob
	select {
	case retried = <-m.dispatchCh:
	default:
		t.Fatal("expected the job back on the queue after backoff")
	}
	if retried.Attempt != 1 {
		t.Fatalf("expected attempt 1, got %d", retried.Attempt)
	}
	m.deliver(ctx, retried)
	if got := adapter.Calls(); got != 2 {
		t.Fatalf("expected 2 calls (initial + 1 retry), got %d", got)
	}
	if len(m.dispatchCh) != 0 {
		t.Fatal("job should be dropped after the last retry")
	}
}

func TestCircuitOpenSkipsSubsequentSends(t *testing.T) {
	ctx := context.Background()
	adapter := &failAdapter{fail: true}
	m, clock := testManager(t, Config{FailureThreshold: 1, CircuitOpenDuration: time.Second}, adapter)
	job := pushJob{Target: m.cfg.Targets[0], Formatted: FormattedMessage{Title: "x"}}

	m.deliver(ctx, job)
	m.deliver(ctx, job)
	if got := adapter.Calls(); got != 1 {
		t.Fatalf("expected 1 call due to circuit open, got %d", got)
	}
	clock.Advance(time.Second).MustWait(ctx)
	adapter.mu.Lock()
	adapter.fail = false
	adapter.mu.Unlock()
	m.deliver(ctx, job)
	if got := adapter.Calls(); got != 2 {
		t.Fatalf("expected the circuit to close after the open window, got %d calls", got)
	}
}

func TestOpenCircuitDefersWithoutSpendingAttempts(t *testing.T) {
	ctx := context.Background()
	adapter := &failAdapter{fail: true}
	m, clock := testManager(t, Config{RetryMax: 1, RetryBase: 5 * time.Second, FailureThreshold: 1, CircuitOpenDuration: 2 * time.Second}, adapter)
	job := pushJob{Target: m.cfg.Targets[0], Event: NormalizedEvent{EventType: "hand_result", TableID: "main"}}

	// The first failure trips the target; its retry is capped at the cooldown.
	m.deliver(ctx, job)
	m.deliver(ctx, job)
	if got := adapter.Calls(); got != 1 {
		t.Fatalf("expected 1 call while paused, got %d", got)
	}
	clock.Advance(2 * time.Second).MustWait(ctx)
	if len(m.dispatchCh) != 2 {
		t.Fatalf("expected the retry and the deferred message back on the queue, got %d", len(m.dispatchCh))
	}
	attempts := map[int]int{}
	for range 2 {
		attempts[(<-m.dispatchCh).Attempt]++
	}
	if attempts[0] != 1 || attempts[1] != 1 {
		t.Fatalf("a deferred message keeps its attempt count, got %v", attempts)
	}
}

func TestPublishQueuesPublicHighlights(t *testing.T) {
	ctx := context.Background()
	m, _ := testManager(t, Config{Targets: []Target{{Platform: "fail", Endpoint: "https://example.com", TableID: "main", Enabled: true}}}, &failAdapter{})

	_ = m.Publish(ctx, broadcast.Event{Event: "hole_cards", TableID: "main", Seat: 2, Data: map[string]any{"cards": []string{"Ah", "Kh"}}})
	_ = m.Publish(ctx, broadcast.Event{Event: "snapshot", TableID: "main", Seat: broadcast.Public})
	_ = m.Publish(ctx, broadcast.Event{Event: "table_closed", TableID: "side", Seat: broadcast.Public, Data: map[string]any{"table_id": "side"}})
	if len(m.dispatchCh) != 0 {
		t.Fatalf("nothing should be queued yet, got %d", len(m.dispatchCh))
	}
	_ = m.Publish(ctx, broadcast.Event{Event: "table_closed", TableID: "main", Seat: broadcast.Public, Data: map[string]any{"table_id": "main"}})
	if len(m.dispatchCh) != 1 {
		t.Fatalf("expected one queued message, got %d", len(m.dispatchCh))
	}
	job := <-m.dispatchCh
	if job.Formatted.Title != "Table closed · T:main" {
		t.Fatalf("unexpected message %+v", job.Formatted)
	}
}

func TestPublishDisabledIsNoop(t *testing.T) {
	m := newManager(Config{Targets: []Target{{Platform: "fail", Endpoint: "https://example.com", Enabled: true}}}, quartz.NewMock(t), map[string]platforms.Adapter{"fail": &failAdapter{}})
	if err := m.Publish(context.Background(), broadcast.Event{Event: "table_closed", TableID: "main", Seat: broadcast.Public}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(m.dispatchCh) != 0 {
		t.Fatal("disabled manager should not queue")
	}
}
