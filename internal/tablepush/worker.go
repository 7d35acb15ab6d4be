package tablepush

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"poker-club/internal/tablepush/platforms"
)

// breaker trips a webhook target after threshold consecutive failures and
// keeps it closed for cooldown.
type breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	targets   map[string]*targetHealth
}

type targetHealth struct {
	failures  int
	openUntil time.Time
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	return &breaker{threshold: threshold, cooldown: cooldown, targets: map[string]*targetHealth{}}
}

// blockedUntil is when a tripped target may be tried again, zero if it can
// be tried now.
func (b *breaker) blockedUntil(key string, now time.Time) time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.targets[key]
	if h == nil || !now.Before(h.openUntil) {
		return time.Time{}
	}
	return h.openUntil
}

// record notes a send result and reports whether it tripped the target.
func (b *breaker) record(key string, now time.Time, err error) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.targets, key)
		return false
	}
	h := b.targets[key]
	if h == nil {
		h = &targetHealth{}
		b.targets[key] = h
	}
	h.failures++
	if h.failures < b.threshold {
		return false
	}
	h.failures = 0
	h.openUntil = now.Add(b.cooldown)
	return true
}

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case job := <-m.dispatchCh:
			metricPushQueueLen.Set(int64(len(m.dispatchCh)))
			m.deliver(ctx, job)
		}
	}
}

// deliver sends one table message. A message for a tripped target waits
// out the cooldown without spending an attempt.
func (m *Manager) deliver(ctx context.Context, job pushJob) {
	adapter, ok := m.adapters[job.Target.Platform]
	if !ok {
		metricPushDroppedTotal.Add(1)
		log.Warn().Str("platform", job.Target.Platform).Str("table_id", job.Event.TableID).Msg("table push: no adapter for platform")
		return
	}
	key := job.key()
	now := m.clock.Now()
	if until := m.breaker.blockedUntil(key, now); !until.IsZero() {
		metricPushCircuitOpenTotal.Add(1)
		m.retryQ.Enqueue(job, until.Sub(now))
		return
	}
	err := adapter.Send(ctx, job.Target.Endpoint, job.Target.Secret, job.Formatted.platformMessage())
	if m.breaker.record(key, m.clock.Now(), err) {
		log.Warn().Err(err).Str("platform", job.Target.Platform).Str("table_id", job.Target.TableID).
			Dur("cooldown", m.cfg.CircuitOpenDuration).Msg("table push target paused")
	}
	if err != nil {
		metricPushFailedTotal.Add(1)
		m.retryOrDrop(job, err)
		return
	}
	metricPushSentTotal.Add(1)
}

// retryOrDrop requeues a failed message with doubling delay, capped at the
// breaker cooldown, until RetryMax retries are spent.
func (m *Manager) retryOrDrop(job pushJob, err error) bool {
	if job.Attempt >= m.cfg.RetryMax {
		metricPushRetryDroppedTotal.Add(1)
		log.Warn().Err(err).
			Str("platform", job.Target.Platform).
			Str("event", job.Event.EventType).
			Str("table_id", job.Event.TableID).
			Str("hand_id", job.Event.HandID).
			Int("attempts", job.Attempt+1).
			Msg("table push dropped")
		return false
	}
	job.Attempt++
	metricPushRetryTotal.Add(1)
	delay := min(m.cfg.RetryBase<<(job.Attempt-1), m.cfg.CircuitOpenDuration)
	m.retryQ.Enqueue(job, delay)
	return true
}

func (msg FormattedMessage) platformMessage() platforms.Message {
	out := platforms.Message{
		Title:       msg.Title,
		Content:     msg.Content,
		Description: msg.Description,
		Color:       msg.Color,
		Timestamp:   msg.Timestamp,
		Footer:      msg.Footer,
		Fields:      make([]platforms.Field, len(msg.Fields)),
	}
	for i, f := range msg.Fields {
		out.Fields[i] = platforms.Field{Name: f.Name, Value: f.Value, Inline: f.Inline}
	}
	return out
}
