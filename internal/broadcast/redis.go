package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect opens a Redis client and checks it answers.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisPublisher relays table events to other processes. Public events go
// to <prefix>:table:<id>:events and seat-scoped ones to
// <prefix>:table:<id>:seat:<n>. Snapshots are also kept in a capped list
// so late consumers can read recent table states.
type RedisPublisher struct {
	client     *redis.Client
	prefix     string
	historyLen int64
}

func NewRedisPublisher(client *redis.Client, prefix string, historyLen int64) *RedisPublisher {
	if historyLen <= 0 {
		historyLen = 200
	}
	return &RedisPublisher{client: client, prefix: prefix, historyLen: historyLen}
}

func (p *RedisPublisher) Channel(tableID string, seat int) string {
	if seat == Public {
		return fmt.Sprintf("%s:table:%s:events", p.prefix, tableID)
	}
	return fmt.Sprintf("%s:table:%s:seat:%d", p.prefix, tableID, seat)
}

func (p *RedisPublisher) HistoryKey(tableID string) string {
	return fmt.Sprintf("%s:table:%s:snapshots", p.prefix, tableID)
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.Event, err)
	}
	pipe := p.client.Pipeline()
	pipe.Publish(ctx, p.Channel(ev.TableID, ev.Seat), data)
	if ev.Event == "snapshot" && ev.Seat == Public {
		key := p.HistoryKey(ev.TableID)
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, p.historyLen-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %s to redis: %w", ev.Event, err)
	}
	return nil
}

// History returns up to n of the most recent snapshots, newest first.
func (p *RedisPublisher) History(ctx context.Context, tableID string, n int64) ([]Event, error) {
	raw, err := p.client.LRange(ctx, p.HistoryKey(tableID), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(raw))
	for _, r := range raw {
		var ev Event
		if err := json.Unmarshal([]byte(r), &ev); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}
