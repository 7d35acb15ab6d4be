package tablepush

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"poker-club/internal/config"
)

func ConfigFromServer(cfg config.ServerConfig) (Config, error) {
	out := Config{
		Enabled:             cfg.PushEnabled,
		Workers:             cfg.PushWorkers,
		RetryMax:            cfg.PushRetryMax,
		RetryBase:           cfg.PushRetryBase,
		FailureThreshold:    3,
		CircuitOpenDuration: 30 * time.Second,
		RequestTimeout:      5 * time.Second,
		DispatchBuffer:      1024,
	}
	if !out.Enabled {
		return out, nil
	}
	raw := strings.TrimSpace(cfg.PushTargetsJSON)
	if path := strings.TrimSpace(cfg.PushTargetsPath); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read push targets %q: %w", path, err)
		}
		raw = strings.TrimSpace(string(b))
	}
	if raw == "" {
		return out, nil
	}
	targets, err := parseTargetsJSON(raw)
	if err != nil {
		return Config{}, err
	}
	out.Targets = targets
	return out, nil
}

// parseTargetsJSON keeps the enabled targets with an endpoint.
func parseTargetsJSON(raw string) ([]Target, error) {
	var targets []Target
	if err := json.Unmarshal([]byte(raw), &targets); err != nil {
		return nil, fmt.Errorf("parse push targets: %w", err)
	}
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		t.Platform = strings.ToLower(strings.TrimSpace(t.Platform))
		t.Endpoint = strings.TrimSpace(t.Endpoint)
		t.TableID = strings.TrimSpace(t.TableID)
		if t.Endpoint == "" || !t.Enabled {
			continue
		}
		for i := range t.Events {
			t.Events[i] = strings.ToLower(strings.TrimSpace(t.Events[i]))
		}
		out = append(out, t)
	}
	return out, nil
}
