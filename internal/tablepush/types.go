package tablepush

import "time"

// Target is one webhook. An empty TableID follows every table; an empty
// Events list takes every event the formatter knows.
type Target struct {
	Platform string   `json:"platform"`
	Endpoint string   `json:"endpoint"`
	Secret   string   `json:"secret"`
	TableID  string   `json:"table_id"`
	Events   []string `json:"events"`
	Enabled  bool     `json:"enabled"`
}

type Config struct {
	Enabled             bool
	Targets             []Target
	Workers             int
	RetryMax            int
	RetryBase           time.Duration
	FailureThreshold    int
	CircuitOpenDuration time.Duration
	RequestTimeout      time.Duration
	DispatchBuffer      int
}

// NormalizedEvent is a table event flattened to the fields messages use.
type NormalizedEvent struct {
	EventID    string
	EventType  string
	ServerTS   int64
	TableID    string
	HandID     string
	HandNumber int64
	Seat       *int
	PlayerID   string
	Amount     *int64
	BombPot    bool
	Raw        map[string]any
}

type MessageField struct {
	Name   string
	Value  string
	Inline bool
}

type FormattedMessage struct {
	Title       string
	Content     string
	Description string
	Color       int
	Timestamp   string
	Footer      string
	Fields      []MessageField
}

type pushJob struct {
	Target    Target
	Event     NormalizedEvent
	Formatted FormattedMessage
	Attempt   int
}

func (j pushJob) key() string {
	return targetKey(j.Target)
}

func targetKey(t Target) string {
	return t.Platform + "|" + t.Endpoint + "|" + t.TableID
}
