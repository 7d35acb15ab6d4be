package store

import "time"

type Account struct {
	PlayerID  string
	Balance   int64
	UpdatedAt time.Time
}

type LedgerEntry struct {
	ID        string
	PlayerID  string
	Type      string
	Amount    int64
	RefType   string
	RefID     string
	CreatedAt time.Time
}

type Table struct {
	ID         string
	Capacity   int
	SmallBlind int64
	BigBlind   int64
	Status     string
	CreatedAt  time.Time
	ClosedAt   *time.Time
}

// Hand is one finished or aborted hand. Result holds the full settlement
// as JSON.
type Hand struct {
	ID          string
	TableID     string
	HandNumber  int64
	FoldOut     bool
	Aborted     bool
	AbortReason string
	Pot         int64
	Board       []string
	Result      []byte
	EndedAt     time.Time
	Deltas      []HandDelta
}

type HandDelta struct {
	Seat        int
	PlayerID    string
	Contributed int64
	Payout      int64
	Delta       int64
}

type Fee struct {
	ID        string
	TableID   string
	HandID    string
	PlayerID  string
	Reason    string
	Amount    int64
	CreatedAt time.Time
}
