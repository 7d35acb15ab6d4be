package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

type LedgerFilter struct {
	PlayerID string
	RefID    string
	From     *time.Time
	To       *time.Time
}

func (s *Store) ListLedgerEntries(ctx context.Context, f LedgerFilter, limit, offset int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, player_id, type, amount, ref_type, ref_id, created_at
		FROM ledger_entries
		WHERE ($1 = '' OR player_id = $1)
		  AND ($2 = '' OR ref_id = $2)
		  AND ($3::timestamptz IS NULL OR created_at >= $3)
		  AND ($4::timestamptz IS NULL OR created_at < $4)
		ORDER BY created_at DESC, id DESC
		LIMIT $5 OFFSET $6`,
		f.PlayerID, f.RefID, f.From, f.To, limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (LedgerEntry, error) {
		var e LedgerEntry
		err := row.Scan(&e.ID, &e.PlayerID, &e.Type, &e.Amount, &e.RefType, &e.RefID, &e.CreatedAt)
		return e, err
	})
}
