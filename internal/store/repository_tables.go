package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateTable(ctx context.Context, t Table) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO tables (id, capacity, small_blind, big_blind) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (id) DO UPDATE SET status = 'open', closed_at = NULL`,
		t.ID, t.Capacity, t.SmallBlind, t.BigBlind)
	return err
}

func (s *Store) CloseTable(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE tables SET status = 'closed', closed_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetTable(ctx context.Context, id string) (*Table, error) {
	var t Table
	err := s.Pool.QueryRow(ctx,
		`SELECT id, capacity, small_blind, big_blind, status, created_at, closed_at FROM tables WHERE id = $1`, id).
		Scan(&t.ID, &t.Capacity, &t.SmallBlind, &t.BigBlind, &t.Status, &t.CreatedAt, &t.ClosedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &t, nil
}

func (s *Store) ListTables(ctx context.Context, status string) ([]Table, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, capacity, small_blind, big_blind, status, created_at, closed_at FROM tables
		 WHERE ($1 = '' OR status = $1) ORDER BY created_at`, status)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Table, error) {
		var t Table
		err := row.Scan(&t.ID, &t.Capacity, &t.SmallBlind, &t.BigBlind, &t.Status, &t.CreatedAt, &t.ClosedAt)
		return t, err
	})
}
