package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// SaveHand writes the hand and its per-seat deltas atomically.
func (s *Store) SaveHand(ctx context.Context, h Hand) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	board := h.Board
	if board == nil {
		board = []string{}
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO hands (id, table_id, hand_number, fold_out, aborted, abort_reason, pot, board, result)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		h.ID, h.TableID, h.HandNumber, h.FoldOut, h.Aborted, h.AbortReason, h.Pot, board, h.Result); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, d := range h.Deltas {
		batch.Queue(`INSERT INTO hand_deltas (hand_id, seat, player_id, contributed, payout, delta) VALUES ($1,$2,$3,$4,$5,$6)`,
			h.ID, d.Seat, d.PlayerID, d.Contributed, d.Payout, d.Delta)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) GetHand(ctx context.Context, id string) (*Hand, error) {
	var h Hand
	err := s.Pool.QueryRow(ctx, `
		SELECT id, table_id, hand_number, fold_out, aborted, abort_reason, pot, board, result, ended_at
		FROM hands WHERE id = $1`, id).
		Scan(&h.ID, &h.TableID, &h.HandNumber, &h.FoldOut, &h.Aborted, &h.AbortReason, &h.Pot, &h.Board, &h.Result, &h.EndedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT seat, player_id, contributed, payout, delta FROM hand_deltas WHERE hand_id = $1 ORDER BY seat`, id)
	if err != nil {
		return nil, err
	}
	h.Deltas, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (HandDelta, error) {
		var d HandDelta
		err := row.Scan(&d.Seat, &d.PlayerID, &d.Contributed, &d.Payout, &d.Delta)
		return d, err
	})
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ListHands returns the table's most recent hands first, without deltas.
func (s *Store) ListHands(ctx context.Context, tableID string, limit int) ([]Hand, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, table_id, hand_number, fold_out, aborted, abort_reason, pot, board, result, ended_at
		FROM hands WHERE table_id = $1 ORDER BY hand_number DESC LIMIT $2`, tableID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Hand, error) {
		var h Hand
		err := row.Scan(&h.ID, &h.TableID, &h.HandNumber, &h.FoldOut, &h.Aborted, &h.AbortReason, &h.Pot, &h.Board, &h.Result, &h.EndedAt)
		return h, err
	})
}

func (s *Store) RecordFee(ctx context.Context, f Fee) error {
	if f.ID == "" {
		f.ID = NewID()
	}
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO table_fees (id, table_id, hand_id, player_id, reason, amount) VALUES ($1,$2,$3,$4,$5,$6)`,
		f.ID, f.TableID, f.HandID, f.PlayerID, f.Reason, f.Amount)
	return err
}

// SumFees totals the fees a player paid at a table; an empty playerID
// sums every player.
func (s *Store) SumFees(ctx context.Context, tableID, playerID string) (int64, error) {
	var total int64
	err := s.Pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM table_fees WHERE table_id = $1 AND ($2 = '' OR player_id = $2)`,
		tableID, playerID).Scan(&total)
	return total, err
}
