package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"poker-club/internal/broadcast"
	"poker-club/internal/session"
	"poker-club/internal/store"
)

// Bank is the money side of the server: balances, table records and hand
// history. Both ledgers implement it.
type Bank interface {
	Balance(ctx context.Context, playerID string) (int64, error)
	Topup(ctx context.Context, playerID string, amount int64) (int64, error)
	OpenTable(ctx context.Context, t store.Table) error
	CloseTable(ctx context.Context, id string) error
	History(ctx context.Context, tableID string, limit int) ([]store.Hand, error)
	Entries(ctx context.Context, playerID string, limit, offset int) ([]store.LedgerEntry, error)
}

type TableSummary struct {
	TableID    string `json:"table_id"`
	Phase      string `json:"phase"`
	HandNumber int64  `json:"hand_number"`
	Seated     int    `json:"seated"`
	Capacity   int    `json:"capacity"`
	SmallBlind int64  `json:"small_blind"`
	BigBlind   int64  `json:"big_blind"`
}

type TableHandlers struct {
	tables *session.Manager
	bank   Bank
}

func NewTableHandlers(tables *session.Manager, bank Bank) *TableHandlers {
	return &TableHandlers{tables: tables, bank: bank}
}

func (h *TableHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := make([]TableSummary, 0)
		for _, id := range h.tables.List() {
			c, err := h.tables.Get(id)
			if err != nil {
				continue
			}
			v, err := c.Snapshot(r.Context(), -1)
			if err != nil {
				continue
			}
			items = append(items, TableSummary{
				TableID:    v.TableID,
				Phase:      v.Phase,
				HandNumber: v.HandNumber,
				Seated:     len(v.Seats),
				Capacity:   v.Capacity,
				SmallBlind: v.Level.SmallBlind,
				BigBlind:   v.Level.BigBlind,
			})
		}
		writeJSON(w, map[string]any{"items": items})
	}
}

// State returns the table as the seat token's holder sees it; callers
// without a token get the spectator view.
func (h *TableHandlers) State() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := h.table(w, r)
		if !ok {
			return
		}
		v, err := c.Snapshot(r.Context(), viewer(r))
		if err != nil {
			status, code := MapCommandError(err)
			WriteHTTPError(w, status, code)
			return
		}
		writeJSON(w, v)
	}
}

func (h *TableHandlers) Hands() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := page(r, 20, 200)
		hands, err := h.bank.History(r.Context(), chi.URLParam(r, "table_id"), limit)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		items := make([]map[string]any, 0, len(hands))
		for _, hd := range hands {
			items = append(items, handJSON(hd))
		}
		writeJSON(w, map[string]any{"items": items})
	}
}

func (h *TableHandlers) Balance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := chi.URLParam(r, "player_id")
		bal, err := h.bank.Balance(r.Context(), playerID)
		if errors.Is(err, store.ErrNotFound) {
			WriteHTTPError(w, http.StatusNotFound, "account_not_found")
			return
		}
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, map[string]any{"player_id": playerID, "balance": bal})
	}
}

func (h *TableHandlers) table(w http.ResponseWriter, r *http.Request) (*session.Coordinator, bool) {
	c, err := h.tables.Get(chi.URLParam(r, "table_id"))
	if err != nil {
		WriteHTTPError(w, http.StatusNotFound, "table_not_found")
		return nil, false
	}
	return c, true
}

func handJSON(h store.Hand) map[string]any {
	out := map[string]any{
		"hand_id":     h.ID,
		"table_id":    h.TableID,
		"hand_number": h.HandNumber,
		"fold_out":    h.FoldOut,
		"aborted":     h.Aborted,
		"pot":         h.Pot,
		"board":       h.Board,
	}
	if h.AbortReason != "" {
		out["abort_reason"] = h.AbortReason
	}
	if !h.EndedAt.IsZero() {
		out["ended_at"] = h.EndedAt
	}
	if len(h.Result) > 0 {
		out["result"] = json.RawMessage(h.Result)
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// viewer is the authenticated seat of the request, or the spectator seat.
func viewer(r *http.Request) int {
	if seat, ok := seatFrom(r.Context()); ok {
		return seat
	}
	return broadcast.Public
}
