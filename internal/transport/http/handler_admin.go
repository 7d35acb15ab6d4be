package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"poker-club/internal/broadcast"
	"poker-club/internal/game"
	"poker-club/internal/session"
	"poker-club/internal/store"
)

type AdminHandlers struct {
	tables *session.Manager
	hub    *broadcast.Hub
	bank   Bank
	// store is nil when the server runs on the in-memory ledger.
	store *store.Store
}

func NewAdminHandlers(tables *session.Manager, hub *broadcast.Hub, bank Bank, st *store.Store) *AdminHandlers {
	return &AdminHandlers{tables: tables, hub: hub, bank: bank, store: st}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.store == nil {
			writeJSON(w, map[string]any{"ok": true, "db": "memory", "tables": len(h.tables.List())})
			return
		}
		if err := h.store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "db": "down"})
			return
		}
		writeJSON(w, map[string]any{"ok": true, "db": "up", "tables": len(h.tables.List())})
	}
}

type createTableRequest struct {
	TableID         string `json:"table_id"`
	Capacity        int    `json:"capacity"`
	SmallBlind      int64  `json:"small_blind"`
	BigBlind        int64  `json:"big_blind"`
	Ante            int64  `json:"ante"`
	MinBuyIn        int64  `json:"min_buy_in"`
	MaxBuyIn        int64  `json:"max_buy_in"`
	AllowStraddle   *bool  `json:"allow_straddle"`
	AllowBombPot    *bool  `json:"allow_bomb_pot"`
	AllowRabbitHunt *bool  `json:"allow_rabbit_hunt"`
}

// CreateTable opens a table from the server defaults with the request's
// overrides applied.
func (h *AdminHandlers) CreateTable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createTableRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if body.Capacity < 0 || body.Capacity > 10 || body.SmallBlind < 0 || body.BigBlind < body.SmallBlind {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		c, err := h.tables.Create(body.TableID, func(o *session.Options) {
			if body.Capacity > 0 {
				o.Rules.Capacity = body.Capacity
			}
			if body.BigBlind > 0 {
				o.Rules.Levels = []game.BlindLevel{{SmallBlind: body.SmallBlind, BigBlind: body.BigBlind, Ante: body.Ante}}
			}
			if body.MinBuyIn > 0 {
				o.MinBuyIn = body.MinBuyIn
			}
			if body.MaxBuyIn > 0 {
				o.MaxBuyIn = body.MaxBuyIn
			}
			if body.AllowStraddle != nil {
				o.Rules.AllowStraddle = *body.AllowStraddle
			}
			if body.AllowBombPot != nil {
				o.Rules.AllowBombPot = *body.AllowBombPot
			}
			if body.AllowRabbitHunt != nil {
				o.Rules.AllowRabbitHunt = *body.AllowRabbitHunt
			}
		})
		if err != nil {
			status, code := MapCommandError(err)
			WriteHTTPError(w, status, code)
			return
		}
		v, err := c.Snapshot(r.Context(), -1)
		if err != nil {
			status, code := MapCommandError(err)
			WriteHTTPError(w, status, code)
			return
		}
		rec := store.Table{ID: c.ID(), Capacity: v.Capacity, SmallBlind: v.Level.SmallBlind, BigBlind: v.Level.BigBlind}
		if err := h.bank.OpenTable(r.Context(), rec); err != nil {
			log.Error().Err(err).Str("table_id", c.ID()).Msg("record table")
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]any{"ok": true, "table_id": c.ID()})
	}
}

// CloseTable aborts any running hand, cashes every seat out and drops the
// table's event history.
func (h *AdminHandlers) CloseTable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "table_id")
		if err := h.tables.Close(r.Context(), id); err != nil {
			status, code := MapCommandError(err)
			WriteHTTPError(w, status, code)
			return
		}
		if err := h.bank.CloseTable(r.Context(), id); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Str("table_id", id).Msg("record table close")
		}
		h.hub.Drop(id)
		writeJSON(w, map[string]any{"ok": true})
	}
}

func (h *AdminHandlers) Topup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PlayerID string `json:"player_id"`
			Amount   int64  `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if body.PlayerID == "" || body.Amount <= 0 {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		bal, err := h.bank.Topup(r.Context(), body.PlayerID, body.Amount)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, map[string]any{"ok": true, "balance": bal})
	}
}

func (h *AdminHandlers) Ledger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := page(r, 50, 500)
		q := r.URL.Query()
		if h.store == nil {
			items, err := h.bank.Entries(r.Context(), q.Get("player_id"), limit, offset)
			if err != nil {
				WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
				return
			}
			writeJSON(w, map[string]any{"items": items, "limit": limit, "offset": offset})
			return
		}
		f := store.LedgerFilter{PlayerID: q.Get("player_id"), RefID: q.Get("ref_id")}
		if v := q.Get("from"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				f.From = &t
			}
		}
		if v := q.Get("to"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				f.To = &t
			}
		}
		items, err := h.store.ListLedgerEntries(r.Context(), f, limit, offset)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}

func (h *AdminHandlers) Accounts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.store == nil {
			WriteHTTPError(w, http.StatusNotImplemented, "store_disabled")
			return
		}
		limit, offset := page(r, 50, 500)
		items, err := h.store.ListAccounts(r.Context(), r.URL.Query().Get("player_id"), limit, offset)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}

// TableRecords lists every table the store knows, closed ones included.
func (h *AdminHandlers) TableRecords() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.store == nil {
			WriteHTTPError(w, http.StatusNotImplemented, "store_disabled")
			return
		}
		items, err := h.store.ListTables(r.Context(), r.URL.Query().Get("status"))
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, map[string]any{"items": items})
	}
}

func (h *AdminHandlers) Hand() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.store == nil {
			WriteHTTPError(w, http.StatusNotImplemented, "store_disabled")
			return
		}
		hd, err := h.store.GetHand(r.Context(), chi.URLParam(r, "hand_id"))
		if errors.Is(err, store.ErrNotFound) {
			WriteHTTPError(w, http.StatusNotFound, "hand_not_found")
			return
		}
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		out := handJSON(*hd)
		out["deltas"] = hd.Deltas
		fees, err := h.store.SumFees(r.Context(), hd.TableID, "")
		if err == nil {
			out["table_fees"] = fees
		}
		writeJSON(w, out)
	}
}
