package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"poker-club/internal/game"
	"poker-club/internal/game/viewmodel"
	"poker-club/internal/session"
)

type CommandRequest struct {
	Seat    int    `json:"seat"`
	BuyIn   int64  `json:"buy_in"`
	Action  string `json:"action"`
	Amount  int64  `json:"amount"`
	TurnID  string `json:"turn_id"`
	Seconds int    `json:"seconds"`
}

// caller is the player behind a request and the seat its token unlocked,
// -1 when the command does not need one.
type caller struct {
	PlayerID string
	Seat     int
	Token    string
}

type seatCommand func(ctx context.Context, c *session.Coordinator, who caller, req CommandRequest) (viewmodel.TableView, error)

type CommandHandlers struct {
	tables *TableHandlers
}

func NewCommandHandlers(tables *TableHandlers) *CommandHandlers {
	return &CommandHandlers{tables: tables}
}

func (h *CommandHandlers) Join() http.HandlerFunc {
	return h.serve("join", false, func(ctx context.Context, c *session.Coordinator, who caller, req CommandRequest) (viewmodel.TableView, error) {
		return c.Join(ctx, req.Seat, who.PlayerID, req.BuyIn)
	})
}

func (h *CommandHandlers) Rejoin() http.HandlerFunc {
	return h.serve("rejoin", true, func(ctx context.Context, c *session.Coordinator, who caller, _ CommandRequest) (viewmodel.TableView, error) {
		return c.Rejoin(ctx, who.Token)
	})
}

func (h *CommandHandlers) Leave() http.HandlerFunc {
	return h.serve("leave", true, func(ctx context.Context, c *session.Coordinator, who caller, _ CommandRequest) (viewmodel.TableView, error) {
		return c.Leave(ctx, who.Seat)
	})
}

func (h *CommandHandlers) Act() http.HandlerFunc {
	return h.serve("act", true, func(ctx context.Context, c *session.Coordinator, who caller, req CommandRequest) (viewmodel.TableView, error) {
		kind, err := game.ParseActionKind(req.Action)
		if err != nil {
			return viewmodel.TableView{}, err
		}
		return c.Act(ctx, who.Seat, kind, req.Amount, req.TurnID)
	})
}

func (h *CommandHandlers) UseTimeBank() http.HandlerFunc {
	return h.serve("use_time_bank", true, func(ctx context.Context, c *session.Coordinator, who caller, req CommandRequest) (viewmodel.TableView, error) {
		return c.UseTimeBank(ctx, who.Seat, req.Seconds)
	})
}

func (h *CommandHandlers) PostStraddle() http.HandlerFunc {
	return h.serve("post_straddle", true, func(ctx context.Context, c *session.Coordinator, who caller, req CommandRequest) (viewmodel.TableView, error) {
		return c.PostStraddle(ctx, who.Seat, req.Amount)
	})
}

func (h *CommandHandlers) TriggerBombPot() http.HandlerFunc {
	return h.serve("trigger_bomb_pot", false, func(ctx context.Context, c *session.Coordinator, _ caller, _ CommandRequest) (viewmodel.TableView, error) {
		return c.TriggerBombPot(ctx)
	})
}

func (h *CommandHandlers) RabbitHunt() http.HandlerFunc {
	return h.serve("rabbit_hunt", true, func(ctx context.Context, c *session.Coordinator, who caller, _ CommandRequest) (viewmodel.TableView, error) {
		return c.RabbitHunt(ctx, who.Seat)
	})
}

func (h *CommandHandlers) Reconnect() http.HandlerFunc {
	return h.serve("reconnect", true, func(ctx context.Context, c *session.Coordinator, who caller, _ CommandRequest) (viewmodel.TableView, error) {
		return c.Reconnect(ctx, who.Seat)
	})
}

func (h *CommandHandlers) CancelReconnect() http.HandlerFunc {
	return h.serve("cancel_reconnect", true, func(ctx context.Context, c *session.Coordinator, who caller, _ CommandRequest) (viewmodel.TableView, error) {
		return c.CancelReconnect(ctx, who.Seat)
	})
}

// serve decodes the body and runs the command. Seated commands act for the
// seat the bearer token unlocked; the rest need the X-Player-ID header.
func (h *CommandHandlers) serve(name string, seated bool, run seatCommand) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricCommandTotal.Add(1)
		c, ok := h.tables.table(w, r)
		if !ok {
			metricCommandErrors.Add(1)
			return
		}
		who := caller{PlayerID: PlayerID(r), Seat: -1}
		if seated {
			seat, ok := seatFrom(r.Context())
			if !ok {
				metricCommandErrors.Add(1)
				WriteHTTPError(w, http.StatusUnauthorized, "seat_token_required")
				return
			}
			who.Seat, who.Token = seat, bearerToken(r)
		} else if who.PlayerID == "" {
			metricCommandErrors.Add(1)
			WriteHTTPError(w, http.StatusUnauthorized, "player_required")
			return
		}
		var req CommandRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				metricCommandErrors.Add(1)
				WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
				return
			}
		}
		v, err := run(r.Context(), c, who, req)
		if err != nil {
			h.fail(w, r, name, err)
			return
		}
		writeJSON(w, v)
	}
}

func (h *CommandHandlers) fail(w http.ResponseWriter, r *http.Request, name string, err error) {
	metricCommandErrors.Add(1)
	status, code := MapCommandError(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("command", name).Str("path", r.URL.Path).Msg("command failed")
	}
	WriteHTTPError(w, status, code)
}
