package viewmodel

import (
	"time"

	"poker-club/internal/game"
)

// SeatClock is the per-seat timing and connectivity the engine does not own.
type SeatClock struct {
	TimerRemaining time.Duration
	TimeBank       time.Duration
	Connection     string
}

type SeatView struct {
	Seat             int      `json:"seat"`
	PlayerID         string   `json:"player_id"`
	Stack            int64    `json:"stack"`
	StreetBet        int64    `json:"street_bet"`
	HandContribution int64    `json:"hand_contribution"`
	ToCall           int64    `json:"to_call"`
	Status           string   `json:"status"`
	LastAction       string   `json:"last_action"`
	InHand           bool     `json:"in_hand"`
	HasCards         bool     `json:"has_cards"`
	HoleCards        []string `json:"hole_cards,omitempty"`
	TimerRemainingMS int64    `json:"timer_remaining_ms"`
	TimeBankMS       int64    `json:"time_bank_ms"`
	Connection       string   `json:"connection"`
}

// TableView is an immutable snapshot of one table as seen from ViewerSeat.
// Only the viewer's own hole cards are included; -1 is a spectator.
type TableView struct {
	TableID          string           `json:"table_id"`
	Seq              uint64           `json:"seq"`
	HandID           string           `json:"hand_id"`
	HandNumber       int64            `json:"hand_number"`
	Phase            string           `json:"phase"`
	Pot              int64            `json:"pot"`
	Pots             []game.Pot       `json:"pots"`
	CommunityCards   []string         `json:"community_cards"`
	CurrentActorSeat int              `json:"current_actor_seat"`
	TurnID           string           `json:"turn_id"`
	DealerSeat       int              `json:"dealer_seat"`
	SmallBlindSeat   int              `json:"small_blind_seat"`
	BigBlindSeat     int              `json:"big_blind_seat"`
	StraddleSeat     int              `json:"straddle_seat"`
	CurrentBet       int64            `json:"current_bet"`
	MinRaise         int64            `json:"min_raise"`
	Level            game.BlindLevel  `json:"level"`
	BombPot          bool             `json:"bomb_pot"`
	PendingBombPot   bool             `json:"pending_bomb_pot"`
	Capacity         int              `json:"capacity"`
	ViewerSeat       int              `json:"viewer_seat"`
	Legal            *game.Legal      `json:"legal,omitempty"`
	Seats            []SeatView       `json:"seats"`
	LastResult       *game.HandResult `json:"last_result,omitempty"`
	// RabbitCards is only set on the reply to a rabbit hunt.
	RabbitCards []string `json:"rabbit_cards,omitempty"`
	// SeatToken is only set on the reply to a join. It authenticates every
	// later command for the seat and never appears in published state.
	SeatToken string `json:"seat_token,omitempty"`
}

// Build snapshots the engine. clock may be nil.
func Build(e *game.Engine, viewer int, clock func(seat int) SeatClock) TableView {
	st := e.State
	v := TableView{
		TableID:          st.ID,
		HandID:           st.HandID,
		HandNumber:       st.HandNumber,
		Phase:            string(st.Phase),
		Pot:              st.Pot(),
		Pots:             st.Pots(),
		CommunityCards:   game.CardStrings(st.Community),
		CurrentActorSeat: st.CurrentActor,
		TurnID:           e.TurnID(),
		DealerSeat:       st.Dealer,
		SmallBlindSeat:   st.SmallBlindSeat,
		BigBlindSeat:     st.BigBlindSeat,
		StraddleSeat:     st.StraddleSeat,
		CurrentBet:       st.CurrentBet,
		MinRaise:         st.MinRaise,
		Level:            st.Level,
		BombPot:          st.BombPot,
		Capacity:         len(st.Seats),
		ViewerSeat:       viewer,
		Seats:            make([]SeatView, 0, len(st.Seats)),
		LastResult:       st.LastResult,
	}
	if viewer >= 0 && viewer == st.CurrentActor {
		legal := e.LegalActions(viewer)
		if len(legal.Actions) > 0 {
			v.Legal = &legal
		}
	}
	for _, s := range st.Seats {
		if s == nil {
			continue
		}
		sv := SeatView{
			Seat:             s.Index,
			PlayerID:         s.PlayerID,
			Stack:            s.Stack,
			StreetBet:        s.StreetBet,
			HandContribution: s.HandContrib,
			ToCall:           st.ToCall(s.Index),
			Status:           string(s.Status),
			LastAction:       s.LastAction,
			InHand:           s.InHand,
			HasCards:         len(s.Hole) > 0 && s.Status != game.SeatFolded,
			Connection:       "connected",
		}
		if !s.InHand || !st.Phase.Betting() {
			sv.ToCall = 0
		}
		if s.Index == viewer && len(s.Hole) > 0 {
			sv.HoleCards = game.CardStrings(s.Hole)
		}
		if clock != nil {
			c := clock(s.Index)
			sv.TimerRemainingMS = c.TimerRemaining.Milliseconds()
			sv.TimeBankMS = c.TimeBank.Milliseconds()
			if c.Connection != "" {
				sv.Connection = c.Connection
			}
		}
		v.Seats = append(v.Seats, sv)
	}
	return v
}

// SeatOf finds the seat held by playerID.
func (v TableView) SeatOf(playerID string) (int, bool) {
	if playerID == "" {
		return -1, false
	}
	for _, s := range v.Seats {
		if s.PlayerID == playerID {
			return s.Seat, true
		}
	}
	return -1, false
}
