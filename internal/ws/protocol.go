package ws

import (
	"poker-club/internal/broadcast"
	"poker-club/internal/game/viewmodel"
)

const ProtocolVersion = "1.0"

// Request is any client message. Type selects the command; the remaining
// fields are read as that command needs them.
type Request struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`

	Seat     int    `json:"seat"`
	PlayerID string `json:"player_id,omitempty"`
	BuyIn    int64  `json:"buy_in,omitempty"`
	// Token is the seat token from the join reply. A fresh connection
	// presents it to speak for the seat again.
	Token string `json:"token,omitempty"`

	Action  string `json:"action,omitempty"`
	Amount  int64  `json:"amount,omitempty"`
	TurnID  string `json:"turn_id,omitempty"`
	Seconds int    `json:"seconds,omitempty"`
}

// Result answers one Request.
type Result struct {
	Type            string               `json:"type"`
	ProtocolVersion string               `json:"protocol_version"`
	RequestID       string               `json:"request_id,omitempty"`
	Command         string               `json:"command"`
	Ok              bool                 `json:"ok"`
	Error           string               `json:"error,omitempty"`
	State           *viewmodel.TableView `json:"state,omitempty"`
}

// EventFrame carries one table event to a connected client.
type EventFrame struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Event           broadcast.Event `json:"event"`
}
