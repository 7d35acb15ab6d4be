package main

import (
	"encoding/json"
	"math/rand"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"poker-club/internal/bot"
	"poker-club/internal/config"
	"poker-club/internal/game"
	"poker-club/internal/logging"
	"poker-club/internal/ws"
)

// frame is the union of the server's result and event frames.
type frame struct {
	Type  string          `json:"type"`
	Ok    bool            `json:"ok"`
	Error string          `json:"error"`
	State json.RawMessage `json:"state"`
	Event struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	} `json:"event"`
}

type tableState struct {
	CurrentActorSeat int    `json:"current_actor_seat"`
	TurnID           string `json:"turn_id"`
	Legal            *game.Legal `json:"legal"`
}

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}

	conn, _, err := websocket.DefaultDialer.Dial(cfg.WSURL, nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.WSURL).Msg("dial failed")
	}
	defer conn.Close()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))
	send := func(req ws.Request) {
		if err := conn.WriteJSON(req); err != nil {
			log.Error().Err(err).Str("type", req.Type).Msg("send failed")
		}
	}

	send(ws.Request{Type: "join", Seat: cfg.Seat, PlayerID: cfg.PlayerID, BuyIn: cfg.BuyIn})
	lastTurn := ""
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			log.Info().Err(err).Msg("connection closed")
			return
		}
		var st tableState
		switch {
		case f.Type == "result" && !f.Ok:
			log.Warn().Str("error", f.Error).Msg("command rejected")
			continue
		case f.Type == "result":
			if err := json.Unmarshal(f.State, &st); err != nil {
				continue
			}
		case f.Type == "event" && f.Event.Event == "snapshot":
			if err := json.Unmarshal(f.Event.Data, &st); err != nil {
				continue
			}
			if st.CurrentActorSeat == cfg.Seat && st.TurnID != lastTurn {
				send(ws.Request{Type: "snapshot"})
			}
			continue
		default:
			continue
		}
		if st.CurrentActorSeat != cfg.Seat || st.Legal == nil || st.TurnID == lastTurn {
			continue
		}
		d := bot.Decide(rnd, *st.Legal)
		lastTurn = st.TurnID
		log.Info().Str("action", string(d.Action)).Int64("amount", d.Amount).Msg("acting")
		send(ws.Request{Type: "act", Action: string(d.Action), Amount: d.Amount, TurnID: st.TurnID})
	}
}
