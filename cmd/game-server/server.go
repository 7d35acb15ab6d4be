package main

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"poker-club/internal/bot"
	"poker-club/internal/broadcast"
	"poker-club/internal/config"
	"poker-club/internal/ledger"
	"poker-club/internal/session"
	"poker-club/internal/store"
	"poker-club/internal/tablepush"
	httptransport "poker-club/internal/transport/http"
	"poker-club/internal/ws"
)

type bank interface {
	session.Roster
	httptransport.Bank
}

// server is everything main wires together.
type server struct {
	store  *store.Store
	redis  *redis.Client
	hub    *broadcast.Hub
	tables *session.Manager
	router *chi.Mux
	bots   []*bot.Player
	push   *tablepush.Manager
}

func newServer(ctx context.Context, cfg config.AppConfig) (*server, error) {
	s := &server{hub: broadcast.NewHub(cfg.Server.EventBufferSize)}

	var b bank
	if cfg.Server.PostgresDSN != "" {
		st, err := store.New(cfg.Server.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("store init: %w", err)
		}
		if err := st.Ping(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		s.store = st
		b = ledger.New(st, cfg.Server.DemoBalance)
	} else {
		log.Warn().Msg("POSTGRES_DSN not set; balances live in memory")
		b = ledger.NewMemory(cfg.Server.DemoBalance)
	}

	fanout := broadcast.Fanout{s.hub}
	if cfg.Server.RedisAddr != "" {
		rc, err := broadcast.Connect(ctx, cfg.Server.RedisAddr, cfg.Server.RedisDB)
		if err != nil {
			s.close()
			return nil, err
		}
		s.redis = rc
		fanout = append(fanout, broadcast.NewRedisPublisher(rc, cfg.Server.RedisChannelPrefix, cfg.Server.RedisHistoryLen))
	}
	pushCfg, err := tablepush.ConfigFromServer(cfg.Server)
	if err != nil {
		s.close()
		return nil, err
	}
	if pushCfg.Enabled {
		s.push = tablepush.NewManager(pushCfg)
		fanout = append(fanout, s.push)
	}
	var pub broadcast.Publisher = s.hub
	if len(fanout) > 1 {
		pub = fanout
	}

	wsSrv := ws.NewServer(nil, s.hub)
	defaults := session.OptionsFromConfig(cfg.Table)
	defaults.Roster = b
	defaults.Publisher = pub
	defaults.Presence = wsSrv
	s.tables = session.NewManager(defaults)
	wsSrv.Tables = s.tables

	for i, id := range cfg.Server.DemoTables {
		c, err := s.tables.Create(id, nil)
		if err != nil {
			s.close()
			return nil, err
		}
		rec := store.Table{ID: c.ID(), Capacity: cfg.Table.Capacity, SmallBlind: cfg.Table.SmallBlind, BigBlind: cfg.Table.BigBlind}
		if err := b.OpenTable(ctx, rec); err != nil {
			log.Error().Err(err).Str("table_id", c.ID()).Msg("record table")
		}
		if i > 0 {
			continue
		}
		for seat := 0; seat < cfg.Server.DemoBots && seat < cfg.Table.Capacity; seat++ {
			s.bots = append(s.bots, &bot.Player{
				Table:    c,
				Hub:      s.hub,
				PlayerID: fmt.Sprintf("bot-%d", seat),
				Seat:     seat,
				BuyIn:    cfg.Server.DemoBotStack,
			})
		}
	}

	s.router = httptransport.NewRouter(httptransport.Deps{
		Tables: s.tables,
		Hub:    s.hub,
		WS:     wsSrv,
		Bank:   b,
		Store:  s.store,
		Config: cfg.Server,
	})
	return s, nil
}

func (s *server) close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}
