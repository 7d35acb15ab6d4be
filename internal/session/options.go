package session

import (
	"math/rand"
	"time"

	"github.com/coder/quartz"

	"poker-club/internal/broadcast"
	"poker-club/internal/config"
	"poker-club/internal/game"
	"poker-club/internal/ids"
	"poker-club/internal/reconnect"
)

// Options configure one table. Zero collaborators fall back to no-ops, the
// real clock and generated hand ids.
type Options struct {
	Rules        game.Rules
	ActionTime   time.Duration
	TimeBank     time.Duration
	HandInterval time.Duration
	MinBuyIn     int64
	MaxBuyIn     int64
	Reconnect    reconnect.Policy

	Clock     quartz.Clock
	Rand      *rand.Rand
	Roster    Roster
	Publisher broadcast.Publisher
	Presence  Presence
	NewHandID func() string
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = quartz.NewReal()
	}
	if o.Roster == nil {
		o.Roster = nopRoster{}
	}
	if o.Publisher == nil {
		o.Publisher = nopPublisher{}
	}
	if o.NewHandID == nil {
		o.NewHandID = ids.Hand
	}
	if o.ActionTime <= 0 {
		o.ActionTime = 15 * time.Second
	}
	if o.Reconnect.MaxAttempts <= 0 {
		o.Reconnect = reconnect.DefaultPolicy()
	}
	return o
}

// OptionsFromConfig maps table settings from the environment onto Options.
// With LevelHands set the blinds double every LevelHands hands.
func OptionsFromConfig(cfg config.TableConfig) Options {
	levels := []game.BlindLevel{{SmallBlind: cfg.SmallBlind, BigBlind: cfg.BigBlind, Ante: cfg.Ante}}
	if cfg.LevelHands > 0 {
		levels = levels[:0]
		sb, bb, ante := cfg.SmallBlind, cfg.BigBlind, cfg.Ante
		for i := 0; i < 8; i++ {
			levels = append(levels, game.BlindLevel{SmallBlind: sb, BigBlind: bb, Ante: ante, Hands: cfg.LevelHands})
			sb, bb, ante = sb*2, bb*2, ante*2
		}
		levels[len(levels)-1].Hands = 0
	}
	return Options{
		Rules: game.Rules{
			Capacity:        cfg.Capacity,
			Levels:          levels,
			AllowStraddle:   cfg.AllowStraddle,
			AllowBombPot:    cfg.AllowBombPot,
			BombPotAnte:     cfg.BombPotAnte,
			AllowRabbitHunt: cfg.AllowRabbitHunt,
			RabbitHuntCost:  cfg.RabbitHuntCost,
		},
		ActionTime:   cfg.EffectiveActionTime(),
		TimeBank:     cfg.TimeBank,
		HandInterval: cfg.HandInterval,
		MinBuyIn:     cfg.MinBuyIn,
		MaxBuyIn:     cfg.MaxBuyIn,
		Reconnect: reconnect.Policy{
			BaseDelay:   cfg.ReconnectBase,
			Multiplier:  cfg.ReconnectMultiplier,
			MaxDelay:    cfg.ReconnectCap,
			MaxAttempts: cfg.ReconnectMaxAttempts,
		},
	}
}
