package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// TableConfig holds the defaults applied to tables created without explicit
// settings. Variables are read with the TABLE_ prefix.
type TableConfig struct {
	Capacity   int   `env:"CAPACITY" envDefault:"9"`
	SmallBlind int64 `env:"SMALL_BLIND" envDefault:"10"`
	BigBlind   int64 `env:"BIG_BLIND" envDefault:"20"`
	Ante       int64 `env:"ANTE" envDefault:"0"`
	// LevelHands is the number of hands a blind level lasts before the
	// schedule doubles; zero keeps a single fixed level.
	LevelHands int `env:"LEVEL_HANDS" envDefault:"0"`

	ActionTime       time.Duration `env:"ACTION_TIME" envDefault:"15s"`
	CasualActionTime time.Duration `env:"CASUAL_ACTION_TIME" envDefault:"30s"`
	Casual           bool          `env:"CASUAL" envDefault:"false"`
	TimeBank         time.Duration `env:"TIME_BANK" envDefault:"60s"`
	HandInterval     time.Duration `env:"HAND_INTERVAL" envDefault:"3s"`

	MinBuyIn int64 `env:"MIN_BUY_IN" envDefault:"400"`
	MaxBuyIn int64 `env:"MAX_BUY_IN" envDefault:"4000"`

	AllowStraddle   bool  `env:"ALLOW_STRADDLE" envDefault:"true"`
	AllowBombPot    bool  `env:"ALLOW_BOMB_POT" envDefault:"true"`
	BombPotAnte     int64 `env:"BOMB_POT_ANTE" envDefault:"50"`
	AllowRabbitHunt bool  `env:"ALLOW_RABBIT_HUNT" envDefault:"true"`
	RabbitHuntCost  int64 `env:"RABBIT_HUNT_COST" envDefault:"5"`

	ReconnectBase        time.Duration `env:"RECONNECT_BASE" envDefault:"1s"`
	ReconnectMultiplier  float64       `env:"RECONNECT_MULTIPLIER" envDefault:"2"`
	ReconnectCap         time.Duration `env:"RECONNECT_CAP" envDefault:"30s"`
	ReconnectMaxAttempts int           `env:"RECONNECT_MAX_ATTEMPTS" envDefault:"5"`
}

func LoadTable() (TableConfig, error) {
	var cfg TableConfig
	err := env.ParseWithOptions(&cfg, env.Options{Prefix: "TABLE_"})
	return cfg, err
}

// EffectiveActionTime picks the live or casual turn duration.
func (c TableConfig) EffectiveActionTime() time.Duration {
	if c.Casual {
		return c.CasualActionTime
	}
	return c.ActionTime
}
