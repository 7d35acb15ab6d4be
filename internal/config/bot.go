package config

import "github.com/caarlos0/env/v11"

type BotConfig struct {
	WSURL    string `env:"WS_URL" envDefault:"ws://localhost:8080/ws/tables/demo"`
	PlayerID string `env:"PLAYER_ID" envDefault:"bot"`
	Seat     int    `env:"SEAT" envDefault:"0"`
	BuyIn    int64  `env:"BUY_IN" envDefault:"2000"`
	Seed     int64  `env:"BOT_SEED" envDefault:"0"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
