package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	// Empty PostgresDSN runs the server on the in-memory ledger.
	PostgresDSN string `env:"POSTGRES_DSN"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`

	RedisAddr          string `env:"REDIS_ADDR"`
	RedisDB            int    `env:"REDIS_DB" envDefault:"0"`
	RedisChannelPrefix string `env:"REDIS_CHANNEL_PREFIX" envDefault:"pokerclub"`
	RedisHistoryLen    int64  `env:"REDIS_HISTORY_LEN" envDefault:"200"`

	EventBufferSize int `env:"EVENT_BUFFER_SIZE" envDefault:"500"`

	DemoTables   []string `env:"DEMO_TABLES" envSeparator:"," envDefault:"demo"`
	DemoBots     int      `env:"DEMO_BOTS" envDefault:"0"`
	DemoBotStack int64    `env:"DEMO_BOT_STACK" envDefault:"2000"`
	DemoBalance  int64    `env:"DEMO_BALANCE" envDefault:"100000"`

	PushEnabled     bool          `env:"PUSH_ENABLED" envDefault:"false"`
	PushTargetsJSON string        `env:"PUSH_TARGETS_JSON"`
	PushTargetsPath string        `env:"PUSH_TARGETS_PATH"`
	PushWorkers     int           `env:"PUSH_WORKERS" envDefault:"2"`
	PushRetryMax    int           `env:"PUSH_RETRY_MAX" envDefault:"3"`
	PushRetryBase   time.Duration `env:"PUSH_RETRY_BASE" envDefault:"500ms"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
