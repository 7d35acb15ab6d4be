package config

import "github.com/caarlos0/env/v11"

// TestConfig addresses the optional backing services of integration tests.
type TestConfig struct {
	PostgresDSN string `env:"TEST_POSTGRES_DSN"`
	RedisAddr   string `env:"TEST_REDIS_ADDR"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}
