package config

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
)

type Config struct {
	Port                int    `env:"PORT,default=3000"`
	MasterSecret        string `env:"MASTER_SECRET"`
	GinMode             string `env:"GIN_MODE,default=release"`
	DataDir             string `env:"DATA_DIR,default=./data"`
	TLSCertFile         string `env:"TLS_CERT_FILE"`
	TLSKeyFile          string `env:"TLS_KEY_FILE"`
	TokenExpirySeconds  int    `env:"TOKEN_EXPIRY_SECONDS,default=1800"`
	ChallengeTTLSeconds int    `env:"CHALLENGE_TTL_SECONDS,default=120"`
}

func Load() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.MasterSecret == "" {
		return Config{}, fmt.Errorf("MASTER_SECRET is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	if cfg.TokenExpirySeconds <= 0 {
		return Config{}, fmt.Errorf("invalid TOKEN_EXPIRY_SECONDS %d", cfg.TokenExpirySeconds)
	}
	if cfg.ChallengeTTLSeconds <= 0 {
		return Config{}, fmt.Errorf("invalid CHALLENGE_TTL_SECONDS %d", cfg.ChallengeTTLSeconds)
	}
	return cfg, nil
}

func (c Config) TokenExpiry() time.Duration {
	return time.Duration(c.TokenExpirySeconds) * time.Second
}

func (c Config) ChallengeTTL() time.Duration {
	return time.Duration(c.ChallengeTTLSeconds) * time.Second
}
