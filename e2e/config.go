package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// CONNECT_ADDR points at a live backend, e.g. http://localhost:8000.
	// The suite skips entirely when it is unset.
	ServerAddr string `envconfig:"CONNECT_ADDR"`
	AuthToken  string `envconfig:"CONNECT_TOKEN"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
