package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays values from environment variables onto cfg. Variables
// that are unset leave the existing values untouched.
func parseEnv(cfg *Config) error {
	return env.Parse(cfg)
}
