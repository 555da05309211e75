// Package config holds runtime settings for the CLI client.
package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/userval/internal/flagx"
)

// Config holds runtime settings for the CLI.
//
// Fields:
//   - ServerURL: base URL of the validation server.
type Config struct {
	ServerURL string `env:"SERVER_URL"`
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:3001"
}

// LoadConfig applies defaults, then the SERVER_URL environment variable,
// then the -u flag.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()

	if v := os.Getenv("SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}

	args := flagx.FilterArgs(os.Args[1:], []string{"-u"})
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.StringVar(&cfg.ServerURL, "u", cfg.ServerURL, "server base URL")
	_ = fs.Parse(args)

	return cfg
}
