// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package config holds the tuning constants of spec.md §6, sourced from
// CLI flags with an optional JSON file override — the same two-layer
// shape as the teacher's server/config.go + server/main.go flag parsing.
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Config is the full set of tuning knobs from spec.md §6's table, plus
// the operator-surface additions of SPEC_FULL.md §6.
type Config struct {
	// Host is the interface both listeners bind to. Empty means "the
	// host's primary hostname" (spec.md §6); set explicitly for tests.
	Host string `json:"host"`

	SayersPort  int `json:"sayers_port"`
	HearersPort int `json:"hearers_port"`

	MaxTwitBytes int `json:"max_twit_bytes"`
	MaxTwitPool  int `json:"max_twitpool"`
	MaxSayers    int `json:"max_sayers"`
	MaxHearers   int `json:"max_hearers"`

	SayerMaxTwits           int `json:"sayer_max_twits"`
	SayerInactivitySeconds  int `json:"sayer_inactivity_seconds"`
	HearerInactivitySeconds int `json:"hearer_inactivity_seconds"`

	SocketBacklog       int `json:"socket_backlog"`
	StatsUpdateSeconds  int `json:"stats_update_seconds"`

	Log           string `json:"log"`
	StatLog       string `json:"statlog"`
	StatLogPeriod int    `json:"statlog_period"`
	Quiet         bool   `json:"quiet"`
	LogLevel      string `json:"log_level"`
}

// Default returns a Config populated with the same defaults the CLI
// flags fall back to (see cmd/twitserver/main.go).
func Default() Config {
	return Config{
		SayersPort:  1234,
		HearersPort: 1235,

		MaxTwitBytes: 512,
		MaxTwitPool:  1024,
		MaxSayers:    64,
		MaxHearers:   256,

		SayerMaxTwits:           1000,
		SayerInactivitySeconds:  60,
		HearerInactivitySeconds: 60,

		SocketBacklog:      128,
		StatsUpdateSeconds: 5,

		StatLogPeriod: 60,
		LogLevel:      "info",
	}
}

// LoadJSONOverride decodes the JSON file at path into cfg, overriding
// only the fields present in the file (encoding/json leaves absent
// fields untouched), matching the teacher's parseJSONConfig.
func LoadJSONOverride(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open config file %q", path)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return errors.Wrapf(err, "decode config file %q", path)
	}
	return nil
}

// Validate checks the invariants the rest of the system assumes hold.
func (c Config) Validate() error {
	switch {
	case c.SayersPort <= 0 || c.SayersPort > 65535:
		return errors.Errorf("sayers port %d out of range", c.SayersPort)
	case c.HearersPort <= 0 || c.HearersPort > 65535:
		return errors.Errorf("hearers port %d out of range", c.HearersPort)
	case c.SayersPort == c.HearersPort:
		return errors.New("sayers port and hearers port must differ")
	case c.MaxTwitBytes < 2:
		return errors.Errorf("max twit bytes %d must be at least 2 (1 byte + NUL)", c.MaxTwitBytes)
	case c.MaxTwitPool <= 0:
		return errors.Errorf("max twitpool %d must be positive", c.MaxTwitPool)
	case c.MaxSayers <= 0:
		return errors.Errorf("max sayers %d must be positive", c.MaxSayers)
	case c.MaxHearers <= 0:
		return errors.Errorf("max hearers %d must be positive", c.MaxHearers)
	case c.SayerMaxTwits <= 0:
		return errors.Errorf("sayer max twits %d must be positive", c.SayerMaxTwits)
	case c.SayerInactivitySeconds <= 0:
		return errors.Errorf("sayer inactivity seconds %d must be positive", c.SayerInactivitySeconds)
	case c.HearerInactivitySeconds <= 0:
		return errors.Errorf("hearer inactivity seconds %d must be positive", c.HearerInactivitySeconds)
	case c.SocketBacklog <= 0:
		return errors.Errorf("socket backlog %d must be positive", c.SocketBacklog)
	case c.StatsUpdateSeconds <= 0:
		return errors.Errorf("stats update seconds %d must be positive", c.StatsUpdateSeconds)
	}
	return nil
}
