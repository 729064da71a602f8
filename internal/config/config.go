// Package config loads server settings: built-in defaults, then an
// optional JSON file, then environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pongd/pongd/internal/game"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Addr           string   `json:"addr"`
	AllowedOrigins []string `json:"allowed_origins"`
	LogLevel       string   `json:"log_level"`

	TickRate         int     `json:"tick_rate"`
	WinScore         int     `json:"win_score"`
	CountdownSeconds int     `json:"countdown_seconds"`
	BonusChance      float64 `json:"bonus_chance"`
	PowerTicks       int     `json:"power_ticks"`
	AIRetargetTicks  int     `json:"ai_retarget_ticks"`

	// GraceSeconds is how long a finished match stays registered so its
	// final snapshot reaches every client.
	GraceSeconds float64 `json:"grace_seconds"`
	// DisconnectForfeitSeconds forfeits a player whose last channel closed
	// and who has not reconnected in time. Zero disables it.
	DisconnectForfeitSeconds float64 `json:"disconnect_forfeit_seconds"`

	TokenSecret string `json:"token_secret"`

	PersistURL            string  `json:"persist_url"`
	PersistTimeoutSeconds float64 `json:"persist_timeout_seconds"`
}

func Default() Config {
	g := game.DefaultConfig()
	return Config{
		Addr: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
			"https://localhost:8080",
			"http://127.0.0.1:8080",
			"https://127.0.0.1:8080",
		},
		LogLevel:              "info",
		TickRate:              g.TickRate,
		WinScore:              g.WinScore,
		CountdownSeconds:      g.CountdownSeconds,
		BonusChance:           g.BonusChance,
		PowerTicks:            g.PowerTicks,
		AIRetargetTicks:       g.AIRetargetTicks,
		GraceSeconds:          3,
		PersistTimeoutSeconds: 5,
	}
}

// Load builds the config. path may be empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if p := getenv("PORT"); p != "" {
		c.Addr = ":" + p
	}
	if a := getenv("PONG_ADDR"); a != "" {
		c.Addr = a
	}
	if s := getenv("PONG_SECRET"); s != "" {
		c.TokenSecret = s
	}
	if u := getenv("PONG_PERSIST_URL"); u != "" {
		c.PersistURL = u
	}
	if l := getenv("PONG_LOG_LEVEL"); l != "" {
		c.LogLevel = l
	}
	if o := getenv("PONG_ALLOWED_ORIGINS"); o != "" {
		c.AllowedOrigins = strings.Split(o, ",")
	}
}

func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr is empty", ErrInvalid)
	case c.TickRate <= 0 || c.TickRate > 240:
		return fmt.Errorf("%w: tick_rate %d out of range", ErrInvalid, c.TickRate)
	case c.WinScore <= 0:
		return fmt.Errorf("%w: win_score must be positive", ErrInvalid)
	case c.CountdownSeconds < 0:
		return fmt.Errorf("%w: countdown_seconds is negative", ErrInvalid)
	case c.BonusChance < 0 || c.BonusChance > 1:
		return fmt.Errorf("%w: bonus_chance must be in [0,1]", ErrInvalid)
	case c.PowerTicks <= 0 || c.AIRetargetTicks <= 0:
		return fmt.Errorf("%w: power_ticks and ai_retarget_ticks must be positive", ErrInvalid)
	case c.GraceSeconds < 0 || c.DisconnectForfeitSeconds < 0:
		return fmt.Errorf("%w: delays must not be negative", ErrInvalid)
	case c.TokenSecret == "":
		return fmt.Errorf("%w: token_secret (or PONG_SECRET) is required", ErrInvalid)
	}
	return nil
}

func (c Config) Game() game.Config {
	return game.Config{
		TickRate:         c.TickRate,
		WinScore:         c.WinScore,
		CountdownSeconds: c.CountdownSeconds,
		BonusChance:      c.BonusChance,
		PowerTicks:       c.PowerTicks,
		AIRetargetTicks:  c.AIRetargetTicks,
	}
}

func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

func (c Config) Grace() time.Duration {
	return seconds(c.GraceSeconds)
}

func (c Config) DisconnectForfeit() time.Duration {
	return seconds(c.DisconnectForfeitSeconds)
}

func (c Config) PersistTimeout() time.Duration {
	return seconds(c.PersistTimeoutSeconds)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
