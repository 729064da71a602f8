package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pong.json")
	if err := os.WriteFile(path, []byte(`{"win_score": 3, "token_secret": "file", "grace_seconds": 0.5}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "9000")
	t.Setenv("PONG_SECRET", "env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WinScore != 3 {
		t.Errorf("win score = %d", cfg.WinScore)
	}
	if cfg.TokenSecret != "env" {
		t.Errorf("env should override file secret, got %q", cfg.TokenSecret)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.Grace() != 500*time.Millisecond {
		t.Errorf("grace = %v", cfg.Grace())
	}
	if cfg.TickRate != 60 || cfg.Game().PowerTicks != 480 {
		t.Errorf("defaults not kept: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no secret", func(c *Config) { c.TokenSecret = "" }},
		{"zero tick", func(c *Config) { c.TickRate = 0 }},
		{"bad chance", func(c *Config) { c.BonusChance = 2 }},
		{"negative grace", func(c *Config) { c.GraceSeconds = -1 }},
		{"zero win", func(c *Config) { c.WinScore = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.TokenSecret = "s"
			tt.mutate(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("got %v, want ErrInvalid", err)
			}
		})
	}

	c := Default()
	c.TokenSecret = "s"
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults with secret should validate: %v", err)
	}
	if c.TickInterval() != time.Second/60 {
		t.Fatalf("tick interval = %v", c.TickInterval())
	}
}

func TestApplyEnvOrigins(t *testing.T) {
	c := Default()
	c.applyEnv(func(k string) string {
		if k == "PONG_ALLOWED_ORIGINS" {
			return "https://a.example,https://b.example"
		}
		return ""
	})
	if len(c.AllowedOrigins) != 2 || c.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins = %v", c.AllowedOrigins)
	}
}
