// internal/config/config.go

// Package config loads process settings from the environment, after merging
// a .env file when one is present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every tunable of the server.
type Config struct {
	RedisAddr   string
	DatabaseURL string

	TurnDuration  time.Duration
	StallInterval time.Duration
	BotDelayMin   time.Duration
	BotDelayMax   time.Duration
	LeaseTTL      time.Duration

	LogLevel logrus.Level
	// Seed fixes the deal of new matches; zero picks one at random.
	Seed uint64
}

// Default returns the settings used when the environment is silent.
func Default() Config {
	return Config{
		TurnDuration:  30 * time.Second,
		StallInterval: 5 * time.Second,
		BotDelayMin:   2500 * time.Millisecond,
		BotDelayMax:   3000 * time.Millisecond,
		LeaseTTL:      15 * time.Second,
		LogLevel:      logrus.InfoLevel,
	}
}

// Load reads .env from the working directory, if any, and then the
// environment. Variables already set in the environment win over .env.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment alone.
func FromEnv() (Config, error) {
	cfg := Default()
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"TURN_DURATION", &cfg.TurnDuration},
		{"STALL_INTERVAL", &cfg.StallInterval},
		{"BOT_DELAY_MIN", &cfg.BotDelayMin},
		{"BOT_DELAY_MAX", &cfg.BotDelayMax},
		{"LEASE_TTL", &cfg.LeaseTTL},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		lvl, err := logrus.ParseLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = lvl
	}
	if v := os.Getenv("SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("SEED: %w", err)
		}
		cfg.Seed = seed
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the host cannot run with.
func (c Config) Validate() error {
	switch {
	case c.StallInterval <= 0:
		return errors.New("STALL_INTERVAL must be positive")
	case c.LeaseTTL <= c.StallInterval:
		return errors.New("LEASE_TTL must exceed STALL_INTERVAL")
	case c.BotDelayMin < 0 || c.BotDelayMax < c.BotDelayMin:
		return errors.New("bot delay range is empty")
	case c.TurnDuration < 0:
		return errors.New("TURN_DURATION must not be negative")
	}
	return nil
}
