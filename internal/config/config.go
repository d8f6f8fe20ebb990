package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment with an
// optional .env overlay.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// RoomIdleTimeout tears a room down after it has had no connected
	// players for this long.
	RoomIdleTimeout time.Duration

	// ForcedRolls, when non-empty, replaces dice with a repeating fixed
	// sequence. Development only.
	ForcedRolls []int

	// DevLog switches zap to its development encoder.
	DevLog bool
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:            ":8080",
		RoomIdleTimeout: 10 * time.Minute,
	}

	if v := os.Getenv("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("ROOM_IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("ROOM_IDLE_TIMEOUT: %w", err)
		}
		cfg.RoomIdleTimeout = d
	}
	if v := os.Getenv("DEBUG_ROLLS"); v != "" {
		rolls, err := parseRolls(v)
		if err != nil {
			return nil, fmt.Errorf("DEBUG_ROLLS: %w", err)
		}
		cfg.ForcedRolls = rolls
	}
	if v := os.Getenv("LOG_DEV"); v == "1" || strings.EqualFold(v, "true") {
		cfg.DevLog = true
	}
	return cfg, nil
}

// parseRolls parses a comma-separated list of die totals, e.g. "6,8,7".
func parseRolls(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		if n < 2 || n > 12 {
			return nil, fmt.Errorf("roll %d out of range", n)
		}
		out = append(out, n)
	}
	return out, nil
}
