package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig carries every recognized option. All values come from the
// environment; unset options fall back to the defaults below.
type AppConfig struct {
	Port      string
	StaticDir string

	// Comma-separated browser origins allowed to open the websocket.
	// Empty means same-origin only checks are skipped entirely.
	AllowedOrigins []string

	MaxSymbolsPerRole int
	MoveTimeout       time.Duration
	RoomExpiry        time.Duration
	MaxRoomIDLength   int

	RateLimitWindow     time.Duration
	MaxActionsPerWindow int

	// Optional shared-state backends. Empty disables them: the limiter then
	// runs in-process and finished games are not archived.
	RedisURL    string
	DatabaseURL string

	// Optional directory of YAML files overriding the embedded message
	// catalog.
	MsgTemplateDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:                "8080",
		StaticDir:           "web",
		MaxSymbolsPerRole:   3,
		MoveTimeout:         30 * time.Second,
		RoomExpiry:          time.Hour,
		MaxRoomIDLength:     50,
		RateLimitWindow:     time.Second,
		MaxActionsPerWindow: 5,
	}

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("STATIC_DIR")); v != "" {
		cfg.StaticDir = v
	}
	if v := strings.TrimSpace(os.Getenv("ORIGIN_ALLOWLIST")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv("MAX_SYMBOLS_PER_ROLE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSymbolsPerRole = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MOVE_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MoveTimeout = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("ROOM_EXPIRY_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RoomExpiry = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_ROOM_ID_LENGTH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRoomIDLength = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitWindow = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_ACTIONS_PER_WINDOW")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxActionsPerWindow = n
		}
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MsgTemplateDir = strings.TrimSpace(os.Getenv("MSG_TEMPLATE_DIR"))

	// both roles at cap must still leave at least one free cell on 9
	if cfg.MaxSymbolsPerRole > 4 {
		return nil, fmt.Errorf("MAX_SYMBOLS_PER_ROLE must be between 1 and 4, got %d", cfg.MaxSymbolsPerRole)
	}

	return cfg, nil
}
