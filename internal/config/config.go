package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// APIBaseURL is the catalogue backend's base URL.
	APIBaseURL string

	// Token is the bearer token for authenticated requests. Empty means
	// guest access.
	Token string

	// UserID is the authenticated user's id, used to scope per-user
	// caches. Empty means guest.
	UserID string

	// PageSize is the number of activities fetched per feed page.
	PageSize int

	// PrefetchTTL is how long prefetched detail payloads stay valid.
	PrefetchTTL time.Duration

	// PrefetchMaxEntries bounds the prefetch cache.
	PrefetchMaxEntries int

	// HoverDelay is the prefetch debounce delay.
	HoverDelay time.Duration

	// StreamURL is the websocket endpoint of the live activity stream.
	// Empty disables the stream.
	StreamURL string

	// StatePath is the sqlite file holding local persistent state.
	StatePath string
}

// Load reads configuration from a .env file (if present) and environment
// variables with sensible defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	apiURL := os.Getenv("ANILOG_API_URL")
	if apiURL == "" {
		return nil, fmt.Errorf("ANILOG_API_URL is required")
	}

	pageSize := 50
	if v := os.Getenv("ANILOG_PAGE_SIZE"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("invalid ANILOG_PAGE_SIZE %q", v)
		}
		pageSize = parsed
	}

	prefetchTTL := 5 * time.Minute
	if v := os.Getenv("ANILOG_PREFETCH_TTL"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ANILOG_PREFETCH_TTL: %w", err)
		}
		prefetchTTL = parsed
	}

	prefetchMax := 256
	if v := os.Getenv("ANILOG_PREFETCH_MAX"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ANILOG_PREFETCH_MAX %q", v)
		}
		prefetchMax = parsed
	}

	hoverDelay := 300 * time.Millisecond
	if v := os.Getenv("ANILOG_HOVER_DELAY"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ANILOG_HOVER_DELAY: %w", err)
		}
		hoverDelay = parsed
	}

	statePath := os.Getenv("ANILOG_STATE_PATH")
	if statePath == "" {
		statePath = "anilog.db"
	}

	return &Config{
		APIBaseURL:         apiURL,
		Token:              os.Getenv("ANILOG_TOKEN"),
		UserID:             os.Getenv("ANILOG_USER_ID"),
		PageSize:           pageSize,
		PrefetchTTL:        prefetchTTL,
		PrefetchMaxEntries: prefetchMax,
		HoverDelay:         hoverDelay,
		StreamURL:          os.Getenv("ANILOG_STREAM_URL"),
		StatePath:          statePath,
	}, nil
}
