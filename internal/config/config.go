package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains runtime configuration required by the service. The
// engine treats all of it as opaque immutable input supplied at boot.
type Config struct {
	ListenAddr string

	// TodoistClientSecret keys webhook signature verification.
	TodoistClientSecret string

	NotionAPIKey          string
	NotionTaskDatabaseID  string
	NotionAreasDatabaseID string

	// DBURL points at the Postgres audit store.
	DBURL string

	// GraceWindow is how long after a soft deletion an update can restore
	// the record.
	GraceWindow time.Duration
	// EventTimeout is the per-event processing deadline.
	EventTimeout time.Duration
	// RetryMaxAttempts bounds sink retries per call; RetryMaxWait is the
	// ceiling on total wall-clock time spent retrying.
	RetryMaxAttempts uint64
	RetryMaxWait     time.Duration
}

// Load reads required values from environment variables.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:            envOr("LISTEN_ADDR", ":8080"),
		TodoistClientSecret:   strings.TrimSpace(os.Getenv("TODOIST_CLIENT_SECRET")),
		NotionAPIKey:          strings.TrimSpace(os.Getenv("NOTION_API_KEY")),
		NotionTaskDatabaseID:  strings.TrimSpace(os.Getenv("NOTION_TASK_DATABASE_ID")),
		NotionAreasDatabaseID: strings.TrimSpace(os.Getenv("NOTION_AREAS_DATABASE_ID")),
		DBURL:                 strings.TrimSpace(os.Getenv("DB_URL")),
	}

	required := map[string]string{
		"TODOIST_CLIENT_SECRET":    cfg.TodoistClientSecret,
		"NOTION_API_KEY":           cfg.NotionAPIKey,
		"NOTION_TASK_DATABASE_ID":  cfg.NotionTaskDatabaseID,
		"NOTION_AREAS_DATABASE_ID": cfg.NotionAreasDatabaseID,
		"DB_URL":                   cfg.DBURL,
	}
	for name, val := range required {
		if val == "" {
			return Config{}, fmt.Errorf("%s required", name)
		}
	}

	var err error
	if cfg.GraceWindow, err = durationOr("SYNC_GRACE_WINDOW", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.EventTimeout, err = durationOr("SYNC_EVENT_TIMEOUT", 25*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RetryMaxWait, err = durationOr("SYNC_RETRY_MAX_WAIT", 20*time.Second); err != nil {
		return Config{}, err
	}

	attemptsRaw := envOr("SYNC_RETRY_ATTEMPTS", "4")
	attempts, err := strconv.ParseUint(attemptsRaw, 10, 8)
	if err != nil {
		return Config{}, fmt.Errorf("SYNC_RETRY_ATTEMPTS must be a small integer: %w", err)
	}
	cfg.RetryMaxAttempts = attempts

	return cfg, nil
}

func envOr(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func durationOr(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like \"24h\": %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}
