package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/tmirror/todoist-notion-sync/internal/config"
	"github.com/tmirror/todoist-notion-sync/internal/httpserver"
	"github.com/tmirror/todoist-notion-sync/internal/notion"
	"github.com/tmirror/todoist-notion-sync/internal/signature"
	"github.com/tmirror/todoist-notion-sync/internal/store"
	"github.com/tmirror/todoist-notion-sync/internal/sync"
)

// main boots the service: config → audit store → Notion client →
// setup validation → sync engine → HTTP server.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load runtime config from environment.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// Connect to the audit store (Postgres) using a connection pool.
	db, err := store.NewPostgresStore(cfg.DBURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Ensure the audit table exists so a fresh database needs no manual migration.
	if err := db.EnsureSchema(); err != nil {
		log.Fatal(err)
	}

	notionClient := notion.NewClient(notion.ClientOptions{
		APIKey:          cfg.NotionAPIKey,
		TaskDatabaseID:  cfg.NotionTaskDatabaseID,
		AreasDatabaseID: cfg.NotionAreasDatabaseID,
		Logger:          logger,
	})

	// Fail at boot, not at first event, when the databases are not set up
	// the way the sync engine expects.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := notionClient.ValidateSetup(ctx); err != nil {
		log.Fatal(err)
	}

	retry := sync.DefaultRetryConfig()
	retry.MaxRetries = cfg.RetryMaxAttempts
	retry.MaxElapsed = cfg.RetryMaxWait

	engine := sync.NewOrchestrator(sync.Options{
		Verifier: signature.NewVerifier(cfg.TodoistClientSecret),
		Client:   notionClient,
		Policy:   sync.NewPolicy(cfg.GraceWindow),
		Audit:    db,
		Retry:    retry,
		Logger:   logger,
	})

	router := httpserver.NewRouter(cfg, engine, db)

	logger.Info("server started", "addr", cfg.ListenAddr)
	log.Fatal(router.Run(cfg.ListenAddr))
}
