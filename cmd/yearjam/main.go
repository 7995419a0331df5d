// Command yearjam runs the guess-the-year game server.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/yearjam/yearjam/internal/archive"
	"github.com/yearjam/yearjam/internal/config"
	"github.com/yearjam/yearjam/internal/db"
	"github.com/yearjam/yearjam/internal/logging"
	"github.com/yearjam/yearjam/internal/picker"
	"github.com/yearjam/yearjam/internal/web"
	"github.com/yearjam/yearjam/pkg/metrics"
	webfs "github.com/yearjam/yearjam/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.Setup(os.Stdout, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}

	ctx := context.Background()

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	m := metrics.NewManager()

	catalog := archive.NewClient(archive.Config{
		SearchURL:   cfg.SearchURL,
		MetadataURL: cfg.MetadataURL,
		DownloadURL: cfg.DownloadURL,
		Collection:  cfg.Collection,
		OnRequest:   m.CatalogRequest,
	})

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}
	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:             cfg.Addr,
		YearStart:        cfg.YearStart,
		YearEnd:          cfg.YearEnd,
		LeaderboardLimit: cfg.LeaderboardLimit,
		Selector: picker.New(catalog, cfg.YearStart, cfg.YearEnd,
			picker.WithMinLongSeconds(float64(cfg.MinTrackSeconds))),
		Catalog:          catalog,
		Users:            database.Users(),
		Scores:           database.Scores(),
		Sessions:         web.NewDBSessionStore(database),
		Metrics:          m,
		Logger:           logger,
		TemplatesFS:      templates,
		StaticFS:         static,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run()
}
