package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/rss-curator/app/api"
	"github.com/lysyi3m/rss-curator/app/cfg"
	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/enrich"
	"github.com/lysyi3m/rss-curator/app/feed"
	"github.com/lysyi3m/rss-curator/app/images"
	"github.com/lysyi3m/rss-curator/app/logging"
	"github.com/lysyi3m/rss-curator/app/tasks"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	appConfig, err := cfg.Load(os.Args[1:])
	if err != nil {
		return err
	}
	if appConfig == nil {
		// Help was shown
		return nil
	}

	logger, logCloser := logging.New(logging.Options{
		Debug:      appConfig.Debug,
		JSON:       appConfig.LogJSON,
		File:       appConfig.LogFile,
		MaxSize:    appConfig.LogMaxSize,
		MaxBackups: appConfig.LogMaxBackups,
		MaxAge:     appConfig.LogMaxAge,
		Compress:   appConfig.LogCompress,
	})
	defer logCloser.Close()

	logger.Info("Starting RSS Curator", "version", appConfig.Version, "db_driver", appConfig.DBDriver)

	db, err := database.NewConnection(database.Options{
		Driver:   appConfig.DBDriver,
		Path:     appConfig.DBPath,
		Host:     appConfig.DBHost,
		Port:     appConfig.DBPort,
		User:     appConfig.DBUser,
		Password: appConfig.DBPassword,
		Name:     appConfig.DBName,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, applied, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Database ready", "schema_version", version, "migrated", applied)

	configCache := feed.NewConfigCache(appConfig.FeedsFile, logger.With("component", "sources"))
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}
	logger.Info("Sources loaded", "file", appConfig.FeedsFile, "count", configCache.GetSourceCount())

	httpClient := &http.Client{}

	normalizer := feed.NewNormalizer(httpClient, feed.NewParser(), feed.NewContentExtractor(),
		appConfig.UserAgent, appConfig.FetchTimeout, logger.With("component", "normalizer"))
	tracker := feed.NewTracker(normalizer)

	enricher := enrich.NewClient(appConfig.OpenAIAPIKey, appConfig.OpenAIBaseURL, appConfig.OpenAIModel,
		appConfig.EnrichMaxChars, httpClient, logger.With("component", "enricher"))
	gate := enrich.NewGate(enricher, enrich.NewRelevanceFromConfig(configCache.Relevance()),
		appConfig.EnrichTimeout, logger.With("component", "gate"))

	registry := images.NewRegistry()
	if err := registry.Load(configCache.GetSources(), httpClient, appConfig.UserAgent, appConfig.FetchTimeout); err != nil {
		return fmt.Errorf("failed to configure image strategies: %w", err)
	}

	feedRepo := database.NewFeedRepository(db)
	itemRepo := database.NewItemRepository(db)

	scheduler := tasks.NewScheduler(configCache, tracker, gate, registry, feedRepo, itemRepo, tasks.Config{
		WorkerCount: appConfig.WorkerCount,
		MinInterval: appConfig.PollMin,
		MaxInterval: appConfig.PollMax,
	}, logger.With("component", "scheduler"))
	scheduler.Start()
	defer scheduler.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if appConfig.Port == "" {
		logger.Info("Status API disabled (PORT not set)")
		<-ctx.Done()
		logger.Info("Shutting down")
		return nil
	}

	reload := func() error {
		if err := configCache.Run(); err != nil {
			return err
		}
		gate.SetRelevance(enrich.NewRelevanceFromConfig(configCache.Relevance()))
		return registry.Load(configCache.GetSources(), httpClient, appConfig.UserAgent, appConfig.FetchTimeout)
	}

	handler := api.NewHandler(configCache, feedRepo, itemRepo, scheduler, reload, feed.Channel{
		Title:       "RSS Curator",
		Link:        appConfig.BaseUrl,
		Description: "Curated items on AIGC, graphics and vision",
		Version:     appConfig.Version,
	})

	httpServer := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      api.NewServer(handler, appConfig.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "port", appConfig.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		logger.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	} else {
		logger.Info("HTTP server stopped")
	}

	return nil
}
