package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thientv98/slack-oauth/internal/config"
	"github.com/thientv98/slack-oauth/internal/integrations/slack"
	"github.com/thientv98/slack-oauth/internal/jobs"
	"github.com/thientv98/slack-oauth/internal/logging"
	"github.com/thientv98/slack-oauth/internal/server"
	"github.com/thientv98/slack-oauth/internal/services"
	"github.com/thientv98/slack-oauth/internal/storage"
)

const (
	retryDelay      = 30 * time.Second
	shutdownTimeout = 30 * time.Second
	slackAPITimeout = 20 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	logging.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		return nil, err
	}
	for _, warning := range cfg.Warnings() {
		slog.Warn(warning)
	}
	return cfg, nil
}

// openStore connects to the configured store. Postgres is retried every
// retryDelay with no attempt limit, until the database is reachable or ctx is
// done.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.UsesMemoryStore() {
		slog.Warn("Using in-memory store; installations are lost on restart")
		return storage.NewMemoryStore(), nil
	}

	for {
		db, err := storage.OpenPostgres(ctx, cfg.DatabaseURL, cfg.DatabaseSSLMode)
		if err == nil {
			store := storage.NewPostgresStore(db)
			if err = store.InitSchema(ctx); err == nil {
				return store, nil
			}
			store.Close()
		}

		slog.Error("Failed to initialize database, retrying", "error", err, "retry_in", retryDelay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}

func newTranslator(cfg *config.Config) services.Translator {
	if cfg.OpenAIAPIKey == "" {
		slog.Info("OPENAI_API_KEY not set, using echo translator")
		return services.Instrumented{Translator: services.NewEchoTranslator()}
	}
	slog.Info("Using OpenAI translator", "model", cfg.OpenAIModel)
	return services.Instrumented{Translator: services.NewOpenAITranslator(cfg.OpenAIAPIKey, cfg.OpenAIModel)}
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.Info("Starting Slack translation app", slog.String("environment", cfg.Environment))

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close store", "error", err)
		}
	}()

	httpClient := &http.Client{Timeout: slackAPITimeout}
	router := server.NewRouter(server.Dependencies{
		Config:       cfg,
		Store:        store,
		Translator:   newTranslator(cfg),
		SlackClients: slack.NewClientFactory(cfg.SlackAPIURL, httpClient),
		OAuthClient:  httpClient,
	})

	reporter := jobs.NewStatsReporter(store)
	go reporter.Start(ctx)
	defer reporter.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Server starting", slog.String("port", cfg.Port), slog.String("base_url", cfg.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			slog.Error("Server failed to start", "error", err)
			return err
		}
	case <-ctx.Done():
	}

	slog.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}

	slog.Info("Server exited gracefully")
	return nil
}
