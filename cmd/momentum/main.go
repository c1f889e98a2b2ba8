// Command momentum runs the accountability coach behind the Twilio WhatsApp
// webhook.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/momentumhq/momentum/coach"
	"github.com/momentumhq/momentum/config"
	"github.com/momentumhq/momentum/logging"
	"github.com/momentumhq/momentum/messaging"
	"github.com/momentumhq/momentum/model"
	anthropicmodel "github.com/momentumhq/momentum/model/anthropic"
	openaimodel "github.com/momentumhq/momentum/model/openai"
	"github.com/momentumhq/momentum/session"
	"github.com/momentumhq/momentum/store"
	"github.com/momentumhq/momentum/webhook"

	_ "modernc.org/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "momentum:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(logging.Config{
		Level:  parseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})

	// A single shared handle keeps records and transcripts in one file and
	// serializes SQLite writes.
	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()

	records, err := store.NewSQLiteStoreWithDB(db)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	transcripts, err := session.NewSQLiteStoreWithDB(db)
	if err != nil {
		return fmt.Errorf("open transcript store: %w", err)
	}

	sender, err := buildSender(cfg, logger)
	if err != nil {
		return err
	}

	llm, err := buildModel(cfg)
	if err != nil {
		return err
	}

	c := coach.New(llm, records, transcripts, sender, func(o *coach.Options) {
		o.FlowID = cfg.WhatsAppFlowID
		o.Logger = logger
	})

	srv := webhook.NewServer(c, sender, records, func(o *webhook.Options) {
		o.Logger = logger
		o.ConfigCheck = cfg.Readiness
	})

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.listening", "addr", cfg.ListenAddr, "provider", cfg.ModelProvider)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("server.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildSender wires the Twilio WhatsApp channel, or an in-memory recorder when
// credentials are absent (local development).
func buildSender(cfg config.Config, logger logging.Logger) (messaging.Sender, error) {
	if !cfg.TwilioConfigured() {
		logger.Warn("messaging.twilio.unconfigured", "detail", "using in-memory sender")
		return messaging.NewMemorySender(), nil
	}
	return messaging.NewTwilioSender(messaging.TwilioOptions{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		FromNumber: cfg.TwilioWhatsAppNumber,
		Logger:     logger,
	}), nil
}

func buildModel(cfg config.Config) (model.Model, error) {
	switch cfg.ModelProvider {
	case "openai":
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.ModelName != "" {
				o.Model = cfg.ModelName
			}
		}), nil
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.ModelName != "" {
				o.Model = anthropic.Model(cfg.ModelName)
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.ModelProvider)
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
