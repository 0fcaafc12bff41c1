package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/actionwatch/internal/adapter/driven/ghauth"
	githubadapter "github.com/ericfisherdev/actionwatch/internal/adapter/driven/github"
	"github.com/ericfisherdev/actionwatch/internal/adapter/driven/notify"
	sqliteadapter "github.com/ericfisherdev/actionwatch/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/actionwatch/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/actionwatch/internal/adapter/driving/web"
	"github.com/ericfisherdev/actionwatch/internal/application"
	"github.com/ericfisherdev/actionwatch/internal/config"
	"github.com/ericfisherdev/actionwatch/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration and install the process logger.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"github_api_url", cfg.GitHubAPIURL,
		"fetch_timeout", cfg.FetchTimeout,
		"telegram", cfg.HasTelegram(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", db.Path())

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire the settings store, sealing the token when a key is configured.
	var cipher *sqliteadapter.Cipher
	if cfg.SecretKey != "" {
		cipher, err = sqliteadapter.NewCipherFromHex(cfg.SecretKey)
		if err != nil {
			return err
		}
	} else {
		slog.Warn("ACTIONWATCH_SECRET_KEY not set, github token will be stored unencrypted")
	}
	settingsStore := sqliteadapter.NewSettingsRepo(db, cipher)

	if cfg.GHAuthFallback {
		host := ghauth.HostFromAPIURL(cfg.GitHubAPIURL)
		if _, err := ghauth.SeedToken(ctx, settingsStore, host, ghauth.DefaultLookup, logger); err != nil {
			slog.Warn("gh token fallback failed", "error", err)
		}
	}

	// 6. Create GitHub client.
	ghClient, err := githubadapter.NewClient(cfg.GitHubAPIURL)
	if err != nil {
		return err
	}

	// 7. Create notification sinks.
	sinks := []driven.NotificationSink{notify.NewLogSink(logger)}
	if cfg.HasTelegram() {
		telegram, err := notify.NewTelegramSink(notify.TelegramConfig{
			Token:  cfg.TelegramToken,
			ChatID: cfg.TelegramChatID,
		})
		if err != nil {
			return err
		}
		sinks = append(sinks, telegram)
	}
	notifier := notify.NewFanout(logger, cfg.NotifyRate, sinks...)

	// 8. Create and start poll service.
	pollSvc := application.NewPollService(
		settingsStore,
		ghClient,
		notifier,
		application.NewStateStore(),
		cfg.FetchTimeout,
	)
	pollDone := pollSvc.Run(ctx)

	// 9. Register API and web routes.
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, httphandler.NewHandler(pollSvc, logger))
	webhandler.RegisterRoutes(mux, webhandler.NewHandler(pollSvc, logger))

	handler := httphandler.ApplyMiddleware(mux, logger)

	// Request contexts derive from ctx, so open status streams end on shutdown.
	srv := httphandler.NewServer(ctx, cfg.ListenAddr, handler)

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	// 10. Tell systemd we are ready (no-op outside a notify unit).
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		slog.Warn("sd_notify ready failed", "error", err)
	}
	slog.Info("actionwatch started", "listen_addr", cfg.ListenAddr)

	// 11. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	// 12. Graceful shutdown with 10s timeout to drain open requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	// 13. Wait for the poll loop so no cycle touches the database after it closes.
	<-pollDone

	slog.Info("shutdown complete")
	return nil
}
