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

	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahmedandnoor/HappyClothify/internal/auth"
	"github.com/ahmedandnoor/HappyClothify/internal/config"
	"github.com/ahmedandnoor/HappyClothify/internal/handlers"
	"github.com/ahmedandnoor/HappyClothify/internal/notify"
	"github.com/ahmedandnoor/HappyClothify/internal/store"
	"github.com/ahmedandnoor/HappyClothify/internal/supervisor"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Using TextHandler for console readability
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	// 2. Init Store
	db, err := store.Open(cfg.Store.Driver, cfg.Store.DataDir, cfg.Store.DBPath)
	if err != nil {
		slog.Error("Failed to initialize store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3. Session Setup
	sessionStore := sessions.NewCookieStore(cfg.SessionKey, cfg.SessionEncryptionKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.CookieSecure
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Path = "/"
	if cfg.CookieDomain != "" {
		sessionStore.Options.Domain = cfg.CookieDomain
	}

	gate, err := auth.NewGate(db, sessionStore, cfg.AdminPassword, cfg.AdminPasswordHash)
	if err != nil {
		slog.Error("Failed to set up authentication", "error", err)
		os.Exit(1)
	}

	// 4. Init Templates
	templateFS := handlers.DefaultTemplates()
	if cfg.TemplatesDir != "" {
		templateFS = os.DirFS(cfg.TemplatesDir)
	}
	templates, err := handlers.LoadTemplates(templateFS)
	if err != nil {
		slog.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	// 5. Routes
	mux := handlers.NewRouter(handlers.Deps{
		Store:          db,
		Gate:           gate,
		Templates:      templates,
		StaticDir:      cfg.StaticDir,
		UploadDir:      cfg.UploadDir,
		LoginRateLimit: cfg.LoginRateLimit,
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// 6. Middleware Setup
	handler := handlers.Chain(mux, gate, handlers.ChainOptions{
		CSRFKey: cfg.CSRFKey,
		Secure:  cfg.CookieSecure,
		// Trust local development origins
		TrustedOrigins: []string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"},
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 7. Order notifications
	var notifier notify.Notifier = notify.LogNotifier{Logger: logger}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
	} else {
		slog.Warn("WEBHOOK_URL not set. Order notifications will only be logged.")
	}
	watcher := notify.NewWatcher(db, notifier, cfg.Notify.PollInterval, logger)

	// 8. Supervise both until a signal arrives
	tree := supervisor.NewTree(logger, supervisor.DefaultTreeConfig())
	tree.AddWorker(watcher)
	tree.AddAPIService(supervisor.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Server starting", "port", cfg.Port, "store", cfg.Store.Driver, "poll_interval", cfg.Notify.PollInterval)
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Supervisor stopped", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited gracefully.")
}
