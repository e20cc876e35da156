// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/astra/internal/api"
	"github.com/starford/astra/internal/appservice"
	"github.com/starford/astra/internal/mcpserver"
	"github.com/starford/astra/internal/script"
	"github.com/starford/astra/internal/sse"
	"github.com/starford/astra/internal/storage"
	"github.com/starford/astra/internal/voice"
)

func newApplication(opts []Option, logOut io.Writer) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	return app, nil
}

func (a *application) openStore() (storage.Store, error) {
	store, err := storage.Open(a.config.Store.Driver, a.config.Store.Path, storage.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return store, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("store_path", cfg.Store.Path),
		slog.Bool("voice_enabled", cfg.Voice.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := app.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := appservice.New(store,
		appservice.WithEmitter(broker),
		appservice.WithLogger(logger))

	var vh *api.VoiceHandler
	if cfg.Voice.Enabled {
		relay := voice.NewRelay(broker, logger)
		session := voice.NewSession(relay, svc, logger,
			voice.WithSpokenReplies(cfg.Voice.SpeakConfirmations),
			voice.WithReplyPublisher(broker))
		defer session.Close()
		vh = api.NewVoiceHandler(svc, relay, session)
	}

	apiRouter := api.NewRouter(svc, vh, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := store.List(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// External edits to the app directory reach clients as SSE events.
	if cfg.Store.Driver == storage.DriverFS {
		g.Go(func() error {
			err := storage.Watch(gCtx, cfg.Store.Path, logger, func(kind, id string) {
				broker.PublishAppEvent(kind, id)
			})
			if err != nil {
				logger.Warn("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// ServeMCP serves the MCP tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	store, err := app.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	svc := appservice.New(store, appservice.WithLogger(app.logger))
	app.logger.Info("MCP server starting", slog.String("store_path", app.config.Store.Path))
	return mcpserver.New(svc).ServeStdio()
}

// ApplyScript runs every line of s against its app and writes one result
// line per utterance to out. When the header names no app, a new one is
// created from the header name. Refused and unrecognized lines are reported,
// not treated as errors.
func ApplyScript(ctx context.Context, s *script.Script, out io.Writer, opts ...Option) (string, error) {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return "", err
	}
	store, err := app.openStore()
	if err != nil {
		return "", err
	}
	defer store.Close()

	svc := appservice.New(store, appservice.WithLogger(app.logger))

	appID := s.Header.App
	if appID == "" {
		bp, err := svc.CreateApp(ctx, s.Header.Name)
		if err != nil {
			return "", fmt.Errorf("create app: %w", err)
		}
		appID = bp.ID
		fmt.Fprintf(out, "created %s (%s)\n", bp.ID, bp.Name)
	}

	active := s.Header.ActivePage
	for _, line := range s.Lines {
		reply, err := svc.Submit(ctx, appID, line.Text, active)
		if err != nil {
			return appID, fmt.Errorf("line %d: %w", line.Number, err)
		}
		active = reply.ActivePageID

		status := "skipped"
		if reply.Applied {
			status = "applied"
		}
		fmt.Fprintf(out, "%d\t%s\t%s\n", line.Number, status, reply.Message)
	}
	return appID, nil
}
