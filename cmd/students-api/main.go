// main is the entry point of the students service.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Open (and set up) the SQLite database, seed classes and sections
//  4. Put the Redis reference cache in front of it when configured
//  5. Build the verification mailer and the students service
//  6. Register the HTTP routes and start the server in a goroutine
//  7. Block until an OS signal arrives, then shut down gracefully
//
// Steps 3 to 7 run inside run(), which returns an error instead of exiting
// so that the database and Redis handles are always closed.
//
// RUNNING THE SERVER:
//
//	go run ./cmd/students-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/students-api
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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/aanand-mishra/school-students/internal/config"
	"github.com/aanand-mishra/school-students/internal/http/handlers/student"
	"github.com/aanand-mishra/school-students/internal/mail"
	"github.com/aanand-mishra/school-students/internal/service/students"
	"github.com/aanand-mishra/school-students/internal/storage/cache"
	"github.com/aanand-mishra/school-students/internal/storage/sqlite"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	// Everything that holds a resource lives in run, so its deferred Close
	// calls execute before the process exits with a failure code.
	if err := run(cfg, log); err != nil {
		log.Error("students-api stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}

// ─────────────────────────────────────────────────────────────────────────────
// run builds the dependency graph, serves HTTP and blocks until either an OS
// signal arrives or the server fails. Resources are released on every return
// path.
// ─────────────────────────────────────────────────────────────────────────────
func run(cfg *config.Config, log *slog.Logger) error {
	log.Info("starting students-api",
		slog.String("env", cfg.Env),
		slog.String("version", "1.0.0"),
	)

	storage, err := sqlite.New(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("initialise storage: %w", err)
	}
	defer storage.Close()

	if err := storage.SeedReferences(context.Background(),
		cfg.ReferenceData.Classes, cfg.ReferenceData.Sections); err != nil {
		return fmt.Errorf("seed reference data: %w", err)
	}

	log.Info("storage initialised", slog.String("path", cfg.StoragePath))

	// Class and section lookups go through Redis only when it is configured.
	var refs students.ReferenceFinder = storage
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(context.Background()).Err(); err != nil {
			// Not fatal: the cache falls back to the database per lookup.
			log.Warn("redis unreachable at startup", slog.String("error", err.Error()))
		}
		refs = cache.NewReferences(storage, rdb, cfg.Redis.TTL, log)
		log.Info("reference cache enabled", slog.String("address", cfg.Redis.Addr))
	}

	verifier := mail.NewVerifier(mail.VerifierArgs{
		Tokens:  storage,
		Sender:  mail.NewSMTPSender(cfg.SMTP),
		BaseURL: cfg.Verification.BaseURL,
		TTL:     cfg.Verification.TokenTTL,
		Logger:  log,
	})

	svc := students.New(students.Args{
		Repo:     storage,
		Refs:     refs,
		Users:    storage,
		Notifier: verifier,
		Logger:   log,
	})

	// RequestID tags every request, RealIP honours X-Forwarded-For from the
	// proxy, and Recoverer turns a handler panic into a 500.
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	student.Register(router, svc)

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	// ListenAndServe blocks, so it runs in its own goroutine and reports a
	// failure back through serveErr. Buffered so the goroutine never leaks
	// when nobody is left to receive.
	serveErr := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		// ListenAndServe returns http.ErrServerClosed after Shutdown.
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve http: %w", err)
	case <-done:
	}

	log.Info("shutdown signal received, stopping server...")

	// Shutdown stops accepting connections and waits for in-flight requests,
	// but no longer than the timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// setupLogger returns a text logger at DEBUG for development and JSON for
// staging/prod, which log aggregators ingest directly.
// ─────────────────────────────────────────────────────────────────────────────
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}
}
