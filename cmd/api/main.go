// cmd/api/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"photoedit-backend/internal/handler"
	"photoedit-backend/internal/presence"
	"photoedit-backend/internal/service"
	"photoedit-backend/internal/store"
)

func main() {
	// Load .env in dev only — production injects env vars through infra.
	if os.Getenv("APP_ENV") != "production" {
		godotenv.Load()
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// ── Store (swappable: in-memory today for single-process, Postgres in prod) ──
	var (
		st store.Store
		db *sql.DB
	)
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		var err error
		db, err = sql.Open("postgres", dbURL)
		if err != nil {
			logger.Error("failed to open DB", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		// Connection pool — prevents overwhelming DB under concurrent load.
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// Verify connection at startup — fail fast rather than accepting traffic.
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pingCancel()
		if err := db.PingContext(pingCtx); err != nil {
			logger.Error("database ping failed", "error", err)
			os.Exit(1)
		}

		st = store.NewPostgresStore(db)
		logger.Info("using postgres store")
	} else {
		st = store.NewMemoryStore()
		logger.Warn("DATABASE_URL not set — using in-memory store, state is lost on restart")
	}

	// ── Presence hub ──────────────────────────────────────────────────────────
	hub := presence.NewHub(presence.Config{
		InactivityTimeout: envDuration("PRESENCE_TIMEOUT", presence.DefaultInactivityTimeout),
		ActivityRetention: envInt("ACTIVITY_RETENTION", presence.DefaultActivityRetention),
	}, logger)

	// ── Services & Handlers ───────────────────────────────────────────────────
	sessionService := service.NewSessionService(st, hub, logger)
	editorHandler := handler.NewEditorHandler(sessionService, hub, logger)

	// ── Router ────────────────────────────────────────────────────────────────
	r := mux.NewRouter()

	// Health check — required by load balancers and Kubernetes liveness probes.
	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		if db != nil {
			if err := db.PingContext(req.Context()); err != nil {
				http.Error(w, `{"status":"unhealthy"}`, http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// API routes — versioned so parent product can call /api/v1/* without conflicts.
	api := r.PathPrefix("/api/v1").Subrouter()
	editorHandler.Register(api)

	// ── CORS — read from env, not hardcoded ───────────────────────────────────
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173"
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{allowedOrigins}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		// X-User-ID / X-User-Role: injected by the API gateway in production.
		handlers.AllowedHeaders([]string{"Content-Type", "X-User-ID", "X-User-Role", "Authorization"}),
	)

	// ── HTTP Server with timeouts ─────────────────────────────────────────────
	// Without timeouts, a slow client can hold a connection open forever.
	port := os.Getenv("PORT")
	if port == "" {
		port = "8083"
	}
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      cors(r),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websocket presence connections stay open
		IdleTimeout:  60 * time.Second,
	}

	// ── Lifecycle: hub reaper + server under one group ────────────────────────
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		logger.Info("editor service running", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// When infra sends SIGTERM during deploy/scale-down, finish
		// in-flight requests before exiting — no commits dropped mid-save.
		<-ctx.Done()
		logger.Info("shutdown signal received — draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped cleanly")
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
