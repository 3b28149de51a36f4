// Package api provides the HTTP server for reveal.
//
// It exposes the greeting, time and user directory endpoints, plus the visitor
// endpoints that keep the per-visitor "visited" flag and a read-only view of the
// reveal choreography.
package api

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
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nampox/reveal/internal/flow"
	"github.com/nampox/reveal/internal/lockfile"
	"github.com/nampox/reveal/internal/scheduler"
	"github.com/nampox/reveal/internal/store"
)

// Default configuration constants
const (
	// DefaultAddr is the listen address when none is configured
	DefaultAddr = ":8080"
	// DefaultServerLabel is reported by GET /time
	DefaultServerLabel = "Go Serverless"
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout = 10 * time.Second
)

// vietnamZone is the fixed +07:00 offset used for local time.
var vietnamZone = time.FixedZone("ICT", 7*60*60)

// Opts holds configuration for the API server.
type Opts struct {
	Addr         string
	ServerLabel  string
	StateDir     string
	Now          func() time.Time
	Choreography *flow.Config
	Retention    time.Duration // Zero disables visitor pruning
	PruneCron    string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithServerLabel sets the label reported by GET /time.
func WithServerLabel(label string) Option {
	return func(o *Opts) { o.ServerLabel = label }
}

// WithStateDir makes Run hold the state directory lock while serving.
func WithStateDir(dir string) Option {
	return func(o *Opts) { o.StateDir = dir }
}

// WithNow overrides the clock (for tests).
func WithNow(now func() time.Time) Option {
	return func(o *Opts) { o.Now = now }
}

// WithChoreography sets the choreography served by GET /choreography.
func WithChoreography(cfg flow.Config) Option {
	return func(o *Opts) { o.Choreography = &cfg }
}

// WithVisitorRetention makes Run prune unfinished visitors older than keep on
// the given cron schedule (DefaultPruneSchedule when empty).
func WithVisitorRetention(keep time.Duration, schedule string) Option {
	return func(o *Opts) {
		o.Retention = keep
		o.PruneCron = schedule
	}
}

// Server holds the API dependencies.
type Server struct {
	st     store.Store
	addr   string
	label  string
	now    func() time.Time
	choreo flow.Config
	router chi.Router
}

// NewServer creates a server over st.
func NewServer(st store.Store, opts ...Option) *Server {
	o := Opts{}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Server{
		st:     st,
		addr:   o.Addr,
		label:  o.ServerLabel,
		now:    o.Now,
		choreo: flow.DefaultConfig(),
	}
	if s.addr == "" {
		s.addr = DefaultAddr
	}
	if s.label == "" {
		s.label = DefaultServerLabel
	}
	if s.now == nil {
		s.now = time.Now
	}
	if o.Choreography != nil {
		s.choreo = *o.Choreography
	}
	s.router = s.routes()
	slog.Debug("Server created", "addr", s.addr, "server_label", s.label)
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors)
	r.Use(requestLog)

	r.HandleFunc("/greet", s.greetHandler)
	r.HandleFunc("/time", s.timeHandler)
	r.HandleFunc("/users", s.usersHandler)
	r.Get("/health", s.healthHandler)
	r.Get("/choreography", s.choreographyHandler)

	r.Route("/visitors", func(r chi.Router) {
		r.Post("/", s.createVisitorHandler)
		r.Get("/{id}", s.getVisitorHandler)
		r.Put("/{id}/visited", s.markVisitedHandler)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, http.StatusNotFound, errorResponse(msgNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, http.StatusMethodNotAllowed, errorResponse(msgMethodNotAllowed))
	})
	return r
}

// Handler returns the HTTP handler with all middleware applied.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.addr }

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("reveal API listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("reveal API shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API shutdown failed: %w", err)
	}
	return nil
}

// Run opens the store, takes the state directory lock and serves until SIGINT or SIGTERM.
func Run(storeOpts []store.Option, apiOpts []Option) error {
	var o Opts
	for _, opt := range apiOpts {
		opt(&o)
	}

	if o.StateDir != "" {
		lock, err := lockfile.AcquireLock(o.StateDir)
		if err != nil {
			var lerr *lockfile.LockError
			if errors.As(err, &lerr) && lerr.Stale() {
				slog.Warn("Run: recorded lock holder is gone but the flock is still held by another process", "lock_path", lerr.Path)
			}
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				slog.Warn("Run: failed to release state lock", "error", err)
			}
		}()
	}

	st, err := store.New(storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Warn("Run: failed to close store", "error", err)
		}
	}()

	if o.Retention > 0 {
		expr := o.PruneCron
		if expr == "" {
			expr = scheduler.DefaultPruneSchedule
		}
		sched := scheduler.NewScheduler()
		defer sched.Stop()
		if err := sched.AddJob(expr, scheduler.RetentionJob(st, o.Retention, time.Now)); err != nil {
			return fmt.Errorf("invalid prune schedule %q: %w", expr, err)
		}
		slog.Info("Run: visitor pruning enabled", "retention", o.Retention, "schedule", expr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewServer(st, apiOpts...).Serve(ctx)
}
