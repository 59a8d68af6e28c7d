// Package httpapi serves the data entry service over HTTP.
//
// Routes:
//
//	GET|HEAD /            service banner
//	GET      /health      liveness plus session counters
//	POST     /analyze     multipart (text, file...) or JSON {"text": ...}
//	GET      /history     ?limit=N, most recent first
//	GET      /fields      field memory
//	POST     /fields/custom  JSON {"field": ..., "value": ...}
//	GET      /export      ?format=xlsx|csv
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/entry"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/export"
)

// Config holds router and server settings.
type Config struct {
	RequestTimeout  time.Duration
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	Version         string
}

// DefaultConfig returns the settings used by `dataentry serve`.
func DefaultConfig() Config {
	return Config{
		RequestTimeout:  2 * time.Minute,
		MaxUploadBytes:  32 << 20,
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigins:  []string{"*"},
		Version:         "dev",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = d.AllowedOrigins
	}
	if c.Version == "" {
		c.Version = d.Version
	}
	return c
}

// NewRouter wires the API routes around svc.
func NewRouter(svc *entry.Service, exp *export.Service, cfg Config, logger *slog.Logger) http.Handler {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if exp == nil {
		exp = export.NewService(logger)
	}
	h := &handler{svc: svc, exp: exp, cfg: cfg, logger: logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors(cfg.AllowedOrigins))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	r.Get("/", h.index)
	r.Head("/", h.index)
	r.Get("/health", h.health)
	r.Head("/health", h.health)

	r.Post("/analyze", h.analyze)
	r.Get("/history", h.history)
	r.Route("/fields", func(r chi.Router) {
		r.Get("/", h.fields)
		r.Post("/custom", h.registerCustom)
	})
	r.Get("/export", h.export)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found", r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", r.Method+" "+r.URL.Path)
	})
	return r
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, cfg Config, logger *slog.Logger) error {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("http.listening", "addr", ln.Addr().String())
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http.shutdown.failed", "error", err)
		return srv.Close()
	}
	logger.Info("http.stopped")
	return nil
}
