package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/roomchat/roomchat/pkg/database"
)

// Server bundles the HTTP server, its router and the background presence
// janitor.
type Server struct {
	cfg      TOMLConfig
	db       *database.DB
	logger   zerolog.Logger
	presence *Presence
	handler  *Handler
	httpSrv  *http.Server
}

// NewServer wires the full server. The notifier may be nil, in which case
// verification links go to the log.
func NewServer(cfg TOMLConfig, db *database.DB, logger zerolog.Logger, notifier Notifier) *Server {
	presence := NewPresence(time.Duration(cfg.Limits.HeartbeatTimeoutSeconds) * time.Second)
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	handler := NewHandler(db, cfg, logger, presence, notifier)

	s := &Server{
		cfg:      cfg,
		db:       db,
		logger:   logger,
		presence: presence,
		handler:  handler,
	}
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Router builds the chi router. Exposed separately so tests can drive the
// full middleware stack without a listener.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(metricsMiddleware)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(loggerMiddleware(s.logger))
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", s.handler.Health)
	r.Get("/verify/{token}", s.handler.Verify)

	r.Route("/{room}", func(r chi.Router) {
		r.Get("/", s.handler.RoomPage)
		r.Get("/history", s.handler.History)
		r.Post("/send", s.handler.Send)
		r.Post("/heartbeat", s.handler.Heartbeat)
		r.Post("/delete/{id}", s.handler.Delete)
	})

	return r
}

// Start runs the HTTP server and the presence janitor until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	janitorCtx, cancelJanitor := context.WithCancel(ctx)
	defer cancelJanitor()
	go s.presence.Run(janitorCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	s.logger.Info().Msg("http server stopped")
	return nil
}
