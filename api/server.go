// Package api exposes the verification, draw and giveaway operations over
// HTTP. Handlers stay thin: decode, call the service, map the error.
package api

import (
	"context"
	"net/http"
	"time"

	"racepool/config"
	"racepool/service"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Server is the HTTP server for the pool API
type Server struct {
	payments service.PaymentService
	draws    service.DrawService
	giveaway service.GiveawayService
	stats    service.StatsService
	cfg      *config.Config
	httpSrv  *http.Server
}

// NewServer creates a new API server
func NewServer(
	payments service.PaymentService,
	draws service.DrawService,
	giveaway service.GiveawayService,
	stats service.StatsService,
	cfg *config.Config,
) *Server {
	return &Server{
		payments: payments,
		draws:    draws,
		giveaway: giveaway,
		stats:    stats,
		cfg:      cfg,
	}
}

// Router returns the router with all routes defined
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogging)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/payments/verify", s.handleVerifyPayment).Methods(http.MethodPost)
	api.HandleFunc("/entitlements/active", s.handleActiveEntitlement).Methods(http.MethodGet)
	api.HandleFunc("/pool", s.handlePoolSummary).Methods(http.MethodGet)

	api.HandleFunc("/giveaway/enter", s.handleGiveawayEnter).Methods(http.MethodPost)
	api.HandleFunc("/giveaway/entries", s.handleGiveawayEntries).Methods(http.MethodGet)
	api.HandleFunc("/giveaway/draws", s.handleGiveawayDraws).Methods(http.MethodGet)

	admin := api.NewRoute().Subrouter()
	admin.Use(s.requireAdminKey)
	admin.HandleFunc("/draws/trigger", s.handleTriggerDraw).Methods(http.MethodPost)
	admin.HandleFunc("/draws/retry", s.handleRetryDraw).Methods(http.MethodPost)
	admin.HandleFunc("/giveaway/draw", s.handleGiveawayDraw).Methods(http.MethodPost)
	admin.HandleFunc("/admin/rebuild", s.handleRebuildAggregates).Methods(http.MethodPost)

	return r
}

// Start serves HTTP until the context is cancelled, then drains in-flight
// requests before returning
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", s.cfg.ListenAddr).Info("HTTP server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}
