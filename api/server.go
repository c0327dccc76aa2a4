package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cybergift/native/gift"
	"cybergift/native/passport"
	"cybergift/observability"
)

const (
	defaultRatePerSecond = 10
	defaultRateBurst     = 20
)

// Server exposes the gift engine and the passport registry over HTTP.
type Server struct {
	engine   *gift.Engine
	passport *passport.Registry
	logger   *slog.Logger
	metrics  *observability.GiftMetrics
}

// NewServer wires a server around the engine. The passport registry is
// optional; without it the passport routes respond 404.
func NewServer(engine *gift.Engine, registry *passport.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:   engine,
		passport: registry,
		logger:   logger,
		metrics:  observability.Gift(),
	}
}

// Handler builds the HTTP route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/gift", func(gr chi.Router) {
		gr.Group(func(mr chi.Router) {
			mr.Use(RateLimit(defaultRatePerSecond, defaultRateBurst))
			mr.Post("/claim", s.handleClaim)
			mr.Post("/release", s.handleRelease)
			mr.Post("/root", s.handleRegisterRoot)
		})
		gr.Get("/pool", s.handlePool)
		gr.Get("/params", s.handleParams)
		gr.Get("/root", s.handleRoot)
		gr.Get("/claims/{address}", s.handleClaimState)
		gr.Get("/releases/stats", s.handleReleaseStats)
		gr.Get("/releases/{address}", s.handleReleaseState)
		gr.Get("/referrals", s.handleReferrals)
		gr.Get("/referrals/{address}/chain", s.handleReferralChain)
		gr.Get("/referrals/{address}/referred", s.handleReferred)
	})

	r.Route("/v1/passport", func(pr chi.Router) {
		pr.Use(RateLimit(defaultRatePerSecond, defaultRateBurst))
		pr.Post("/", s.handlePassportCreate)
		pr.Post("/{nickname}/prove", s.handlePassportProve)
		pr.Get("/{nickname}", s.handlePassportGet)
	})

	return r
}
