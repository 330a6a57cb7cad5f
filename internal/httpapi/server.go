// Package httpapi exposes the token service over HTTP: an endpoint that
// mints ephemeral session tokens, plus health and metrics.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tmoody1973/mkedev-voice/internal/observability"
	"github.com/tmoody1973/mkedev-voice/internal/tokens"
)

// Server handles the token service's routes.
type Server struct {
	minter  *tokens.Minter
	model   string
	metrics *observability.Metrics
	logger  *zap.Logger
}

// New builds a Server minting tokens scoped to model.
func New(minter *tokens.Minter, model string, metrics *observability.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{minter: minter, model: model, metrics: metrics, logger: logger}
}

// Router assembles the chi routing tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Post("/v1/token", s.handleMintToken)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

type tokenResponse struct {
	Token     string    `json:"token"`
	Model     string    `json:"model"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) handleMintToken(w http.ResponseWriter, r *http.Request) {
	token, expires, err := s.minter.Mint(s.model)
	if err != nil {
		s.logger.Error("token mint failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "token mint failed"})
		return
	}
	if s.metrics != nil {
		s.metrics.TokensMinted.Inc()
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, Model: s.model, ExpiresAt: expires})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
