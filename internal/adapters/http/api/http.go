// Package api exposes the match service over HTTP/JSON.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/cors"

	"github.com/okian/duel/internal/domain/types"
	"github.com/okian/duel/pkg/logger"
)

// maxBodyBytes bounds request bodies; submissions are source files.
const maxBodyBytes = 256 << 10

// Dependencies required by HTTP handlers.
type Dependencies interface {
	CreateSession(ctx context.Context, creatorName string) (types.Created, error)
	JoinSession(ctx context.Context, sessionID, joinerName string) (types.Joined, error)
	Snapshot(ctx context.Context, sessionID string) (types.Snapshot, error)
	Run(ctx context.Context, req types.RunRequest) (types.RunResult, error)
	AdvanceRound(ctx context.Context, sessionID, playerID string) (types.Advanced, error)
	UpdateCode(ctx context.Context, sessionID, playerID, code string) error
}

// Server wires HTTP routes for the match API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	matchHandler  *MatchHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		matchHandler:  NewMatchHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/api/match/create", MetricsMiddleware(s.matchHandler.HandleCreate, "match_create"))
	mux.HandleFunc("/api/match/join", MetricsMiddleware(s.matchHandler.HandleJoin, "match_join"))
	mux.HandleFunc("/api/match/run", MetricsMiddleware(s.matchHandler.HandleRun, "match_run"))
	mux.HandleFunc("/api/match/next-round", MetricsMiddleware(s.matchHandler.HandleNextRound, "match_next_round"))
	mux.HandleFunc("/api/match/code", MetricsMiddleware(s.matchHandler.HandleCode, "match_code"))
	mux.HandleFunc("/api/match/", MetricsMiddleware(s.matchHandler.HandleSnapshot, "match_snapshot"))
}

// WithCORS allows browser clients from origins to call h. An empty list
// leaves h unchanged.
func WithCORS(h http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return h
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	})
	return c.Handler(h)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Named("api").Error(ctx, "request failed", logger.Error(err))
	}
	writeJSON(w, status, body)
}

func decode(r *http.Request, w http.ResponseWriter, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
