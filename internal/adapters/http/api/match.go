package api

import (
	"net/http"
	"strings"

	"github.com/okian/duel/internal/domain/types"
)

// MatchHandler serves the /api/match routes.
type MatchHandler struct {
	deps Dependencies
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(deps Dependencies) *MatchHandler {
	return &MatchHandler{deps: deps}
}

type createRequest struct {
	Player1 string `json:"player1"`
}

type joinRequest struct {
	SessionID  string `json:"sessionId"`
	PlayerName string `json:"playerName"`
}

type playerRequest struct {
	SessionID string `json:"sessionId"`
	PlayerID  string `json:"playerId"`
}

type codeRequest struct {
	SessionID string `json:"sessionId"`
	PlayerID  string `json:"playerId"`
	Code      string `json:"code"`
}

func requirePost(w http.ResponseWriter, r *http.Request, op string) bool {
	if r.Method == http.MethodPost {
		return true
	}
	w.Header().Set("Allow", http.MethodPost)
	writeError(r.Context(), w, NewKind(op, ErrMethodNotAllowed))
	return false
}

func requireIDs(op string, ids ...string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return NewKind(op, ErrBadRequest)
		}
	}
	return nil
}

// HandleCreate handles POST /api/match/create.
func (h *MatchHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create"
	if !requirePost(w, r, op) {
		return
	}
	var req createRequest
	if err := decode(r, w, &req); err != nil {
		writeError(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	created, err := h.deps.CreateSession(r.Context(), req.Player1)
	if err != nil {
		writeError(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleJoin handles POST /api/match/join.
func (h *MatchHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	const op = "api.join"
	if !requirePost(w, r, op) {
		return
	}
	var req joinRequest
	if err := decode(r, w, &req); err != nil {
		writeError(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := requireIDs(op, req.SessionID); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	joined, err := h.deps.JoinSession(r.Context(), req.SessionID, req.PlayerName)
	if err != nil {
		writeError(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, joined)
}

// HandleRun handles POST /api/match/run. It blocks until the code has run.
func (h *MatchHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.run"
	if !requirePost(w, r, op) {
		return
	}
	var req types.RunRequest
	if err := decode(r, w, &req); err != nil {
		writeError(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := requireIDs(op, req.SessionID, req.PlayerID); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	res, err := h.deps.Run(r.Context(), req)
	if err != nil {
		writeError(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleNextRound handles POST /api/match/next-round.
func (h *MatchHandler) HandleNextRound(w http.ResponseWriter, r *http.Request) {
	const op = "api.next_round"
	if !requirePost(w, r, op) {
		return
	}
	var req playerRequest
	if err := decode(r, w, &req); err != nil {
		writeError(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := requireIDs(op, req.SessionID, req.PlayerID); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	adv, err := h.deps.AdvanceRound(r.Context(), req.SessionID, req.PlayerID)
	if err != nil {
		writeError(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, adv)
}

// HandleCode handles POST /api/match/code.
func (h *MatchHandler) HandleCode(w http.ResponseWriter, r *http.Request) {
	const op = "api.code"
	if !requirePost(w, r, op) {
		return
	}
	var req codeRequest
	if err := decode(r, w, &req); err != nil {
		writeError(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := requireIDs(op, req.SessionID, req.PlayerID); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := h.deps.UpdateCode(r.Context(), req.SessionID, req.PlayerID, req.Code); err != nil {
		writeError(r.Context(), w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSnapshot handles GET /api/match/{session_id}.
func (h *MatchHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	const op = "api.snapshot"
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(r.Context(), w, NewKind(op, ErrMethodNotAllowed))
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/match/")
	if id == "" || strings.Contains(id, "/") {
		writeError(r.Context(), w, NewKind(op, ErrBadRequest))
		return
	}
	snap, err := h.deps.Snapshot(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, Wrap(op, err))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, snap)
}
