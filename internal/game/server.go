package game

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"example.com/cadeado/internal/auth"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Server exposes matches over HTTP and WebSocket.
type Server struct {
	matches  *MatchService
	verifier TokenVerifier
	log      *slog.Logger
}

func NewServer(matches *MatchService, verifier TokenVerifier, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		matches:  matches,
		verifier: verifier,
		log:      log,
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/matches", s.authed(s.handleCreateMatch))
	mux.HandleFunc("GET /api/matches", s.authed(s.handleListOpen))
	mux.HandleFunc("GET /api/matches/mine", s.authed(s.handleListMine))
	mux.HandleFunc("GET /api/matches/{id}", s.authed(s.handleGetMatch))
	mux.HandleFunc("POST /api/matches/{id}/join", s.authed(s.handleJoin))
	mux.HandleFunc("PUT /api/matches/{id}/secret", s.authed(s.handleSetSecret))
	mux.HandleFunc("POST /api/matches/{id}/guess", s.authed(s.handleGuess))
	mux.HandleFunc("POST /api/matches/{id}/rematch", s.authed(s.handleRematch))
	mux.HandleFunc("DELETE /api/matches/{id}", s.authed(s.handleDelete))
	mux.HandleFunc("GET /ws/", s.handleWS)
}

type playerHandler func(w http.ResponseWriter, r *http.Request, p Player)

func (s *Server) authed(next playerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		claims, err := s.verifier.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		next(w, r, playerFromClaims(claims))
	}
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request, p Player) {
	m, err := s.matches.Create(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateMatchResponse{MatchID: m.ID, View: m.ViewFor(P1)})
}

func (s *Server) handleListOpen(w http.ResponseWriter, r *http.Request, p Player) {
	ms, err := s.matches.ListOpen(r.Context(), queryLimit(r, 50))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": summaries(ms)})
}

func (s *Server) handleListMine(w http.ResponseWriter, r *http.Request, p Player) {
	ms, err := s.matches.ListForPlayer(r.Context(), p.UID, queryLimit(r, 50))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": summaries(ms)})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request, p Player) {
	m, err := s.matches.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	slot, _ := m.SlotOf(p.UID)
	writeJSON(w, http.StatusOK, m.ViewFor(slot))
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request, p Player) {
	m, slot, err := s.matches.Join(r.Context(), r.PathValue("id"), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m.ViewFor(slot))
}

func (s *Server) handleSetSecret(w http.ResponseWriter, r *http.Request, p Player) {
	var req SetSecretPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_input", "invalid json")
		return
	}
	m, err := s.matches.SetSecret(r.Context(), r.PathValue("id"), p.UID, req.Numbers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	slot, _ := m.SlotOf(p.UID)
	writeJSON(w, http.StatusOK, m.ViewFor(slot))
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request, p Player) {
	var req GuessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_input", "invalid json")
		return
	}
	m, out, err := s.matches.Guess(r.Context(), r.PathValue("id"), p.UID, rawGuess(req.Guess))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GuessResponse{Outcome: out, State: m.ViewFor(out.Slot)})
}

func (s *Server) handleRematch(w http.ResponseWriter, r *http.Request, p Player) {
	m, err := s.matches.Rematch(r.Context(), r.PathValue("id"), p.UID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	slot, _ := m.SlotOf(p.UID)
	writeJSON(w, http.StatusOK, m.ViewFor(slot))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, p Player) {
	if err := s.matches.Delete(r.Context(), r.PathValue("id"), p.UID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("match request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeError(w, status, ErrorCode(err), userMessage(err))
}

func playerFromClaims(c *auth.Claims) Player {
	return Player{UID: c.UserID, Name: c.DisplayName}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return tok, tok != ""
}

// rawGuess accepts both 7 and "7".
func rawGuess(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func queryLimit(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, 200)
}

func summaries(ms []*Match) []Summary {
	out := make([]Summary, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Summary())
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, ErrorPayload{Code: errCode, Message: msg})
}
