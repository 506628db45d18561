package game

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	authWait     = 10 * time.Second
	pingInterval = 25 * time.Second
	maxMessage   = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // origin policy is enforced by the CORS layer
}

// ClientConn is the outbound queue of one socket; a single writer goroutine
// drains it.
type ClientConn struct {
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newClientConn() *ClientConn {
	return &ClientConn{send: make(chan []byte, 64)}
}

// Send queues env; it drops the message when the client is not keeping up.
// Queued messages are still flushed after Close.
func (c *ClientConn) Send(env Envelope) bool {
	b, err := json.Marshal(env)
	if err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *ClientConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *ClientConn) sendError(code, message string) {
	c.Send(Envelope{Type: "error", Payload: mustJSON(ErrorPayload{Code: code, Message: message})})
}

// matchIDFromWSPath extracts {id} from /ws/{id}; ids are lowercase
// alphanumerics, at most 64 chars.
func matchIDFromWSPath(path string) (string, bool) {
	id, ok := strings.CutPrefix(path, "/ws/")
	if !ok || id == "" || len(id) > 64 {
		return "", false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return "", false
		}
	}
	return id, true
}

// handleWS serves the WebSocket entry into a match at /ws/{matchId}.
// The token comes from the Authorization header or a first "auth" message.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	matchID, ok := matchIDFromWSPath(r.URL.Path)
	if !ok {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}

	var player Player
	if token, ok := bearerToken(r); ok {
		claims, err := s.verifier.Verify(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		player = playerFromClaims(claims)
	}

	if _, err := s.matches.Get(r.Context(), matchID); err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}
		s.log.Error("ws: load match", "match", matchID, "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ws.SetReadLimit(maxMessage)

	if player.UID == "" {
		player, err = s.readAuth(ws)
		if err != nil {
			_ = ws.WriteJSON(Envelope{Type: "error", Payload: mustJSON(ErrorPayload{Code: "unauthorized", Message: err.Error()})})
			_ = ws.Close()
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		_ = ws.WriteJSON(Envelope{Type: "error", Payload: mustJSON(ErrorPayload{Code: ErrorCode(err), Message: userMessage(err)})})
		_ = ws.Close()
		return
	}
	slot, ok := m.SlotOf(player.UID)
	if !ok {
		_ = ws.WriteJSON(Envelope{Type: "error", Payload: mustJSON(ErrorPayload{Code: ErrorCode(ErrNotInMatch), Message: ErrNotInMatch.Error()})})
		_ = ws.Close()
		return
	}

	// subscribe before the first state so no change slips between them
	events, unsubscribe, err := s.matches.Subscribe(ctx, matchID)
	if err != nil {
		s.log.Error("ws: subscribe", "match", matchID, "err", err)
		_ = ws.WriteJSON(Envelope{Type: "error", Payload: mustJSON(ErrorPayload{Code: "internal", Message: "internal error"})})
		_ = ws.Close()
		return
	}
	defer unsubscribe()

	cc := newClientConn()
	defer cc.Close()

	// writer loop
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case msg, ok := <-cc.send:
				if !ok {
					_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					_ = ws.Close()
					return
				}
				if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
					_ = ws.Close()
				}
			case <-ticker.C:
				_ = ws.WriteMessage(websocket.PingMessage, []byte{})
			}
		}
	}()

	// event loop
	go func() {
		for ev := range events {
			if ev.Type == EventMatchDeleted {
				cc.Send(Envelope{Type: "match_deleted", Payload: mustJSON(DeletedPayload{MatchID: matchID})})
				cancel()
				cc.Close()
				return
			}
			if ev.Guess != nil {
				cc.Send(Envelope{Type: "guess_made", Payload: mustJSON(GuessMadePayload{
					By:      ev.Guess.Slot,
					Value:   ev.Guess.Value,
					Correct: ev.Guess.Correct,
					Won:     ev.Guess.Won,
				})})
			}
			s.sendState(ctx, cc, matchID, slot)
		}
	}()

	s.sendState(ctx, cc, matchID, slot)

	// reader loop
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			break
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			cc.sendError("bad_json", "invalid json")
			continue
		}

		switch env.Type {
		case "set_secret":
			var p SetSecretPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				cc.sendError("bad_input", "invalid payload")
				continue
			}
			if _, err := s.matches.SetSecret(ctx, matchID, player.UID, p.Numbers); err != nil {
				cc.sendError(ErrorCode(err), userMessage(err))
			}

		case "submit_guess":
			var p SubmitGuessPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				cc.sendError("bad_input", "invalid payload")
				continue
			}
			_, out, err := s.matches.Guess(ctx, matchID, player.UID, p.Guess)
			if err != nil {
				cc.sendError(ErrorCode(err), userMessage(err))
				continue
			}
			cc.Send(Envelope{Type: "guess_result", Payload: mustJSON(out)})

		case "rematch_request":
			if _, err := s.matches.Rematch(ctx, matchID, player.UID); err != nil {
				cc.sendError(ErrorCode(err), userMessage(err))
			}

		case "auth":
			// already authenticated

		default:
			cc.sendError("unknown_type", "unknown message type")
		}
	}
}

func (s *Server) readAuth(ws *websocket.Conn) (Player, error) {
	_ = ws.SetReadDeadline(time.Now().Add(authWait))
	defer func() { _ = ws.SetReadDeadline(time.Time{}) }()

	_, data, err := ws.ReadMessage()
	if err != nil {
		return Player{}, errors.New("auth message expected")
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type != "auth" {
		return Player{}, errors.New("auth message expected")
	}
	var p AuthPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.Token == "" {
		return Player{}, errors.New("missing token")
	}
	claims, err := s.verifier.Verify(p.Token)
	if err != nil {
		return Player{}, errors.New("invalid token")
	}
	return playerFromClaims(claims), nil
}

func (s *Server) sendState(ctx context.Context, cc *ClientConn, matchID string, slot Slot) {
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Warn("ws: reload match", "match", matchID, "err", err)
		}
		return
	}
	cc.Send(Envelope{Type: "state", Payload: mustJSON(m.ViewFor(slot))})
}
