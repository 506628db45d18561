package game

import "encoding/json"

// Envelope WS envelope: {"type":"...","payload":{...}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// inbound
type AuthPayload struct {
	Token string `json:"token"`
}

type SetSecretPayload struct {
	Numbers []int `json:"numbers"`
}

type SubmitGuessPayload struct {
	Guess string `json:"guess"`
}

// outbound
type GuessMadePayload struct {
	By      Slot `json:"by"`
	Value   int  `json:"value"`
	Correct bool `json:"correct"`
	Won     bool `json:"won"`
}

type DeletedPayload struct {
	MatchID string `json:"matchId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HTTP bodies
type CreateMatchResponse struct {
	MatchID string `json:"matchId"`
	View    View   `json:"state"`
}

type GuessRequest struct {
	Guess json.RawMessage `json:"guess"`
}

type GuessResponse struct {
	Outcome Outcome `json:"outcome"`
	State   View    `json:"state"`
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
