package game

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// MatchSnapshot is the stored form of a match.
type MatchSnapshot struct {
	MatchID string `json:"matchId"`
	Version int64  `json:"version"`
	Rules   Rules  `json:"rules"`

	P1 Player  `json:"p1"`
	P2 *Player `json:"p2,omitempty"`

	Phase  Phase `json:"phase"`
	Opener Slot  `json:"opener"`
	Turn   Slot  `json:"turn,omitempty"`
	Winner Slot  `json:"winner,omitempty"`

	P1Secret   []int `json:"p1Secret,omitempty"`
	P2Secret   []int `json:"p2Secret,omitempty"`
	P1Revealed []int `json:"p1Revealed,omitempty"`
	P2Revealed []int `json:"p2Revealed,omitempty"`

	Score Score `json:"score"`

	CreatedAtMs int64 `json:"createdAtMs"`
	UpdatedAtMs int64 `json:"updatedAtMs"`
}

func (m *Match) Snapshot() MatchSnapshot {
	secrets := m.Secrets()
	snap := MatchSnapshot{
		MatchID:     m.ID,
		Version:     m.Version,
		Rules:       m.Rules,
		P1:          m.P1,
		Phase:       m.Phase(),
		Opener:      m.Opener,
		Turn:        m.Turn(),
		Winner:      m.Winner(),
		P1Secret:    slices.Clone(secrets[0]),
		P2Secret:    slices.Clone(secrets[1]),
		P1Revealed:  slices.Clone(m.Revealed(P1)),
		P2Revealed:  slices.Clone(m.Revealed(P2)),
		Score:       m.Score,
		CreatedAtMs: toMs(m.CreatedAt),
		UpdatedAtMs: toMs(m.UpdatedAt),
	}
	if m.P2 != nil {
		p2 := *m.P2
		snap.P2 = &p2
	}
	return snap
}

// Restore rebuilds a match and checks the invariants a stored document
// must satisfy.
func Restore(s MatchSnapshot) (*Match, error) {
	m := &Match{
		ID:        s.MatchID,
		Version:   s.Version,
		Rules:     s.Rules,
		P1:        s.P1,
		Opener:    s.Opener,
		Score:     s.Score,
		CreatedAt: fromMs(s.CreatedAtMs),
		UpdatedAt: fromMs(s.UpdatedAtMs),
	}
	if s.P2 != nil {
		p2 := *s.P2
		m.P2 = &p2
	}
	if !m.Opener.Valid() {
		m.Opener = P1
	}

	secrets := [2]Sequence{s.P1Secret, s.P2Secret}
	revealed := [2]Sequence{s.P1Revealed, s.P2Revealed}

	for _, slot := range []Slot{P1, P2} {
		if sec := secrets[slot.index()]; sec != nil && len(sec) != s.Rules.SequenceLength {
			return nil, fmt.Errorf("match %s: secret of %s has %d numbers, rules need %d", s.MatchID, slot, len(sec), s.Rules.SequenceLength)
		}
	}

	switch s.Phase {
	case PhaseWaiting:
		m.State = Waiting{Secrets: secrets}
	case PhaseActive:
		if !s.Turn.Valid() {
			return nil, fmt.Errorf("match %s: active without turn", s.MatchID)
		}
		if err := checkStarted(s, secrets); err != nil {
			return nil, err
		}
		m.State = Active{Secrets: secrets, Revealed: revealed, Turn: s.Turn}
	case PhaseResolved:
		if !s.Winner.Valid() {
			return nil, fmt.Errorf("match %s: resolved without winner", s.MatchID)
		}
		if err := checkStarted(s, secrets); err != nil {
			return nil, err
		}
		m.State = Resolved{Secrets: secrets, Revealed: revealed, Winner: s.Winner}
	default:
		return nil, fmt.Errorf("match %s: unknown phase %q", s.MatchID, s.Phase)
	}

	for _, slot := range []Slot{P1, P2} {
		opp := secrets[slot.Opponent().index()]
		got := revealed[slot.index()]
		if len(got) > len(opp) || !slices.Equal(got, opp[:len(got)]) {
			return nil, fmt.Errorf("match %s: revealed list of %s is not a prefix of the opponent secret", s.MatchID, slot)
		}
		// only the winner may have uncovered the whole sequence
		full := len(opp) > 0 && len(got) == len(opp)
		if full != (s.Phase == PhaseResolved && s.Winner == slot) {
			return nil, fmt.Errorf("match %s: revealed length of %s does not match phase %s", s.MatchID, slot, s.Phase)
		}
	}
	return m, nil
}

// checkStarted verifies that a started match has both seats and both secrets.
func checkStarted(s MatchSnapshot, secrets [2]Sequence) error {
	if s.P2 == nil {
		return fmt.Errorf("match %s: %s without second player", s.MatchID, s.Phase)
	}
	for _, slot := range []Slot{P1, P2} {
		if secrets[slot.index()] == nil {
			return fmt.Errorf("match %s: %s without secret of %s", s.MatchID, s.Phase, slot)
		}
	}
	return nil
}

func encodeMatch(m *Match) ([]byte, error) {
	return json.Marshal(m.Snapshot())
}

func decodeMatch(b []byte) (*Match, error) {
	var snap MatchSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	return Restore(snap)
}

func toMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMs(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
