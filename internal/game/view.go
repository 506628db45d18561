package game

import "slices"

// View is the state one seat is allowed to see. The opponent's secret stays
// hidden until the match is resolved.
type View struct {
	MatchID string `json:"matchId"`
	Version int64  `json:"version"`
	You     Slot   `json:"you,omitempty"` // empty for a non-participant
	Phase   Phase  `json:"phase"`

	Players map[Slot]Player `json:"players"`
	Opener  Slot            `json:"opener"`
	Turn    Slot            `json:"turn,omitempty"`
	Winner  Slot            `json:"winner,omitempty"`

	Rules        Rules         `json:"rules"`
	SecretsReady map[Slot]bool `json:"secretsReady"`
	YourSecret   []int         `json:"yourSecret,omitempty"`

	// Revealed holds, per guesser, the prefix of the opponent's secret found so far.
	Revealed map[Slot][]int `json:"revealed"`

	RevealedSecrets map[Slot][]int `json:"revealedSecrets,omitempty"`

	Score Score `json:"score"`
}

func (m *Match) ViewFor(slot Slot) View {
	secrets := m.Secrets()
	v := View{
		MatchID: m.ID,
		Version: m.Version,
		Phase:   m.Phase(),
		Players: map[Slot]Player{P1: m.P1},
		Opener:  m.Opener,
		Turn:    m.Turn(),
		Winner:  m.Winner(),
		Rules:   m.Rules,
		SecretsReady: map[Slot]bool{
			P1: secrets[0] != nil,
			P2: secrets[1] != nil,
		},
		Revealed: map[Slot][]int{
			P1: nonNil(m.Revealed(P1)),
			P2: nonNil(m.Revealed(P2)),
		},
		Score: m.Score,
	}
	if m.P2 != nil {
		v.Players[P2] = *m.P2
	}
	if slot.Valid() {
		v.You = slot
		v.YourSecret = slices.Clone(secrets[slot.index()])
	}
	if v.Phase == PhaseResolved {
		v.RevealedSecrets = map[Slot][]int{
			P1: slices.Clone(secrets[0]),
			P2: slices.Clone(secrets[1]),
		}
	}
	return v
}

// Summary is the lobby listing entry for a match.
type Summary struct {
	MatchID   string  `json:"matchId"`
	Phase     Phase   `json:"phase"`
	Host      Player  `json:"host"`
	Guest     *Player `json:"guest,omitempty"`
	Winner    Slot    `json:"winner,omitempty"`
	Score     Score   `json:"score"`
	CreatedAt int64   `json:"createdAtMs"`
}

func (m *Match) Summary() Summary {
	s := Summary{
		MatchID:   m.ID,
		Phase:     m.Phase(),
		Host:      m.P1,
		Winner:    m.Winner(),
		Score:     m.Score,
		CreatedAt: toMs(m.CreatedAt),
	}
	if m.P2 != nil {
		g := *m.P2
		s.Guest = &g
	}
	return s
}

func nonNil(s Sequence) []int {
	if s == nil {
		return []int{}
	}
	return slices.Clone(s)
}
