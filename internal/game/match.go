package game

import (
	"fmt"
	"slices"
	"time"
)

type Slot string

const (
	P1 Slot = "p1"
	P2 Slot = "p2"
)

func (s Slot) Opponent() Slot {
	if s == P1 {
		return P2
	}
	return P1
}

func (s Slot) Valid() bool { return s == P1 || s == P2 }

func (s Slot) index() int {
	if s == P2 {
		return 1
	}
	return 0
}

type Player struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// Score is the rematch series between the two seats.
type Score struct {
	P1Wins int `json:"p1Wins"`
	P2Wins int `json:"p2Wins"`
}

func (s *Score) add(winner Slot) {
	if winner == P1 {
		s.P1Wins++
	} else {
		s.P2Wins++
	}
}

type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseActive   Phase = "active"
	PhaseResolved Phase = "resolved"
)

// Sequence is an ordered list of numbers. Secrets are indexed by the owner's
// slot; revealed lists are indexed by the guesser's slot and always hold a
// prefix of the opponent's secret.
type Sequence []int

// State is one of Waiting, Active or Resolved.
type State interface {
	Phase() Phase
	state()
}

// Waiting: seats or secrets are still incomplete. A nil secret means the
// player has not chosen yet.
type Waiting struct {
	Secrets [2]Sequence
}

type Active struct {
	Secrets  [2]Sequence
	Revealed [2]Sequence
	Turn     Slot
}

type Resolved struct {
	Secrets  [2]Sequence
	Revealed [2]Sequence
	Winner   Slot
}

func (Waiting) Phase() Phase  { return PhaseWaiting }
func (Active) Phase() Phase   { return PhaseActive }
func (Resolved) Phase() Phase { return PhaseResolved }

func (Waiting) state()  {}
func (Active) state()   {}
func (Resolved) state() {}

type Match struct {
	ID      string
	Version int64
	Rules   Rules

	P1 Player
	P2 *Player // nil until someone joins

	// Opener takes the first turn once the match becomes active.
	Opener Slot
	Score  Score
	State  State

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Outcome describes the result of one guess.
type Outcome struct {
	Slot     Slot `json:"slot"`
	Value    int  `json:"value"`
	Correct  bool `json:"correct"`
	Hint     Hint `json:"hint,omitempty"`
	Revealed int  `json:"revealed"` // revealed-length after the guess
	Won      bool `json:"won"`
	Turn     Slot `json:"turn,omitempty"`
}

func NewMatch(id string, host Player, rules Rules, now time.Time) *Match {
	return &Match{
		ID:        id,
		Rules:     rules,
		P1:        host,
		Opener:    P1,
		State:     Waiting{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (m *Match) Phase() Phase { return m.State.Phase() }

// SlotOf returns the seat held by uid.
func (m *Match) SlotOf(uid string) (Slot, bool) {
	if uid == "" {
		return "", false
	}
	if m.P1.UID == uid {
		return P1, true
	}
	if m.P2 != nil && m.P2.UID == uid {
		return P2, true
	}
	return "", false
}

func (m *Match) PlayerAt(slot Slot) (Player, bool) {
	if slot == P1 {
		return m.P1, true
	}
	if slot != P2 || m.P2 == nil {
		return Player{}, false
	}
	return *m.P2, true
}

// Open reports whether the second seat is still free.
func (m *Match) Open() bool {
	return m.P2 == nil && m.Phase() == PhaseWaiting
}

// Join seats p. A participant joining again keeps their seat.
func (m *Match) Join(p Player) (Slot, error) {
	if p.UID == "" {
		return "", fmt.Errorf("%w: missing player id", ErrInvalidInput)
	}
	if slot, ok := m.SlotOf(p.UID); ok {
		return slot, nil
	}
	if m.P2 != nil {
		return "", ErrMatchFull
	}
	m.P2 = &p
	return P2, nil
}

// SetSecret stores a player's sequence. It can be replaced until the match
// starts; the match starts as soon as both seats have a secret.
func (m *Match) SetSecret(slot Slot, seq []int) error {
	w, ok := m.State.(Waiting)
	if !ok {
		return fmt.Errorf("%w: secrets can only be chosen before the match starts", ErrWrongPhase)
	}
	if _, seated := m.PlayerAt(slot); !seated {
		return ErrNotInMatch
	}
	if err := m.Rules.ValidateSequence(seq); err != nil {
		return err
	}

	w.Secrets[slot.index()] = slices.Clone(Sequence(seq))
	if m.P2 != nil && w.Secrets[0] != nil && w.Secrets[1] != nil {
		m.State = Active{
			Secrets: w.Secrets,
			Turn:    m.Opener,
		}
		return nil
	}
	m.State = w
	return nil
}

// SubmitGuess evaluates value against the next hidden number of the
// opponent. Rejected guesses leave the match untouched.
func (m *Match) SubmitGuess(slot Slot, value int) (Outcome, error) {
	a, ok := m.State.(Active)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: match is %s", ErrWrongPhase, m.Phase())
	}
	if !slot.Valid() {
		return Outcome{}, ErrNotInMatch
	}
	if a.Turn != slot {
		return Outcome{}, ErrNotYourTurn
	}
	if !m.Rules.inRange(value) {
		return Outcome{}, fmt.Errorf("%w: guess must be between %d and %d", ErrInvalidInput, m.Rules.MinValue, m.Rules.MaxValue)
	}

	me, opp := slot.index(), slot.Opponent().index()
	target := a.Secrets[opp]
	pos := len(a.Revealed[me])
	if pos >= len(target) {
		return Outcome{}, fmt.Errorf("%w: opponent sequence already revealed", ErrWrongPhase)
	}

	out := Outcome{Slot: slot, Value: value}
	hit, hint := Compare(target[pos], value)
	if !hit {
		a.Turn = slot.Opponent()
		m.State = a
		out.Hint = hint
		out.Revealed = pos
		out.Turn = a.Turn
		return out, nil
	}

	revealed := append(slices.Clone(a.Revealed[me]), value)
	a.Revealed[me] = revealed
	out.Correct = true
	out.Revealed = len(revealed)

	if len(revealed) == len(target) {
		m.State = Resolved{
			Secrets:  a.Secrets,
			Revealed: a.Revealed,
			Winner:   slot,
		}
		m.Score.add(slot)
		out.Won = true
		return out, nil
	}

	m.State = a
	out.Turn = slot
	return out, nil
}

// Reset starts a rematch: secrets, reveals and winner are cleared, the score
// is kept.
func (m *Match) Reset() error {
	if _, ok := m.State.(Resolved); !ok {
		return fmt.Errorf("%w: rematch is available only after the match is resolved", ErrWrongPhase)
	}
	if m.Rules.AlternateOpener {
		m.Opener = m.Opener.Opponent()
	}
	m.State = Waiting{}
	return nil
}

// Turn is the slot allowed to guess, empty unless the match is active.
func (m *Match) Turn() Slot {
	if a, ok := m.State.(Active); ok {
		return a.Turn
	}
	return ""
}

// Winner is empty unless the match is resolved.
func (m *Match) Winner() Slot {
	if r, ok := m.State.(Resolved); ok {
		return r.Winner
	}
	return ""
}

func (m *Match) Secrets() [2]Sequence {
	switch s := m.State.(type) {
	case Waiting:
		return s.Secrets
	case Active:
		return s.Secrets
	case Resolved:
		return s.Secrets
	}
	return [2]Sequence{}
}

// Revealed returns what slot has uncovered of the opponent's secret.
func (m *Match) Revealed(slot Slot) Sequence {
	switch s := m.State.(type) {
	case Active:
		return s.Revealed[slot.index()]
	case Resolved:
		return s.Revealed[slot.index()]
	}
	return nil
}

// Clone returns a deep copy.
func (m *Match) Clone() *Match {
	c := *m
	if m.P2 != nil {
		p2 := *m.P2
		c.P2 = &p2
	}
	switch s := m.State.(type) {
	case Waiting:
		c.State = Waiting{Secrets: cloneBoth(s.Secrets)}
	case Active:
		c.State = Active{Secrets: cloneBoth(s.Secrets), Revealed: cloneBoth(s.Revealed), Turn: s.Turn}
	case Resolved:
		c.State = Resolved{Secrets: cloneBoth(s.Secrets), Revealed: cloneBoth(s.Revealed), Winner: s.Winner}
	}
	return &c
}

func cloneBoth(p [2]Sequence) [2]Sequence {
	return [2]Sequence{slices.Clone(p[0]), slices.Clone(p[1])}
}
