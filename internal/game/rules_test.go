package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRules_ValidateSequence(t *testing.T) {
	strict := DefaultRules()
	strict.AllowRepeats = false

	cases := []struct {
		name  string
		rules Rules
		seq   []int
		ok    bool
	}{
		{"valid", DefaultRules(), []int{4, 8, 1, 5, 6}, true},
		{"repeats allowed", DefaultRules(), []int{1, 1, 2, 2, 3}, true},
		{"repeats rejected", strict, []int{1, 1, 2, 2, 3}, false},
		{"too short", DefaultRules(), []int{1, 2, 3}, false},
		{"too long", DefaultRules(), []int{1, 2, 3, 4, 5, 6}, false},
		{"below range", DefaultRules(), []int{-1, 2, 3, 4, 5}, false},
		{"above range", DefaultRules(), []int{10, 2, 3, 4, 5}, false},
		{"nil", DefaultRules(), nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rules.ValidateSequence(tc.seq)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRules_ParseGuess(t *testing.T) {
	cases := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"4", 4, true},
		{" 9 ", 9, true},
		{"0", 0, true},
		{"", 0, false},
		{"abc", 0, false},
		{"4.5", 0, false},
		{"10", 0, false},
		{"-1", 0, false},
	}
	for _, tc := range cases {
		got, err := DefaultRules().ParseGuess(tc.raw)
		if !tc.ok {
			require.ErrorIs(t, err, ErrInvalidInput, "raw=%q", tc.raw)
			continue
		}
		require.NoError(t, err, "raw=%q", tc.raw)
		assert.Equal(t, tc.want, got)
	}
}

func TestRules_Validate(t *testing.T) {
	require.NoError(t, DefaultRules().Validate())

	r := DefaultRules()
	r.SequenceLength = 0
	require.Error(t, r.Validate())

	r = DefaultRules()
	r.MinValue, r.MaxValue = 5, 1
	require.Error(t, r.Validate())

	r = DefaultRules()
	r.AllowRepeats = false
	r.MaxValue = 2
	require.Error(t, r.Validate())
}

func TestSnapshot_RestoreKeepsState(t *testing.T) {
	m := newActiveMatch(t, []int{1, 2, 3}, []int{4, 5, 6})
	_, err := m.SubmitGuess(P1, 4)
	require.NoError(t, err)
	m.Version = 7

	b, err := encodeMatch(m)
	require.NoError(t, err)
	got, err := decodeMatch(b)
	require.NoError(t, err)

	assert.Equal(t, PhaseActive, got.Phase())
	assert.Equal(t, P1, got.Turn())
	assert.Equal(t, Sequence{4}, got.Revealed(P1))
	assert.Equal(t, int64(7), got.Version)
	assert.Equal(t, m.Secrets(), got.Secrets())
	assert.Equal(t, bob, *got.P2)
	assert.Equal(t, m.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())
}

func TestSnapshot_RestoreRejectsBrokenDocuments(t *testing.T) {
	base := func() MatchSnapshot {
		return MatchSnapshot{
			MatchID:  "m1",
			Rules:    DefaultRules(),
			P1:       alice,
			P2:       &bob,
			Phase:    PhaseActive,
			Opener:   P1,
			Turn:     P1,
			P1Secret: []int{1, 2, 3, 4, 5},
			P2Secret: []int{6, 7, 8, 9, 0},
		}
	}

	cases := []struct {
		name   string
		mutate func(s *MatchSnapshot)
	}{
		{"unknown phase", func(s *MatchSnapshot) { s.Phase = "paused" }},
		{"active without turn", func(s *MatchSnapshot) { s.Turn = "" }},
		{"resolved without winner", func(s *MatchSnapshot) { s.Phase = PhaseResolved }},
		{"revealed not a prefix", func(s *MatchSnapshot) { s.P1Revealed = []int{7} }},
		{"revealed too long", func(s *MatchSnapshot) { s.P2Revealed = []int{1, 2, 3, 4, 5, 6} }},
		{"active with full reveal", func(s *MatchSnapshot) { s.P1Revealed = []int{6, 7, 8, 9, 0} }},
		{"active without second player", func(s *MatchSnapshot) { s.P2 = nil }},
		{"active without secret", func(s *MatchSnapshot) { s.P2Secret = nil }},
		{"secret shorter than rules", func(s *MatchSnapshot) { s.P1Secret = []int{1, 2, 3} }},
		{"waiting secret longer than rules", func(s *MatchSnapshot) {
			s.Phase, s.Turn = PhaseWaiting, ""
			s.P2Secret = []int{1, 2, 3, 4, 5, 6}
		}},
		{"resolved with partial reveal", func(s *MatchSnapshot) {
			s.Phase, s.Turn, s.Winner = PhaseResolved, "", P1
			s.P1Revealed = []int{6, 7}
		}},
		{"resolved with both revealed", func(s *MatchSnapshot) {
			s.Phase, s.Turn, s.Winner = PhaseResolved, "", P1
			s.P1Revealed = []int{6, 7, 8, 9, 0}
			s.P2Revealed = []int{1, 2, 3, 4, 5}
		}},
	}

	_, err := Restore(base())
	require.NoError(t, err)

	resolved := base()
	resolved.Phase, resolved.Turn, resolved.Winner = PhaseResolved, "", P2
	resolved.P2Revealed = []int{1, 2, 3, 4, 5}
	resolved.P1Revealed = []int{6, 7}
	_, err = Restore(resolved)
	require.NoError(t, err)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := base()
			tc.mutate(&s)
			_, err := Restore(s)
			require.Error(t, err)
		})
	}
}

func TestView_HidesOpponentSecretUntilResolved(t *testing.T) {
	m := newActiveMatch(t, []int{1, 2}, []int{3, 4})

	v := m.ViewFor(P1)
	assert.Equal(t, P1, v.You)
	assert.Equal(t, []int{1, 2}, v.YourSecret)
	assert.Nil(t, v.RevealedSecrets)
	assert.Equal(t, map[Slot]bool{P1: true, P2: true}, v.SecretsReady)
	assert.Equal(t, map[Slot]Player{P1: alice, P2: bob}, v.Players)

	outsider := m.ViewFor("")
	assert.Empty(t, outsider.You)
	assert.Nil(t, outsider.YourSecret)

	_, err := m.SubmitGuess(P1, 3)
	require.NoError(t, err)
	_, err = m.SubmitGuess(P1, 4)
	require.NoError(t, err)

	v = m.ViewFor(P2)
	assert.Equal(t, PhaseResolved, v.Phase)
	assert.Equal(t, P1, v.Winner)
	assert.Equal(t, map[Slot][]int{P1: {1, 2}, P2: {3, 4}}, v.RevealedSecrets)
	assert.Equal(t, []int{3, 4}, v.Revealed[P1])
}

func TestMatch_Summary(t *testing.T) {
	m := NewMatch("m1", alice, DefaultRules(), time.UnixMilli(1000))
	s := m.Summary()
	assert.Equal(t, "m1", s.MatchID)
	assert.Equal(t, alice, s.Host)
	assert.Nil(t, s.Guest)
	assert.Equal(t, int64(1000), s.CreatedAt)
}
