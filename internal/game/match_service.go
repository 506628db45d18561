package game

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"time"
)

type Config struct {
	Rules Rules
}

// ResultRecorder updates player profiles when a match resolves.
type ResultRecorder interface {
	RecordResult(ctx context.Context, winnerID, loserID string) error
}

// MatchService applies player actions to stored matches: every action is a
// fresh read, one engine transition and a conditional write, followed by an
// event for subscribers.
type MatchService struct {
	cfg    Config
	store  MatchStore
	broker Broker
	stats  ResultRecorder
	log    *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewMatchService(cfg Config, store MatchStore, broker Broker, stats ResultRecorder, log *slog.Logger) *MatchService {
	if log == nil {
		log = slog.Default()
	}
	return &MatchService{
		cfg:    cfg,
		store:  store,
		broker: broker,
		stats:  stats,
		log:    log,
		now:    time.Now,
		newID:  func() string { return randID(10) },
	}
}

func (s *MatchService) Create(ctx context.Context, host Player) (*Match, error) {
	if host.UID == "" {
		return nil, fmt.Errorf("%w: missing player id", ErrInvalidInput)
	}
	m := NewMatch(s.newID(), host, s.cfg.Rules, s.now())
	if err := s.store.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	s.log.Info("match created", "match", m.ID, "host", host.UID)
	return m, nil
}

func (s *MatchService) Get(ctx context.Context, matchID string) (*Match, error) {
	return s.store.Get(ctx, matchID)
}

func (s *MatchService) Join(ctx context.Context, matchID string, p Player) (*Match, Slot, error) {
	var slot Slot
	m, err := s.update(ctx, matchID, func(m *Match) error {
		var err error
		slot, err = m.Join(p)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	s.publish(ctx, Event{Type: EventMatchUpdated, MatchID: matchID, Version: m.Version})
	return m, slot, nil
}

func (s *MatchService) SetSecret(ctx context.Context, matchID, uid string, seq []int) (*Match, error) {
	m, err := s.update(ctx, matchID, func(m *Match) error {
		slot, ok := m.SlotOf(uid)
		if !ok {
			return ErrNotInMatch
		}
		return m.SetSecret(slot, seq)
	})
	if err != nil {
		return nil, err
	}
	if m.Phase() == PhaseActive {
		s.log.Info("match started", "match", matchID, "turn", m.Turn())
	}
	s.publish(ctx, Event{Type: EventMatchUpdated, MatchID: matchID, Version: m.Version})
	return m, nil
}

// Guess parses raw input and submits it for uid.
func (s *MatchService) Guess(ctx context.Context, matchID, uid, raw string) (*Match, Outcome, error) {
	var out Outcome
	m, err := s.update(ctx, matchID, func(m *Match) error {
		slot, ok := m.SlotOf(uid)
		if !ok {
			return ErrNotInMatch
		}
		value, err := m.Rules.ParseGuess(raw)
		if err != nil {
			return err
		}
		out, err = m.SubmitGuess(slot, value)
		return err
	})
	if err != nil {
		return nil, Outcome{}, err
	}

	if out.Won {
		s.recordWin(ctx, m, out.Slot)
	}
	s.publish(ctx, Event{Type: EventMatchUpdated, MatchID: matchID, Version: m.Version, Guess: &out})
	return m, out, nil
}

func (s *MatchService) Rematch(ctx context.Context, matchID, uid string) (*Match, error) {
	m, err := s.update(ctx, matchID, func(m *Match) error {
		if _, ok := m.SlotOf(uid); !ok {
			return ErrNotInMatch
		}
		return m.Reset()
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("rematch started", "match", matchID, "opener", m.Opener)
	s.publish(ctx, Event{Type: EventMatchUpdated, MatchID: matchID, Version: m.Version})
	return m, nil
}

// Delete removes a match. Only its players may do so; the check runs in the
// same store transaction as the removal.
func (s *MatchService) Delete(ctx context.Context, matchID, uid string) error {
	m, err := s.store.Delete(ctx, matchID, func(m *Match) error {
		if _, ok := m.SlotOf(uid); !ok {
			return ErrNotInMatch
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("match deleted", "match", matchID, "by", uid)
	s.publish(ctx, Event{Type: EventMatchDeleted, MatchID: matchID, Version: m.Version + 1})
	return nil
}

func (s *MatchService) ListOpen(ctx context.Context, limit int) ([]*Match, error) {
	return s.store.ListOpen(ctx, limit)
}

func (s *MatchService) ListForPlayer(ctx context.Context, uid string, limit int) ([]*Match, error) {
	return s.store.ListByPlayer(ctx, uid, limit)
}

func (s *MatchService) PruneOpen(ctx context.Context) (int, error) {
	return s.store.PruneIndexes(ctx)
}

func (s *MatchService) Subscribe(ctx context.Context, matchID string) (<-chan Event, func(), error) {
	return s.broker.Subscribe(ctx, matchID)
}

func (s *MatchService) update(ctx context.Context, matchID string, fn func(*Match) error) (*Match, error) {
	return s.store.Update(ctx, matchID, func(m *Match) error {
		if err := fn(m); err != nil {
			return err
		}
		m.UpdatedAt = s.now()
		return nil
	})
}

func (s *MatchService) recordWin(ctx context.Context, m *Match, winner Slot) {
	if s.stats == nil {
		return
	}
	w, _ := m.PlayerAt(winner)
	l, ok := m.PlayerAt(winner.Opponent())
	if !ok {
		return
	}
	if err := s.stats.RecordResult(ctx, w.UID, l.UID); err != nil {
		s.log.Error("record match result", "match", m.ID, "winner", w.UID, "err", err)
		return
	}
	s.log.Info("match resolved", "match", m.ID, "winner", w.UID, "score", m.Score)
}

func (s *MatchService) publish(ctx context.Context, ev Event) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(ctx, ev); err != nil {
		s.log.Warn("publish match event", "match", ev.MatchID, "type", ev.Type, "err", err)
	}
}

func randID(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b)
}
