package game

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MatchStore persists matches. Update must apply fn to a fresh copy and
// write the result only if nobody else changed the match in between; an
// error returned by fn aborts the write. Delete applies the same rule: check
// sees the current match and an error from it keeps the match in place.
type MatchStore interface {
	Create(ctx context.Context, m *Match) error
	Get(ctx context.Context, matchID string) (*Match, error)
	Update(ctx context.Context, matchID string, fn func(*Match) error) (*Match, error)
	Delete(ctx context.Context, matchID string, check func(*Match) error) (*Match, error)
	ListOpen(ctx context.Context, limit int) ([]*Match, error)
	ListByPlayer(ctx context.Context, uid string, limit int) ([]*Match, error)
	PruneIndexes(ctx context.Context) (int, error)
}

// InMemoryMatchStore keeps matches in process; used by tests and single-node runs.
type InMemoryMatchStore struct {
	mu sync.Mutex
	m  map[string]*Match
}

func NewInMemoryMatchStore() *InMemoryMatchStore {
	return &InMemoryMatchStore{
		m: make(map[string]*Match),
	}
}

func (s *InMemoryMatchStore) Create(ctx context.Context, m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[m.ID]; ok {
		return fmt.Errorf("match %s already exists", m.ID)
	}
	s.m[m.ID] = m.Clone()
	return nil
}

func (s *InMemoryMatchStore) Get(ctx context.Context, matchID string) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.m[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (s *InMemoryMatchStore) Update(ctx context.Context, matchID string, fn func(*Match) error) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.m[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Version++
	s.m[matchID] = next
	return next.Clone(), nil
}

func (s *InMemoryMatchStore) Delete(ctx context.Context, matchID string, check func(*Match) error) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.m[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if check != nil {
		if err := check(m.Clone()); err != nil {
			return nil, err
		}
	}
	delete(s.m, matchID)
	return m, nil
}

func (s *InMemoryMatchStore) ListOpen(ctx context.Context, limit int) ([]*Match, error) {
	return s.list(limit, func(m *Match) bool { return m.Open() }), nil
}

func (s *InMemoryMatchStore) ListByPlayer(ctx context.Context, uid string, limit int) ([]*Match, error) {
	return s.list(limit, func(m *Match) bool {
		_, ok := m.SlotOf(uid)
		return ok
	}), nil
}

// PruneIndexes is a no-op: the in-memory store has no secondary indexes.
func (s *InMemoryMatchStore) PruneIndexes(ctx context.Context) (int, error) {
	return 0, nil
}

// list returns matching entries, newest first.
func (s *InMemoryMatchStore) list(limit int, keep func(*Match) bool) []*Match {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Match, 0)
	for _, m := range s.m {
		if keep(m) {
			out = append(out, m.Clone())
		}
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortNewestFirst(ms []*Match) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].ID < ms[j].ID
		}
		return ms[i].CreatedAt.After(ms[j].CreatedAt)
	})
}
