package game

import (
	"context"
	"sync"
)

const (
	EventMatchUpdated = "match_updated"
	EventMatchDeleted = "match_deleted"
)

// Event tells subscribers that a match changed. Receivers re-read the match
// to build their own view.
type Event struct {
	Type    string   `json:"type"`
	MatchID string   `json:"matchId"`
	Version int64    `json:"version"`
	Guess   *Outcome `json:"guess,omitempty"`
}

// Broker fans match events out to every subscriber of that match.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe delivers events until cancel is called or ctx ends.
	Subscribe(ctx context.Context, matchID string) (events <-chan Event, cancel func(), err error)
}

// LocalBroker delivers events inside one process.
type LocalBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[string]map[chan Event]struct{})}
}

func (b *LocalBroker) Publish(ctx context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[ev.MatchID] {
		select {
		case ch <- ev:
		default:
			// slow subscriber: it will catch up on the next event
		}
	}
	return nil
}

func (b *LocalBroker) Subscribe(ctx context.Context, matchID string) (<-chan Event, func(), error) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	if b.subs[matchID] == nil {
		b.subs[matchID] = make(map[chan Event]struct{})
	}
	b.subs[matchID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[matchID], ch)
			if len(b.subs[matchID]) == 0 {
				delete(b.subs, matchID)
			}
			close(ch)
			b.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}
