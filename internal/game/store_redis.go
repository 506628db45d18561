package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	openIndexKey     = "matches:open"
	maxUpdateRetries = 8
)

// RedisMatchStore keeps one JSON snapshot per match plus two indexes:
// a sorted set of open matches and a set of match ids per player.
type RedisMatchStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisMatchStore(rdb *redis.Client, ttl time.Duration) *RedisMatchStore {
	return &RedisMatchStore{rdb: rdb, ttl: ttl}
}

func (s *RedisMatchStore) key(matchID string) string {
	return fmt.Sprintf("match:%s:snapshot", matchID)
}

func (s *RedisMatchStore) playerKey(uid string) string {
	return fmt.Sprintf("player:%s:matches", uid)
}

func (s *RedisMatchStore) Create(ctx context.Context, m *Match) error {
	b, err := encodeMatch(m)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, s.key(m.ID), b, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("match %s already exists", m.ID)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.index(ctx, pipe, m)
		return nil
	})
	return err
}

func (s *RedisMatchStore) Get(ctx context.Context, matchID string) (*Match, error) {
	b, err := s.rdb.Get(ctx, s.key(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeMatch(b)
}

func (s *RedisMatchStore) Update(ctx context.Context, matchID string, fn func(*Match) error) (*Match, error) {
	key := s.key(matchID)
	var out *Match

	txf := func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrMatchNotFound
		}
		if err != nil {
			return err
		}
		m, err := decodeMatch(b)
		if err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
		m.Version++
		nb, err := encodeMatch(m)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, nb, s.ttl)
			s.index(ctx, pipe, m)
			return nil
		})
		if err != nil {
			return err
		}
		out = m
		return nil
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, ErrConflict
}

// Delete removes the snapshot and its index entries in one WATCH-guarded
// transaction; check sees the same read the transaction is guarded on.
func (s *RedisMatchStore) Delete(ctx context.Context, matchID string, check func(*Match) error) (*Match, error) {
	key := s.key(matchID)
	var out *Match

	txf := func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrMatchNotFound
		}
		if err != nil {
			return err
		}
		m, err := decodeMatch(b)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(m); err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, openIndexKey, matchID)
			pipe.SRem(ctx, s.playerKey(m.P1.UID), matchID)
			if m.P2 != nil {
				pipe.SRem(ctx, s.playerKey(m.P2.UID), matchID)
			}
			return nil
		})
		if err != nil {
			return err
		}
		out = m
		return nil
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, ErrConflict
}

func (s *RedisMatchStore) ListOpen(ctx context.Context, limit int) ([]*Match, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.rdb.ZRevRange(ctx, openIndexKey, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	ms, _, err := s.load(ctx, ids)
	return ms, err
}

func (s *RedisMatchStore) ListByPlayer(ctx context.Context, uid string, limit int) ([]*Match, error) {
	ids, err := s.rdb.SMembers(ctx, s.playerKey(uid)).Result()
	if err != nil {
		return nil, err
	}
	ms, missing, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		members := make([]any, len(missing))
		for i, id := range missing {
			members[i] = id
		}
		_ = s.rdb.SRem(ctx, s.playerKey(uid), members...).Err()
	}

	sortNewestFirst(ms)
	if limit > 0 && len(ms) > limit {
		ms = ms[:limit]
	}
	return ms, nil
}

// PruneIndexes drops open-index entries whose snapshot has expired.
func (s *RedisMatchStore) PruneIndexes(ctx context.Context) (int, error) {
	ids, err := s.rdb.ZRange(ctx, openIndexKey, 0, -1).Result()
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	cmds := make([]*redis.IntCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.Exists(ctx, s.key(id))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	var stale []any
	for i, c := range cmds {
		if c.Val() == 0 {
			stale = append(stale, ids[i])
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	n, err := s.rdb.ZRem(ctx, openIndexKey, stale...).Result()
	return int(n), err
}

func (s *RedisMatchStore) index(ctx context.Context, pipe redis.Pipeliner, m *Match) {
	if m.Open() {
		pipe.ZAdd(ctx, openIndexKey, redis.Z{Score: float64(toMs(m.CreatedAt)), Member: m.ID})
	} else {
		pipe.ZRem(ctx, openIndexKey, m.ID)
	}

	uids := []string{m.P1.UID}
	if m.P2 != nil {
		uids = append(uids, m.P2.UID)
	}
	for _, uid := range uids {
		pipe.SAdd(ctx, s.playerKey(uid), m.ID)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.playerKey(uid), s.ttl)
		}
	}
}

// load fetches snapshots in order, reporting ids whose key no longer exists.
func (s *RedisMatchStore) load(ctx context.Context, ids []string) ([]*Match, []string, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, err
	}

	out := make([]*Match, 0, len(vals))
	var missing []string
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		m, err := decodeMatch([]byte(str))
		if err != nil {
			return nil, nil, fmt.Errorf("decode match %s: %w", ids[i], err)
		}
		out = append(out, m)
	}
	return out, missing, nil
}
