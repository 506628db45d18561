package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlayerStats struct {
	UserID    string
	Wins      int
	Losses    int
	UpdatedAt time.Time
}

// RankedPlayer is one row of the leaderboard.
type RankedPlayer struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
}

type StatsStore struct {
	db *pgxpool.Pool
}

func NewStatsStore(db *pgxpool.Pool) *StatsStore {
	return &StatsStore{db: db}
}

func (s *StatsStore) Get(ctx context.Context, userID string) (PlayerStats, error) {
	var st PlayerStats
	err := s.db.QueryRow(ctx, `
		SELECT user_id, wins, losses, updated_at
		FROM player_stats
		WHERE user_id = $1
	`, userID).Scan(&st.UserID, &st.Wins, &st.Losses, &st.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		// players who never finished a match have no row yet
		return PlayerStats{UserID: userID}, nil
	}
	if err != nil {
		return PlayerStats{}, err
	}
	return st, nil
}

// RecordResult adds one win and one loss in a single transaction.
func (s *StatsStore) RecordResult(ctx context.Context, winnerID, loserID string) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO player_stats (user_id, wins) VALUES ($1, 1)
			ON CONFLICT (user_id) DO UPDATE
			SET wins = player_stats.wins + 1, updated_at = now()
		`, winnerID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO player_stats (user_id, losses) VALUES ($1, 1)
			ON CONFLICT (user_id) DO UPDATE
			SET losses = player_stats.losses + 1, updated_at = now()
		`, loserID)
		return err
	})
}

// ListTop returns players ordered by wins, then fewer losses.
func (s *StatsStore) ListTop(ctx context.Context, limit int) ([]RankedPlayer, error) {
	rows, err := s.db.Query(ctx, `
		SELECT u.id, u.display_name, st.wins, st.losses
		FROM player_stats st
		JOIN users u ON u.id = st.user_id
		WHERE st.wins + st.losses > 0
		ORDER BY st.wins DESC, st.losses ASC, u.display_name ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RankedPlayer, error) {
		var p RankedPlayer
		err := row.Scan(&p.UserID, &p.DisplayName, &p.Wins, &p.Losses)
		return p, err
	})
}
