package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yearjam/yearjam/internal/api"
)

// ScoreRepository is the score ledger: idempotent-append plus a ranked
// read aggregate.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

// Append records one point event for a user.
func (r *ScoreRepository) Append(ctx context.Context, userID uuid.UUID, points int) error {
	query := `
		INSERT INTO scores (id, user_id, points, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query, uuid.New(), userID, points, time.Now())
	if err != nil {
		return fmt.Errorf("inserting score: %w", err)
	}
	return nil
}

// Leaderboard returns the top users by total points. Ties break on games
// played (more first), then username ascending.
func (r *ScoreRepository) Leaderboard(ctx context.Context, limit int) ([]api.LeaderboardEntry, error) {
	query := `
		SELECT u.username, SUM(s.points) AS total_points, COUNT(*) AS games
		FROM scores s
		JOIN users u ON u.id = s.user_id
		GROUP BY s.user_id, u.username
		ORDER BY total_points DESC, games DESC, u.username ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []api.LeaderboardEntry{}
	for rows.Next() {
		var e api.LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Points, &e.Games); err != nil {
			return nil, fmt.Errorf("scanning leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading leaderboard rows: %w", err)
	}
	return entries, nil
}

// UserTotal returns the aggregate points for one user, 0 when they have no
// score events yet.
func (r *ScoreRepository) UserTotal(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COALESCE(SUM(points), 0) FROM scores WHERE user_id = $1`
	var total int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("querying user total: %w", err)
	}
	return total, nil
}
