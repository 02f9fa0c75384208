package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// sqlRepository holds the queries shared by the SQLite and PostgreSQL
// repositories. Queries are written with ? placeholders and rebound for
// drivers that number them.
type sqlRepository struct {
	db       *sql.DB
	numbered bool
}

const selectSessions = `
	SELECT id, user_id, exercise_id, difficulty, environment, step_count, elapsed_sec, started_at, completed_at
	FROM sessions
`

func (r *sqlRepository) createTables(ctx context.Context, schema string) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *sqlRepository) rebind(query string) string {
	if !r.numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (r *sqlRepository) SaveSession(ctx context.Context, record *SessionRecord) error {
	query := r.rebind(`
		INSERT INTO sessions (id, user_id, exercise_id, difficulty, environment, step_count, elapsed_sec, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.UserID,
		record.ExerciseID,
		record.Difficulty,
		record.Environment,
		record.StepCount,
		record.ElapsedSec,
		record.StartedAt,
		record.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", record.ID, err)
	}
	return nil
}

func (r *sqlRepository) GetSessionsByUser(ctx context.Context, userID string) ([]SessionRecord, error) {
	query := r.rebind(selectSessions + `
		WHERE user_id = ?
		ORDER BY completed_at DESC
	`)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (r *sqlRepository) GetRecentSessions(ctx context.Context, userID string, since time.Time) ([]SessionRecord, error) {
	query := r.rebind(selectSessions + `
		WHERE user_id = ? AND completed_at >= ?
		ORDER BY completed_at DESC
	`)

	rows, err := r.db.QueryContext(ctx, query, userID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (r *sqlRepository) GetSessionStats(ctx context.Context, userID string) (*SessionStats, error) {
	query := r.rebind(`
		SELECT exercise_id, COUNT(*), SUM(elapsed_sec)
		FROM sessions
		WHERE user_id = ?
		GROUP BY exercise_id
	`)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &SessionStats{ByExercise: make(map[string]int)}
	for rows.Next() {
		var (
			exercise string
			count    int
			total    sql.NullInt64
		)
		if err := rows.Scan(&exercise, &count, &total); err != nil {
			return nil, err
		}
		stats.ByExercise[exercise] = count
		stats.TotalSessions += count
		if total.Valid {
			stats.TotalTrainTime += int(total.Int64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if stats.TotalSessions > 0 {
		stats.AverageElapsed = float64(stats.TotalTrainTime) / float64(stats.TotalSessions)
	}

	return stats, nil
}

func scanSessions(rows *sql.Rows) ([]SessionRecord, error) {
	var records []SessionRecord

	for rows.Next() {
		var record SessionRecord

		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.ExerciseID,
			&record.Difficulty,
			&record.Environment,
			&record.StepCount,
			&record.ElapsedSec,
			&record.StartedAt,
			&record.CompletedAt,
		)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

func (r *sqlRepository) Close() error {
	return r.db.Close()
}
