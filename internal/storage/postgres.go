package storage

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		exercise_id TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		environment TEXT NOT NULL,
		step_count INTEGER NOT NULL,
		elapsed_sec INTEGER NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_user_id ON sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_completed_at ON sessions(completed_at);
`

type PostgresRepository struct {
	sqlRepository
}

func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	repo := &PostgresRepository{sqlRepository{db: db, numbered: true}}
	if err := repo.createTables(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}
