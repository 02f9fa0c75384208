package storage

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		exercise_id TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		environment TEXT NOT NULL,
		step_count INTEGER NOT NULL,
		elapsed_sec INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		completed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_user_id ON sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_completed_at ON sessions(completed_at);
`

type SQLiteRepository struct {
	sqlRepository
}

func NewSQLiteRepository(ctx context.Context, dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// a single connection keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	repo := &SQLiteRepository{sqlRepository{db: db}}
	if err := repo.createTables(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}
