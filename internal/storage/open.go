package storage

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnknownDriver = errors.New("unknown database driver")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Open returns the repository for driver. dsn is a file path for sqlite and
// a connection string for postgres.
func Open(ctx context.Context, driver, dsn string) (Repository, error) {
	switch driver {
	case DriverSQLite:
		return NewSQLiteRepository(ctx, dsn)
	case DriverPostgres:
		return NewPostgresRepository(ctx, dsn)
	case DriverMemory:
		return NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
