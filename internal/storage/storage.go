package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/models"
)

// Store archives finished reports. Collection state is never stored.
type Store interface {
	Initialize() error
	Close() error

	SaveReport(ctx context.Context, record *models.ReportRecord) error
	GetReport(ctx context.Context, id uuid.UUID) (*models.ReportRecord, error)
	ListReports(ctx context.Context, limit, offset int) ([]*models.ReportRecord, error)
}

// Open returns the store for driver ("sqlite" or "postgres") with its tables
// created. An empty driver disables archiving and returns a nil Store.
func Open(driver, url string) (Store, error) {
	var (
		store Store
		err   error
	)

	switch driver {
	case "":
		return nil, nil
	case "sqlite", "sqlite3":
		store, err = NewSQLiteStore(url)
	case "postgres", "postgresql":
		store, err = NewPostgresStore(url)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}

	if err := store.Initialize(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize database tables: %w", err)
	}
	return store, nil
}
