package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// A single connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS reports (
            id TEXT PRIMARY KEY,
            sitemap TEXT NOT NULL,
            suffixes TEXT NOT NULL,
            total_urls INTEGER NOT NULL,
            count INTEGER NOT NULL,
            elapsed_ms INTEGER NOT NULL,
            urls_to_delete TEXT NOT NULL,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_sitemap ON reports(sitemap)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}

	return nil
}

func (s *SQLiteStore) SaveReport(ctx context.Context, record *models.ReportRecord) error {
	query := `
        INSERT INTO reports (id, sitemap, suffixes, total_urls, count, elapsed_ms, urls_to_delete, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `

	suffixesJSON, err := json.Marshal(record.Suffixes)
	if err != nil {
		return err
	}
	candidatesJSON, err := json.Marshal(record.URLsToDelete)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query,
		record.ID.String(),
		record.Sitemap,
		string(suffixesJSON),
		record.TotalURLs,
		record.Count,
		record.ElapsedMS,
		string(candidatesJSON),
		record.CreatedAt,
	)

	return err
}

func (s *SQLiteStore) GetReport(ctx context.Context, id uuid.UUID) (*models.ReportRecord, error) {
	query := `
        SELECT id, sitemap, suffixes, total_urls, count, elapsed_ms, urls_to_delete, created_at
        FROM reports
        WHERE id = ?
    `

	record, err := scanReport(s.db.QueryRowContext(ctx, query, id.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, limit, offset int) ([]*models.ReportRecord, error) {
	query := `
        SELECT id, sitemap, suffixes, total_urls, count, elapsed_ms, urls_to_delete, created_at
        FROM reports
        ORDER BY created_at DESC
        LIMIT ? OFFSET ?
    `

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ReportRecord
	for rows.Next() {
		record, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*models.ReportRecord, error) {
	var record models.ReportRecord
	var idStr, suffixes, candidates string

	err := row.Scan(
		&idStr,
		&record.Sitemap,
		&suffixes,
		&record.TotalURLs,
		&record.Count,
		&record.ElapsedMS,
		&candidates,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if record.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid report id %q: %w", idStr, err)
	}
	if err := json.Unmarshal([]byte(suffixes), &record.Suffixes); err != nil {
		return nil, fmt.Errorf("invalid suffixes for report %s: %w", idStr, err)
	}
	if err := json.Unmarshal([]byte(candidates), &record.URLsToDelete); err != nil {
		return nil, fmt.Errorf("invalid candidates for report %s: %w", idStr, err)
	}

	return &record, nil
}
