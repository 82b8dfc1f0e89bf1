package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/models"
	"github.com/lib/pq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS reports (
            id UUID PRIMARY KEY,
            sitemap VARCHAR(2048) NOT NULL,
            suffixes TEXT[] NOT NULL,
            total_urls INTEGER NOT NULL,
            count INTEGER NOT NULL,
            elapsed_ms BIGINT NOT NULL,
            urls_to_delete JSONB NOT NULL,
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
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

func (s *PostgresStore) SaveReport(ctx context.Context, record *models.ReportRecord) error {
	query := `
        INSERT INTO reports (id, sitemap, suffixes, total_urls, count, elapsed_ms, urls_to_delete, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `

	candidatesJSON, err := json.Marshal(record.URLsToDelete)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.Sitemap,
		pq.Array(record.Suffixes),
		record.TotalURLs,
		record.Count,
		record.ElapsedMS,
		candidatesJSON,
		record.CreatedAt,
	)

	return err
}

func (s *PostgresStore) GetReport(ctx context.Context, id uuid.UUID) (*models.ReportRecord, error) {
	query := `
        SELECT id, sitemap, suffixes, total_urls, count, elapsed_ms, urls_to_delete, created_at
        FROM reports
        WHERE id = $1
    `

	record, err := s.scan(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (s *PostgresStore) ListReports(ctx context.Context, limit, offset int) ([]*models.ReportRecord, error) {
	query := `
        SELECT id, sitemap, suffixes, total_urls, count, elapsed_ms, urls_to_delete, created_at
        FROM reports
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2
    `

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ReportRecord
	for rows.Next() {
		record, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) scan(row rowScanner) (*models.ReportRecord, error) {
	record := &models.ReportRecord{}
	var suffixes []string
	var candidates []byte

	err := row.Scan(
		&record.ID,
		&record.Sitemap,
		pq.Array(&suffixes),
		&record.TotalURLs,
		&record.Count,
		&record.ElapsedMS,
		&candidates,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Suffixes = suffixes
	if err := json.Unmarshal(candidates, &record.URLsToDelete); err != nil {
		return nil, fmt.Errorf("invalid candidates for report %s: %w", record.ID, err)
	}

	return record, nil
}
