package supabase

import (
	"context"
	"database/sql"
	"fmt"

	"bootcamp-cert-minter/internal/models"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

const defaultListLimit = 100

// DatabaseClient stores mint history in the certificate_mints table.
type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// NewDatabaseClientFromDB wraps an already opened handle.
func NewDatabaseClientFromDB(db *sql.DB) *DatabaseClient {
	return &DatabaseClient{db: db}
}

// DB exposes the handle for the migrator.
func (d *DatabaseClient) DB() *sql.DB {
	return d.db
}

func (d *DatabaseClient) InsertMint(ctx context.Context, mint *models.Mint) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO certificate_mints (
			id, batch_id, owner, subject_name, completion_date, layout, status,
			image_address, metadata_address, tx_hash, preview_url, error_code, error_message
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, mint.ID, mint.BatchID, mint.Owner, mint.SubjectName, mint.CompletionDate, mint.Layout, mint.Status,
		mint.ImageAddress, mint.MetadataAddress, mint.TxHash, mint.PreviewURL, mint.ErrorCode, mint.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to insert mint: %w", err)
	}
	return nil
}

func (d *DatabaseClient) GetMint(ctx context.Context, id uuid.UUID) (*models.Mint, error) {
	var mint models.Mint
	err := d.db.QueryRowContext(ctx, `
		SELECT id, batch_id, owner, subject_name, completion_date, layout, status,
			image_address, metadata_address, tx_hash, preview_url, error_code, error_message, created_at
		FROM certificate_mints
		WHERE id = $1
	`, id).Scan(scanTargets(&mint)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get mint: %w", err)
	}
	return &mint, nil
}

// ListMints returns the newest mints for owner. Owner matching ignores case
// so checksummed and lowercase addresses find the same rows.
func (d *DatabaseClient) ListMints(ctx context.Context, owner string, limit int) ([]models.Mint, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, batch_id, owner, subject_name, completion_date, layout, status,
			image_address, metadata_address, tx_hash, preview_url, error_code, error_message, created_at
		FROM certificate_mints
		WHERE lower(owner) = lower($1)
		ORDER BY created_at DESC
		LIMIT $2
	`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list mints: %w", err)
	}
	defer rows.Close()

	mints := make([]models.Mint, 0)
	for rows.Next() {
		var mint models.Mint
		if err := rows.Scan(scanTargets(&mint)...); err != nil {
			return nil, fmt.Errorf("failed to scan mint: %w", err)
		}
		mints = append(mints, mint)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list mints: %w", err)
	}

	return mints, nil
}

// Ping backs the health check.
func (d *DatabaseClient) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}

func scanTargets(m *models.Mint) []interface{} {
	return []interface{}{
		&m.ID, &m.BatchID, &m.Owner, &m.SubjectName, &m.CompletionDate, &m.Layout, &m.Status,
		&m.ImageAddress, &m.MetadataAddress, &m.TxHash, &m.PreviewURL, &m.ErrorCode, &m.ErrorMessage, &m.CreatedAt,
	}
}
