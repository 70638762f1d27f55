package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/labstock-api/internal/models"
)

// OutOfStockRepository manages the registry of exhausted display names.
type OutOfStockRepository struct {
	db *sqlx.DB
}

// NewOutOfStockRepository constructs the repository.
func NewOutOfStockRepository(db *sqlx.DB) *OutOfStockRepository {
	return &OutOfStockRepository{db: db}
}

// Upsert records the exhaustion time for a display name, keeping a single row per name.
func (r *OutOfStockRepository) Upsert(ctx context.Context, entry *models.OutOfStockEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.LastOutOfStockAt.IsZero() {
		entry.LastOutOfStockAt = time.Now().UTC()
	}
	const query = `INSERT INTO chemical_out_of_stock (id, display_name, unit, vendor, last_out_of_stock_at)
	VALUES (:id, :display_name, :unit, :vendor, :last_out_of_stock_at)
	ON CONFLICT (display_name) DO UPDATE SET
		unit = EXCLUDED.unit,
		vendor = EXCLUDED.vendor,
		last_out_of_stock_at = EXCLUDED.last_out_of_stock_at`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("upsert out of stock entry: %w", err)
	}
	return nil
}

// Get returns the entry for a display name.
func (r *OutOfStockRepository) Get(ctx context.Context, displayName string) (*models.OutOfStockEntry, error) {
	const query = `SELECT id, display_name, unit, vendor, last_out_of_stock_at FROM chemical_out_of_stock WHERE display_name = $1`
	var entry models.OutOfStockEntry
	if err := r.db.GetContext(ctx, &entry, query, displayName); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns every registered entry, most recent first.
func (r *OutOfStockRepository) List(ctx context.Context) ([]models.OutOfStockEntry, error) {
	const query = `SELECT id, display_name, unit, vendor, last_out_of_stock_at FROM chemical_out_of_stock ORDER BY last_out_of_stock_at DESC`
	var entries []models.OutOfStockEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list out of stock entries: %w", err)
	}
	return entries, nil
}

// Delete removes the entry for a display name and reports whether one existed.
func (r *OutOfStockRepository) Delete(ctx context.Context, displayName string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chemical_out_of_stock WHERE display_name = $1`, displayName)
	if err != nil {
		return false, fmt.Errorf("delete out of stock entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete out of stock rows affected: %w", err)
	}
	return affected > 0, nil
}
