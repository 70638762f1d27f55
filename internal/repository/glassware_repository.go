package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/labstock-api/internal/models"
)

const glasswareColumns = `id, product_id, name, variant, quantity, lab_id, updated_at`

// GlasswareRepository persists per-lab glassware quantities.
type GlasswareRepository struct {
	db *sqlx.DB
}

// NewGlasswareRepository constructs the repository.
func NewGlasswareRepository(db *sqlx.DB) *GlasswareRepository {
	return &GlasswareRepository{db: db}
}

// Find returns the stock row of a product at a lab.
func (r *GlasswareRepository) Find(ctx context.Context, productID, labID string) (*models.GlasswareStock, error) {
	var stock models.GlasswareStock
	query := `SELECT ` + glasswareColumns + ` FROM glassware_stock WHERE product_id = $1 AND lab_id = $2`
	if err := r.db.GetContext(ctx, &stock, query, productID, labID); err != nil {
		return nil, err
	}
	return &stock, nil
}

// Decrement subtracts qty only when the row still holds at least that much.
func (r *GlasswareRepository) Decrement(ctx context.Context, id string, qty int, entry *models.LedgerEntry) (*models.GlasswareStock, error) {
	var stock models.GlasswareStock
	err := withTx(ctx, r.db, "glassware decrement", func(tx *sqlx.Tx) error {
		query := `UPDATE glassware_stock SET quantity = quantity - $2, updated_at = NOW()
	WHERE id = $1 AND quantity >= $2 RETURNING ` + glasswareColumns
		if err := tx.GetContext(ctx, &stock, query, id, qty); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrConditionFailed
			}
			return fmt.Errorf("decrement glassware: %w", err)
		}
		return appendLedger(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

// Increment upserts the (product, lab) row, adding qty to an existing row.
func (r *GlasswareRepository) Increment(ctx context.Context, defaults models.GlasswareStock, qty int, entry *models.LedgerEntry) (*models.GlasswareStock, error) {
	if defaults.ID == "" {
		defaults.ID = uuid.NewString()
	}
	defaults.Quantity = qty
	defaults.UpdatedAt = time.Now().UTC()

	var stock models.GlasswareStock
	err := withTx(ctx, r.db, "glassware increment", func(tx *sqlx.Tx) error {
		query := `INSERT INTO glassware_stock (id, product_id, name, variant, quantity, lab_id, updated_at)
	VALUES (:id, :product_id, :name, :variant, :quantity, :lab_id, :updated_at)
	ON CONFLICT (product_id, lab_id) DO UPDATE SET
		quantity = glassware_stock.quantity + EXCLUDED.quantity,
		updated_at = EXCLUDED.updated_at
	RETURNING ` + glasswareColumns
		rows, err := sqlx.NamedQueryContext(ctx, tx, query, defaults)
		if err != nil {
			return fmt.Errorf("upsert glassware: %w", err)
		}
		if !rows.Next() {
			_ = rows.Close()
			return fmt.Errorf("upsert glassware: %w", sql.ErrNoRows)
		}
		if err := rows.StructScan(&stock); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan glassware: %w", err)
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("close glassware rows: %w", err)
		}
		if entry != nil {
			entry.ResourceID = stock.ID
		}
		return appendLedger(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return &stock, nil
}
