package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/labstock-api/internal/models"
)

const liveStockColumns = `id, chemical_batch_id, display_name, canonical_key, chemical_name, unit, expiry_date,
       quantity, original_quantity, is_allocated, lab_id, created_at, updated_at`

const batchColumns = `id, batch_code, name, display_name, canonical_key, vendor, unit, expiry_date,
       quantity, price, department, created_at, updated_at`

// ChemicalRepository persists chemical batches and their per-lab live stock.
type ChemicalRepository struct {
	db *sqlx.DB
}

// NewChemicalRepository constructs the repository.
func NewChemicalRepository(db *sqlx.DB) *ChemicalRepository {
	return &ChemicalRepository{db: db}
}

// CreateBatch inserts a batch master, its first live row and the intake ledger entry.
func (r *ChemicalRepository) CreateBatch(ctx context.Context, batch *models.ChemicalBatch, live *models.LiveStock, entry *models.LedgerEntry) error {
	now := time.Now().UTC()
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now
	if live.ID == "" {
		live.ID = uuid.NewString()
	}
	live.ChemicalBatchID = batch.ID
	if live.CreatedAt.IsZero() {
		live.CreatedAt = now
	}
	live.UpdatedAt = now

	return withTx(ctx, r.db, "chemical batch", func(tx *sqlx.Tx) error {
		const batchQuery = `INSERT INTO chemical_batches
	(id, batch_code, name, display_name, canonical_key, vendor, unit, expiry_date, quantity, price, department, created_at, updated_at)
	VALUES (:id, :batch_code, :name, :display_name, :canonical_key, :vendor, :unit, :expiry_date, :quantity, :price, :department, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, batchQuery, batch); err != nil {
			return fmt.Errorf("insert chemical batch: %w", err)
		}
		const liveQuery = `INSERT INTO chemical_live_stock
	(id, chemical_batch_id, display_name, canonical_key, chemical_name, unit, expiry_date, quantity, original_quantity, is_allocated, lab_id, created_at, updated_at)
	VALUES (:id, :chemical_batch_id, :display_name, :canonical_key, :chemical_name, :unit, :expiry_date, :quantity, :original_quantity, :is_allocated, :lab_id, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, liveQuery, live); err != nil {
			return fmt.Errorf("insert live stock: %w", err)
		}
		if entry != nil {
			entry.ResourceID = live.ID
		}
		return appendLedger(ctx, tx, entry)
	})
}

// ListBatches returns batch masters matching the filter ordered by expiry (absent last).
func (r *ChemicalRepository) ListBatches(ctx context.Context, filter models.BatchFilter) ([]models.ChemicalBatch, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + batchColumns + ` FROM chemical_batches`)

	conditions := make([]string, 0, 4)
	if filter.CanonicalKey != "" {
		args = append(args, filter.CanonicalKey)
		conditions = append(conditions, fmt.Sprintf("canonical_key = $%d", len(args)))
	}
	if filter.NamePattern != "" {
		args = append(args, filter.NamePattern)
		conditions = append(conditions, fmt.Sprintf("name ~* $%d", len(args)))
	}
	if filter.Vendor != "" {
		args = append(args, filter.Vendor)
		conditions = append(conditions, fmt.Sprintf("vendor = $%d", len(args)))
	}
	if filter.Unit != "" {
		args = append(args, filter.Unit)
		conditions = append(conditions, fmt.Sprintf("unit = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY expiry_date ASC NULLS LAST, created_at ASC")

	var batches []models.ChemicalBatch
	if err := r.db.SelectContext(ctx, &batches, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list chemical batches: %w", err)
	}
	return batches, nil
}

// MergeIntoBatch adds quantity to an existing batch and upserts the lab live row in one transaction.
func (r *ChemicalRepository) MergeIntoBatch(ctx context.Context, batchID string, amount decimal.Decimal, defaults models.LiveStock, entry *models.LedgerEntry) (*models.LiveStock, error) {
	var live *models.LiveStock
	err := withTx(ctx, r.db, "batch merge", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE chemical_batches SET quantity = quantity + $2, updated_at = NOW() WHERE id = $1`, batchID, amount)
		if err != nil {
			return fmt.Errorf("merge chemical batch: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("merge chemical batch rows affected: %w", err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
		defaults.ChemicalBatchID = batchID
		live, err = upsertLive(ctx, tx, defaults, amount)
		if err != nil {
			return err
		}
		if entry != nil {
			entry.ResourceID = live.ID
		}
		return appendLedger(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return live, nil
}

// RenameBatch renames the batch master and its live row at the given lab.
func (r *ChemicalRepository) RenameBatch(ctx context.Context, batchID, labID, name string) error {
	return withTx(ctx, r.db, "batch rename", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE chemical_batches SET name = $2, updated_at = NOW() WHERE id = $1`, batchID, name); err != nil {
			return fmt.Errorf("rename chemical batch: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE chemical_live_stock SET chemical_name = $3, updated_at = NOW()
	WHERE chemical_batch_id = $1 AND lab_id = $2`, batchID, labID, name); err != nil {
			return fmt.Errorf("rename live stock: %w", err)
		}
		return nil
	})
}

// ListLive returns live rows matching the filter ordered by expiry (absent last).
func (r *ChemicalRepository) ListLive(ctx context.Context, filter models.LiveStockFilter) ([]models.LiveStock, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + liveStockColumns + ` FROM chemical_live_stock`)

	conditions := make([]string, 0, 5)
	if filter.LabID != "" {
		args = append(args, filter.LabID)
		conditions = append(conditions, fmt.Sprintf("lab_id = $%d", len(args)))
	}
	if filter.DisplayName != "" {
		args = append(args, filter.DisplayName)
		conditions = append(conditions, fmt.Sprintf("display_name = $%d", len(args)))
	}
	if filter.CanonicalKey != "" {
		args = append(args, filter.CanonicalKey)
		conditions = append(conditions, fmt.Sprintf("canonical_key = $%d", len(args)))
	}
	if filter.NamePattern != "" {
		args = append(args, filter.NamePattern)
		conditions = append(conditions, fmt.Sprintf("chemical_name ~* $%d", len(args)))
	}
	if filter.PositiveOnly {
		conditions = append(conditions, "quantity > 0")
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY expiry_date ASC NULLS LAST, created_at ASC")

	var rows []models.LiveStock
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list live stock: %w", err)
	}
	return rows, nil
}

// GetLive fetches a live row by id.
func (r *ChemicalRepository) GetLive(ctx context.Context, id string) (*models.LiveStock, error) {
	var live models.LiveStock
	if err := r.db.GetContext(ctx, &live, `SELECT `+liveStockColumns+` FROM chemical_live_stock WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &live, nil
}

// DecrementLive subtracts amount only when the row still holds at least that much.
func (r *ChemicalRepository) DecrementLive(ctx context.Context, id string, amount decimal.Decimal, entry *models.LedgerEntry) (*models.LiveStock, error) {
	var live models.LiveStock
	err := withTx(ctx, r.db, "live stock decrement", func(tx *sqlx.Tx) error {
		query := `UPDATE chemical_live_stock SET quantity = quantity - $2, updated_at = NOW()
	WHERE id = $1 AND quantity >= $2 RETURNING ` + liveStockColumns
		if err := tx.GetContext(ctx, &live, query, id, amount); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrConditionFailed
			}
			return fmt.Errorf("decrement live stock: %w", err)
		}
		return appendLedger(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return &live, nil
}

// RestoreLive adds quantity back to an existing live row without touching its original quantity.
func (r *ChemicalRepository) RestoreLive(ctx context.Context, id string, amount decimal.Decimal, entry *models.LedgerEntry) (*models.LiveStock, error) {
	var live models.LiveStock
	err := withTx(ctx, r.db, "live stock restore", func(tx *sqlx.Tx) error {
		query := `UPDATE chemical_live_stock SET quantity = quantity + $2, updated_at = NOW()
	WHERE id = $1 RETURNING ` + liveStockColumns
		if err := tx.GetContext(ctx, &live, query, id, amount); err != nil {
			return fmt.Errorf("restore live stock: %w", err)
		}
		return appendLedger(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return &live, nil
}

// IncrementLive upserts the (batch, lab) live row, adding amount to an existing row.
func (r *ChemicalRepository) IncrementLive(ctx context.Context, defaults models.LiveStock, amount decimal.Decimal, entry *models.LedgerEntry) (*models.LiveStock, error) {
	var live *models.LiveStock
	err := withTx(ctx, r.db, "live stock increment", func(tx *sqlx.Tx) error {
		var err error
		live, err = upsertLive(ctx, tx, defaults, amount)
		if err != nil {
			return err
		}
		return appendLedger(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return live, nil
}

// DeleteLiveIfEmpty removes a live row only while its quantity is still zero.
func (r *ChemicalRepository) DeleteLiveIfEmpty(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chemical_live_stock WHERE id = $1 AND quantity = 0`, id)
	if err != nil {
		return false, fmt.Errorf("delete live stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete live stock rows affected: %w", err)
	}
	return affected > 0, nil
}

func upsertLive(ctx context.Context, tx *sqlx.Tx, defaults models.LiveStock, amount decimal.Decimal) (*models.LiveStock, error) {
	now := time.Now().UTC()
	if defaults.ID == "" {
		defaults.ID = uuid.NewString()
	}
	defaults.Quantity = amount
	defaults.OriginalQuantity = amount
	defaults.CreatedAt = now
	defaults.UpdatedAt = now

	query := `INSERT INTO chemical_live_stock
	(id, chemical_batch_id, display_name, canonical_key, chemical_name, unit, expiry_date, quantity, original_quantity, is_allocated, lab_id, created_at, updated_at)
	VALUES (:id, :chemical_batch_id, :display_name, :canonical_key, :chemical_name, :unit, :expiry_date, :quantity, :original_quantity, :is_allocated, :lab_id, :created_at, :updated_at)
	ON CONFLICT (chemical_batch_id, lab_id) DO UPDATE SET
		quantity = chemical_live_stock.quantity + EXCLUDED.quantity,
		original_quantity = chemical_live_stock.original_quantity + EXCLUDED.quantity,
		updated_at = EXCLUDED.updated_at
	RETURNING ` + liveStockColumns
	rows, err := sqlx.NamedQueryContext(ctx, tx, query, defaults)
	if err != nil {
		return nil, fmt.Errorf("upsert live stock: %w", err)
	}
	defer rows.Close()

	var live models.LiveStock
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("upsert live stock: %w", err)
		}
		return nil, fmt.Errorf("upsert live stock: %w", sql.ErrNoRows)
	}
	if err := rows.StructScan(&live); err != nil {
		return nil, fmt.Errorf("scan live stock: %w", err)
	}
	return &live, nil
}
