package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/labstock-api/internal/models"
)

const equipmentColumns = `id, item_id, product_id, name, variant, status, lab_id, assigned_to, updated_at`

// EquipmentRepository persists serialized equipment units.
type EquipmentRepository struct {
	db *sqlx.DB
}

// NewEquipmentRepository constructs the repository.
func NewEquipmentRepository(db *sqlx.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

// FindUnit fetches a unit by its serialized item id.
func (r *EquipmentRepository) FindUnit(ctx context.Context, itemID string) (*models.EquipmentUnit, error) {
	var unit models.EquipmentUnit
	if err := r.db.GetContext(ctx, &unit, `SELECT `+equipmentColumns+` FROM equipment_units WHERE item_id = $1`, itemID); err != nil {
		return nil, err
	}
	return &unit, nil
}

// ListUnits returns units matching the filter ordered by item id.
func (r *EquipmentRepository) ListUnits(ctx context.Context, filter models.EquipmentFilter) ([]models.EquipmentUnit, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + equipmentColumns + ` FROM equipment_units`)

	conditions := make([]string, 0, 4)
	if filter.Name != "" {
		args = append(args, filter.Name)
		conditions = append(conditions, fmt.Sprintf("LOWER(name) = LOWER($%d)", len(args)))
	}
	if filter.Variant != "" {
		args = append(args, filter.Variant)
		conditions = append(conditions, fmt.Sprintf("variant = $%d", len(args)))
	}
	if filter.LabID != "" {
		args = append(args, filter.LabID)
		conditions = append(conditions, fmt.Sprintf("lab_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY item_id ASC")
	if filter.Limit > 0 {
		builder.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
	}

	var units []models.EquipmentUnit
	if err := r.db.SelectContext(ctx, &units, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list equipment units: %w", err)
	}
	return units, nil
}

// TransitionUnit moves a unit to a new status only if it still holds the expected status (and lab when given).
func (r *EquipmentRepository) TransitionUnit(ctx context.Context, transition models.UnitTransition, entry *models.LedgerEntry) (*models.EquipmentUnit, error) {
	var unit models.EquipmentUnit
	err := withTx(ctx, r.db, "equipment transition", func(tx *sqlx.Tx) error {
		args := []interface{}{transition.ItemID, transition.NewStatus, transition.NewLabID, transition.AssignedTo, transition.ExpectedStatus}
		query := `UPDATE equipment_units SET status = $2, lab_id = $3, assigned_to = $4, updated_at = NOW()
	WHERE item_id = $1 AND status = $5`
		if transition.ExpectedLabID != "" {
			args = append(args, transition.ExpectedLabID)
			query += " AND lab_id = $6"
		}
		query += " RETURNING " + equipmentColumns
		if err := tx.GetContext(ctx, &unit, query, args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrConditionFailed
			}
			return fmt.Errorf("transition equipment unit: %w", err)
		}
		if entry != nil {
			entry.ResourceID = unit.ItemID
		}
		return appendLedger(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return &unit, nil
}
