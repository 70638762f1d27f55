package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// LabRepository reads the lab directory.
type LabRepository struct {
	db *sqlx.DB
}

// NewLabRepository constructs the repository.
func NewLabRepository(db *sqlx.DB) *LabRepository {
	return &LabRepository{db: db}
}

// ListActiveIDs returns the ids of every active lab.
func (r *LabRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM labs WHERE active = TRUE ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list active labs: %w", err)
	}
	return ids, nil
}
