package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/labstock-api/internal/models"
)

const requestColumns = `id, faculty_id, lab_id, status, experiments, remarks, approved_by, approved_at,
       rejected_by, rejected_at, completed_at, version, created_at, updated_at`

// RequestRepository persists fulfilment requests as versioned documents.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request document at version 1.
func (r *RequestRepository) Create(ctx context.Context, req *models.Request) error {
	now := time.Now().UTC()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.RequestStatusPending
	}
	req.Version = 1
	req.CreatedAt = now
	req.UpdatedAt = now
	const query = `INSERT INTO lab_requests
	(id, faculty_id, lab_id, status, experiments, remarks, approved_by, approved_at, rejected_by, rejected_at, completed_at, version, created_at, updated_at)
	VALUES (:id, :faculty_id, :lab_id, :status, :experiments, :remarks, :approved_by, :approved_at, :rejected_by, :rejected_at, :completed_at, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// GetByID fetches a request document.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	var req models.Request
	if err := r.db.GetContext(ctx, &req, `SELECT `+requestColumns+` FROM lab_requests WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests matching the filter (latest first) and the total count.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error) {
	args := make([]interface{}, 0, 6)
	conditions := make([]string, 0, 3)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.FacultyID != "" {
		args = append(args, filter.FacultyID)
		conditions = append(conditions, fmt.Sprintf("faculty_id = $%d", len(args)))
	}
	if filter.LabID != "" {
		args = append(args, filter.LabID)
		conditions = append(conditions, fmt.Sprintf("lab_id = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM lab_requests"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf("SELECT %s FROM lab_requests%s ORDER BY created_at DESC LIMIT %d OFFSET %d", requestColumns, where, limit, offset)
	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}
	return requests, total, nil
}

// Update saves the document only if its stored version still equals req.Version, then bumps the version.
func (r *RequestRepository) Update(ctx context.Context, req *models.Request) error {
	req.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lab_requests SET status = :status, experiments = :experiments, remarks = :remarks,
	approved_by = :approved_by, approved_at = :approved_at, rejected_by = :rejected_by, rejected_at = :rejected_at,
	completed_at = :completed_at, version = version + 1, updated_at = :updated_at
	WHERE id = :id AND version = :version`
	res, err := r.db.NamedExecContext(ctx, query, req)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update request rows affected: %w", err)
	}
	if affected == 0 {
		return ErrConditionFailed
	}
	req.Version++
	return nil
}
