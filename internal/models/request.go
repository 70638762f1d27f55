package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus captures the fulfilment workflow states.
type RequestStatus string

const (
	RequestStatusPending            RequestStatus = "pending"
	RequestStatusApproved           RequestStatus = "approved"
	RequestStatusRejected           RequestStatus = "rejected"
	RequestStatusPartiallyFulfilled RequestStatus = "partially_fulfilled"
	RequestStatusFulfilled          RequestStatus = "fulfilled"
	RequestStatusCompleted          RequestStatus = "completed"
)

// Request is a faculty request for stock spanning one or more experiments.
type Request struct {
	ID          string        `db:"id" json:"id"`
	FacultyID   string        `db:"faculty_id" json:"facultyId"`
	LabID       string        `db:"lab_id" json:"labId"`
	Status      RequestStatus `db:"status" json:"status"`
	Experiments Experiments   `db:"experiments" json:"experiments"`
	Remarks     *string       `db:"remarks" json:"remarks,omitempty"`
	ApprovedBy  *string       `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt  *time.Time    `db:"approved_at" json:"approvedAt,omitempty"`
	RejectedBy  *string       `db:"rejected_by" json:"rejectedBy,omitempty"`
	RejectedAt  *time.Time    `db:"rejected_at" json:"rejectedAt,omitempty"`
	CompletedAt *time.Time    `db:"completed_at" json:"completedAt,omitempty"`
	Version     int           `db:"version" json:"version"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
}

// RequestFilter constrains listing queries.
type RequestFilter struct {
	Status    []RequestStatus
	FacultyID string
	LabID     string
	Limit     int
	Offset    int
}

// DateGateReason is the machine readable outcome of the experiment date rules.
type DateGateReason string

const (
	DateGateAdminGrace        DateGateReason = "admin_grace"
	DateGateAdminOverride     DateGateReason = "admin_override"
	DateGateExpiredAdminOnly  DateGateReason = "date_expired_admin_only"
	DateGateExpiredCompletely DateGateReason = "date_expired_completely"
)

// ExperimentAllocationStatus snapshots the last date gate evaluation for an experiment.
type ExperimentAllocationStatus struct {
	Allowed       bool           `json:"allowed"`
	Reason        DateGateReason `json:"reason,omitempty"`
	DaysOverdue   int            `json:"daysOverdue,omitempty"`
	DaysRemaining int            `json:"daysRemaining,omitempty"`
	EvaluatedAt   time.Time      `json:"evaluatedAt"`
}

// Experiment groups the three independent item lists for one experiment date.
type Experiment struct {
	ID               string                      `json:"id"`
	Name             string                      `json:"name"`
	Date             time.Time                   `json:"date"`
	AdminOverride    bool                        `json:"adminOverride"`
	OverrideBy       *string                     `json:"overrideBy,omitempty"`
	OverrideAt       *time.Time                  `json:"overrideAt,omitempty"`
	AllocationStatus *ExperimentAllocationStatus `json:"allocationStatus,omitempty"`
	Chemicals        []ChemicalRequestItem       `json:"chemicals"`
	Glassware        []GlasswareRequestItem      `json:"glassware"`
	Equipment        []EquipmentRequestItem      `json:"equipment"`
}

// AllocationRecord is one append-only entry of an item's allocation history.
type AllocationRecord struct {
	Quantity    decimal.Decimal `json:"quantity"`
	ItemIDs     []string        `json:"itemIds,omitempty"`
	AllocatedBy string          `json:"allocatedBy"`
	LabID       string          `json:"labId"`
	AllocatedAt time.Time       `json:"allocatedAt"`
}

// ChemicalRequestItem requests a quantity of a chemical by display name.
type ChemicalRequestItem struct {
	ID                string             `json:"id"`
	ChemicalName      string             `json:"chemicalName"`
	Unit              string             `json:"unit,omitempty"`
	Quantity          decimal.Decimal    `json:"quantity"`
	AllocatedQuantity decimal.Decimal    `json:"allocatedQuantity"`
	IsAllocated       bool               `json:"isAllocated"`
	IsDisabled        bool               `json:"isDisabled"`
	DisabledReason    string             `json:"disabledReason,omitempty"`
	AllocationHistory []AllocationRecord `json:"allocationHistory"`
}

// GlasswareRequestItem requests a count of a glassware product.
type GlasswareRequestItem struct {
	ID                string             `json:"id"`
	ProductID         string             `json:"productId"`
	Name              string             `json:"name"`
	Variant           string             `json:"variant,omitempty"`
	Quantity          int                `json:"quantity"`
	AllocatedQuantity int                `json:"allocatedQuantity"`
	IsAllocated       bool               `json:"isAllocated"`
	IsDisabled        bool               `json:"isDisabled"`
	DisabledReason    string             `json:"disabledReason,omitempty"`
	AllocationHistory []AllocationRecord `json:"allocationHistory"`
}

// EquipmentRequestItem requests a number of serialized units of a product variant.
type EquipmentRequestItem struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Variant           string             `json:"variant,omitempty"`
	Quantity          int                `json:"quantity"`
	AllocatedItemIDs  []string           `json:"allocatedItemIds"`
	IsAllocated       bool               `json:"isAllocated"`
	IsDisabled        bool               `json:"isDisabled"`
	DisabledReason    string             `json:"disabledReason,omitempty"`
	AllocationHistory []AllocationRecord `json:"allocationHistory"`
}

// Experiments is persisted as a single JSON document column.
type Experiments []Experiment

// Value implements driver.Valuer.
func (e Experiments) Value() (driver.Value, error) {
	if e == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(e)
}

// Scan implements sql.Scanner.
func (e *Experiments) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*e = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan experiments: unsupported type %T", src)
	}
	return json.Unmarshal(raw, e)
}

// Clone returns a deep copy so callers can mutate experiments without aliasing stored documents.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	clone := *r
	raw, err := json.Marshal(r.Experiments)
	if err == nil {
		var exps Experiments
		if json.Unmarshal(raw, &exps) == nil {
			clone.Experiments = exps
		}
	}
	return &clone
}

// FindExperiment returns a pointer into the request's experiments.
func (r *Request) FindExperiment(id string) *Experiment {
	for i := range r.Experiments {
		if r.Experiments[i].ID == id {
			return &r.Experiments[i]
		}
	}
	return nil
}
