package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResourceKind distinguishes the three stock categories.
type ResourceKind string

const (
	ResourceChemical  ResourceKind = "chemical"
	ResourceEquipment ResourceKind = "equipment"
	ResourceGlassware ResourceKind = "glassware"
)

// LedgerEntryType classifies a stock movement.
type LedgerEntryType string

const (
	LedgerEntryIntake       LedgerEntryType = "entry"
	LedgerEntryAllocation   LedgerEntryType = "allocation"
	LedgerEntryIssue        LedgerEntryType = "issue"
	LedgerEntryRollback     LedgerEntryType = "rollback"
	LedgerEntryStatusChange LedgerEntryType = "status_change"
)

// LedgerEntry is an append-only record of a quantity or status change.
type LedgerEntry struct {
	ID             string           `db:"id" json:"id"`
	Kind           ResourceKind     `db:"kind" json:"kind"`
	Type           LedgerEntryType  `db:"type" json:"type"`
	ResourceID     string           `db:"resource_id" json:"resourceId"`
	ResourceName   string           `db:"resource_name" json:"resourceName"`
	FromLabID      *string          `db:"from_lab_id" json:"fromLabId,omitempty"`
	ToLabID        *string          `db:"to_lab_id" json:"toLabId,omitempty"`
	Quantity       *decimal.Decimal `db:"quantity" json:"quantity,omitempty"`
	Unit           string           `db:"unit" json:"unit,omitempty"`
	PreviousStatus *string          `db:"previous_status" json:"previousStatus,omitempty"`
	NewStatus      *string          `db:"new_status" json:"newStatus,omitempty"`
	RequestID      *string          `db:"request_id" json:"requestId,omitempty"`
	PerformedBy    string           `db:"performed_by" json:"performedBy"`
	CreatedAt      time.Time        `db:"created_at" json:"createdAt"`
}

// LedgerFilter constrains ledger listing queries.
type LedgerFilter struct {
	Kind       ResourceKind
	ResourceID string
	RequestID  string
	LabID      string
	Limit      int
	Offset     int
}
