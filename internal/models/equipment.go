package models

import "time"

// EquipmentStatus captures the lifecycle of a serialized unit.
type EquipmentStatus string

const (
	EquipmentStatusAvailable   EquipmentStatus = "Available"
	EquipmentStatusIssued      EquipmentStatus = "Issued"
	EquipmentStatusAssigned    EquipmentStatus = "Assigned"
	EquipmentStatusMaintenance EquipmentStatus = "Maintenance"
	EquipmentStatusDamaged     EquipmentStatus = "Damaged"
)

// EquipmentUnit is one physical serialized item. Allocation moves units by identity.
type EquipmentUnit struct {
	ID         string          `db:"id" json:"id"`
	ItemID     string          `db:"item_id" json:"itemId"`
	ProductID  string          `db:"product_id" json:"productId"`
	Name       string          `db:"name" json:"name"`
	Variant    string          `db:"variant" json:"variant,omitempty"`
	Status     EquipmentStatus `db:"status" json:"status"`
	LabID      string          `db:"lab_id" json:"labId"`
	AssignedTo *string         `db:"assigned_to" json:"assignedTo,omitempty"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updatedAt"`
}

// UnitTransition describes a guarded status change of a single unit.
type UnitTransition struct {
	ItemID         string
	ExpectedStatus EquipmentStatus
	ExpectedLabID  string
	NewStatus      EquipmentStatus
	NewLabID       string
	AssignedTo     *string
}

// GlasswareStock is a quantity row of a glassware product held by a lab.
type GlasswareStock struct {
	ID        string    `db:"id" json:"id"`
	ProductID string    `db:"product_id" json:"productId"`
	Name      string    `db:"name" json:"name"`
	Variant   string    `db:"variant" json:"variant,omitempty"`
	Quantity  int       `db:"quantity" json:"quantity"`
	LabID     string    `db:"lab_id" json:"labId"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// EquipmentFilter constrains unit queries. Empty fields match everything.
type EquipmentFilter struct {
	Name    string
	Variant string
	LabID   string
	Status  EquipmentStatus
	Limit   int
}
