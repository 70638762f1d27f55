package dto

// EquipmentAllocation names concrete units of one product variant.
type EquipmentAllocation struct {
	Name    string   `json:"name" validate:"required"`
	Variant string   `json:"variant"`
	ItemIDs []string `json:"itemIds" validate:"required,min=1,dive,required"`
}

// EquipmentAllocationRequest payload for AllocateEquipmentUnits.
type EquipmentAllocationRequest struct {
	LabID       string                `json:"labId" validate:"required"`
	Allocations []EquipmentAllocation `json:"allocations" validate:"required,min=1,dive"`
}

// UnitAllocationResult reports the outcome for one serialized unit.
type UnitAllocationResult struct {
	ItemID  string           `json:"itemId"`
	Name    string           `json:"name"`
	Variant string           `json:"variant,omitempty"`
	Status  AllocationStatus `json:"status"`
	Reason  string           `json:"reason,omitempty"`
}

// EquipmentAllocationResponse aggregates per-unit results.
type EquipmentAllocationResponse struct {
	Success        bool                   `json:"success"`
	LabID          string                 `json:"labId"`
	PerItemResults []UnitAllocationResult `json:"perItemResults"`
}
