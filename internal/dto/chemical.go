package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/labstock-api/internal/models"
)

// ChemicalIntakeLine is one purchased lot in an intake.
type ChemicalIntakeLine struct {
	Name       string          `json:"name" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity" validate:"gt=0"`
	Unit       string          `json:"unit" validate:"required"`
	ExpiryDate *time.Time      `json:"expiryDate"`
	Vendor     string          `json:"vendor" validate:"required"`
	Price      decimal.Decimal `json:"price"`
	Department string          `json:"department"`
}

// ChemicalIntakeRequest payload for AddChemicalIntake.
type ChemicalIntakeRequest struct {
	LabID string               `json:"labId"`
	Items []ChemicalIntakeLine `json:"items" validate:"required,min=1,dive"`
}

// IntakeAction describes what intake did with a line.
type IntakeAction string

const (
	IntakeActionCreated IntakeAction = "created"
	IntakeActionMerged  IntakeAction = "merged"
)

// IntakeBatchResult reports the batch created or updated for an intake line.
type IntakeBatchResult struct {
	Action       IntakeAction         `json:"action"`
	Batch        models.ChemicalBatch `json:"batch"`
	LiveStockID  string               `json:"liveStockId"`
	RenamedBatch []RenamedBatch       `json:"renamedBatches,omitempty"`
}

// RenamedBatch records a sibling renamed while installing a new batch.
type RenamedBatch struct {
	BatchID string `json:"batchId"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// IntakeLineError reports an intake line that could not be stored.
type IntakeLineError struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// ChemicalIntakeResponse is returned by AddChemicalIntake.
type ChemicalIntakeResponse struct {
	BatchID string              `json:"batchId"`
	Batches []IntakeBatchResult `json:"createdOrUpdatedBatches"`
	Failed  []IntakeLineError   `json:"failed,omitempty"`
}

// ChemicalAllocationItem requests a quantity of a chemical by display name.
type ChemicalAllocationItem struct {
	Name     string          `json:"name" validate:"required"`
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
}

// ChemicalAllocationRequest payload for AllocateChemicals.
type ChemicalAllocationRequest struct {
	LabID string                   `json:"labId" validate:"required"`
	Items []ChemicalAllocationItem `json:"items" validate:"required,min=1,dive"`
}

// AllocationStatus is the per-item outcome.
type AllocationStatus string

const (
	AllocationSuccess AllocationStatus = "success"
	AllocationPartial AllocationStatus = "partial"
	AllocationFailed  AllocationStatus = "failed"
)

// ChemicalAllocationResult reports one requested chemical.
type ChemicalAllocationResult struct {
	Name               string           `json:"name"`
	Status             AllocationStatus `json:"status"`
	RequestedQuantity  decimal.Decimal  `json:"requestedQuantity"`
	AllocatedQuantity  decimal.Decimal  `json:"allocatedQuantity"`
	AvailableQuantity  decimal.Decimal  `json:"availableQuantity"`
	Expiries           []*time.Time     `json:"expiries,omitempty"`
	DestinationBatches []string         `json:"destinationBatches,omitempty"`
	Reason             string           `json:"reason,omitempty"`
	ErrorCode          string           `json:"errorCode,omitempty"`
}

// ChemicalAllocationResponse aggregates per-item results.
type ChemicalAllocationResponse struct {
	LabID   string                     `json:"labId"`
	Results []ChemicalAllocationResult `json:"results"`
}

// AllSucceeded reports whether every item was fully allocated.
func (r ChemicalAllocationResponse) AllSucceeded() bool {
	for _, res := range r.Results {
		if res.Status != AllocationSuccess {
			return false
		}
	}
	return true
}
