package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/labstock-api/internal/models"
)

// ChemicalRequestLine asks for a chemical quantity in an experiment.
type ChemicalRequestLine struct {
	ChemicalName string          `json:"chemicalName" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity" validate:"gt=0"`
	Unit         string          `json:"unit"`
}

// GlasswareRequestLine asks for a glassware count in an experiment.
type GlasswareRequestLine struct {
	ProductID string `json:"productId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Variant   string `json:"variant"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// EquipmentRequestLine asks for a number of serialized units in an experiment.
type EquipmentRequestLine struct {
	Name     string `json:"name" validate:"required"`
	Variant  string `json:"variant"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

// SubmitExperiment describes one experiment in a submitted request.
type SubmitExperiment struct {
	Name      string                 `json:"name" validate:"required"`
	Date      time.Time              `json:"date" validate:"required"`
	Chemicals []ChemicalRequestLine  `json:"chemicals" validate:"dive"`
	Glassware []GlasswareRequestLine `json:"glassware" validate:"dive"`
	Equipment []EquipmentRequestLine `json:"equipment" validate:"dive"`
}

// SubmitRequest payload for creating a fulfilment request.
type SubmitRequest struct {
	LabID       string             `json:"labId" validate:"required"`
	Remarks     string             `json:"remarks"`
	Experiments []SubmitExperiment `json:"experiments" validate:"required,min=1,dive"`
}

// RejectRequest captures the rejection reason.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// UnifiedAllocationRequest optionally pins serialized units per equipment request item.
type UnifiedAllocationRequest struct {
	EquipmentSelections map[string][]string `json:"equipmentSelections"`
}

// AdminOverrideRequest toggles the per-experiment admin override flag.
type AdminOverrideRequest struct {
	Enabled bool `json:"enabled"`
}

// DisableItemRequest toggles an item's disabled flag.
type DisableItemRequest struct {
	Disabled bool   `json:"disabled"`
	Reason   string `json:"reason"`
}

// RequestQuery mirrors supported listing filters.
type RequestQuery struct {
	Status []models.RequestStatus
	LabID  string
}

// CategoryError is one item failure collected during unified allocation.
type CategoryError struct {
	Category     models.ResourceKind `json:"category"`
	ExperimentID string              `json:"experimentId"`
	ItemID       string              `json:"itemId,omitempty"`
	Name         string              `json:"name"`
	Code         string              `json:"code"`
	Reason       string              `json:"reason"`
}

// ItemAllocationSummary reports what a unified call allocated for one item.
type ItemAllocationSummary struct {
	Category     models.ResourceKind `json:"category"`
	ExperimentID string              `json:"experimentId"`
	ItemID       string              `json:"itemId"`
	Name         string              `json:"name"`
	Allocated    decimal.Decimal     `json:"allocated"`
	ItemIDs      []string            `json:"itemIds,omitempty"`
	Complete     bool                `json:"complete"`
}

// UnifiedAllocationResponse is the partial-success outcome of a unified allocation.
type UnifiedAllocationResponse struct {
	RequestID         string                  `json:"requestId"`
	PreviousStatus    models.RequestStatus    `json:"previousStatus"`
	Status            models.RequestStatus    `json:"status"`
	Outcome           AllocationStatus        `json:"outcome"`
	Allocated         []ItemAllocationSummary `json:"allocated"`
	PerCategoryErrors []CategoryError         `json:"perCategoryErrors"`
}

// ItemPermission is the edit permission derived for one request item.
type ItemPermission struct {
	Category     models.ResourceKind `json:"category"`
	ExperimentID string              `json:"experimentId"`
	ItemID       string              `json:"itemId"`
	CanEdit      bool                `json:"canEdit"`
	CanIncrease  bool                `json:"canIncrease"`
	MaxIncrease  decimal.Decimal     `json:"maxIncrease"`
	CanDecrease  bool                `json:"canDecrease"`
	Reason       string              `json:"reason,omitempty"`
}

// ExperimentPermissions groups item permissions with the experiment date gate.
type ExperimentPermissions struct {
	ExperimentID string                            `json:"experimentId"`
	DateStatus   models.ExperimentAllocationStatus `json:"dateStatus"`
	Items        []ItemPermission                  `json:"items"`
}
