package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/labstock-api/internal/dto"
	"github.com/noah-isme/labstock-api/internal/models"
)

// EquipmentAllocator moves serialized units by identity. Each unit succeeds or fails on its own;
// units already transitioned in a call are not compensated when a sibling fails.
type EquipmentAllocator struct {
	ledger  *StockLedger
	metrics *MetricsService
	logger  *zap.Logger
}

// NewEquipmentAllocator constructs the allocator.
func NewEquipmentAllocator(ledger *StockLedger, metrics *MetricsService, logger *zap.Logger) *EquipmentAllocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EquipmentAllocator{ledger: ledger, metrics: metrics, logger: logger}
}

// IssueUnits transitions central units Available→Issued into labID.
func (a *EquipmentAllocator) IssueUnits(ctx context.Context, name, variant string, itemIDs []string, labID string, movement Movement) []dto.UnitAllocationResult {
	movement.Type = models.LedgerEntryIssue
	return a.transitionAll(ctx, name, variant, itemIDs, models.EquipmentStatusIssued, labID, nil, movement)
}

// AssignUnits transitions central units Available→Assigned to a request's lab and assignee.
func (a *EquipmentAllocator) AssignUnits(ctx context.Context, name, variant string, itemIDs []string, labID, assignee string, movement Movement) []dto.UnitAllocationResult {
	movement.Type = models.LedgerEntryAllocation
	var assignedTo *string
	if assignee != "" {
		assignedTo = &assignee
	}
	return a.transitionAll(ctx, name, variant, itemIDs, models.EquipmentStatusAssigned, labID, assignedTo, movement)
}

// PickAvailable returns up to n central Available unit ids of a product variant, skipping excluded ids.
func (a *EquipmentAllocator) PickAvailable(ctx context.Context, name, variant string, n int, exclude map[string]struct{}) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	units, err := a.ledger.ListUnits(ctx, models.EquipmentFilter{
		Name:    name,
		Variant: variant,
		LabID:   a.ledger.CentralLabID(),
		Status:  models.EquipmentStatusAvailable,
		Limit:   n + len(exclude),
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, n)
	for _, unit := range units {
		if _, skip := exclude[unit.ItemID]; skip {
			continue
		}
		ids = append(ids, unit.ItemID)
		if len(ids) == n {
			break
		}
	}
	return ids, nil
}

// CountAvailable reports how many central units of a variant are Available.
func (a *EquipmentAllocator) CountAvailable(ctx context.Context, name, variant string) (int, error) {
	units, err := a.ledger.ListUnits(ctx, models.EquipmentFilter{
		Name:    name,
		Variant: variant,
		LabID:   a.ledger.CentralLabID(),
		Status:  models.EquipmentStatusAvailable,
	})
	if err != nil {
		return 0, err
	}
	return len(units), nil
}

func (a *EquipmentAllocator) transitionAll(ctx context.Context, name, variant string, itemIDs []string, target models.EquipmentStatus, labID string, assignedTo *string, movement Movement) []dto.UnitAllocationResult {
	movement.FromLabID = a.ledger.CentralLabID()
	movement.ToLabID = labID
	results := make([]dto.UnitAllocationResult, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		result := a.transitionOne(ctx, name, variant, strings.TrimSpace(itemID), target, labID, assignedTo, movement)
		a.metrics.RecordAllocation(models.ResourceEquipment, result.Status)
		results = append(results, result)
	}
	return results
}

func (a *EquipmentAllocator) transitionOne(ctx context.Context, name, variant, itemID string, target models.EquipmentStatus, labID string, assignedTo *string, movement Movement) dto.UnitAllocationResult {
	result := dto.UnitAllocationResult{ItemID: itemID, Name: name, Variant: variant, Status: dto.AllocationFailed}
	if itemID == "" {
		result.Reason = "item id is required"
		return result
	}

	unit, err := a.ledger.FindUnit(ctx, itemID)
	if err != nil {
		if isNotFound(err) {
			result.Reason = "unit not found"
			return result
		}
		a.logger.Error("failed to load equipment unit", zap.String("itemId", itemID), zap.Error(err))
		result.Reason = "failed to load unit"
		return result
	}
	if name != "" && !strings.EqualFold(unit.Name, name) {
		result.Reason = fmt.Sprintf("unit is %s, not %s", unit.Name, name)
		return result
	}
	if variant != "" && unit.Variant != variant {
		result.Reason = fmt.Sprintf("unit variant is %s, not %s", unit.Variant, variant)
		return result
	}
	if unit.Status != models.EquipmentStatusAvailable {
		result.Reason = fmt.Sprintf("unit is %s", unit.Status)
		return result
	}
	if unit.LabID != a.ledger.CentralLabID() {
		result.Reason = "unit is not held by the central store"
		return result
	}

	_, err = a.ledger.TransitionUnit(ctx, models.UnitTransition{
		ItemID:         itemID,
		ExpectedStatus: models.EquipmentStatusAvailable,
		ExpectedLabID:  a.ledger.CentralLabID(),
		NewStatus:      target,
		NewLabID:       labID,
		AssignedTo:     assignedTo,
	}, unit.Name, movement)
	if err != nil {
		if errors.Is(err, ErrStaleRead) {
			result.Reason = "unit changed concurrently and is no longer available"
			return result
		}
		a.logger.Error("failed to transition equipment unit", zap.String("itemId", itemID), zap.Error(err))
		result.Reason = "failed to update unit"
		return result
	}
	result.Name = unit.Name
	result.Variant = unit.Variant
	result.Status = dto.AllocationSuccess
	return result
}
