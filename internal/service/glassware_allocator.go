package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/labstock-api/internal/dto"
	"github.com/noah-isme/labstock-api/internal/models"
	appErrors "github.com/noah-isme/labstock-api/pkg/errors"
)

// GlasswareResult is the outcome of a single glassware allocation.
type GlasswareResult struct {
	Status    dto.AllocationStatus
	Allocated int
	Code      string
	Reason    string
}

// GlasswareAllocator moves glassware counts from the central row of a product to a lab.
type GlasswareAllocator struct {
	ledger  *StockLedger
	retry   RetryPolicy
	metrics *MetricsService
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewGlasswareAllocator constructs the allocator.
func NewGlasswareAllocator(ledger *StockLedger, retry RetryPolicy, metrics *MetricsService, logger *zap.Logger) *GlasswareAllocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GlasswareAllocator{ledger: ledger, retry: retry.normalised(), metrics: metrics, logger: logger, sleep: sleepContext}
}

// Available returns the central count of a product.
func (a *GlasswareAllocator) Available(ctx context.Context, productID string) (int, error) {
	row, err := a.ledger.FindGlassware(ctx, productID, a.ledger.CentralLabID())
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return row.Quantity, nil
}

// AllocateItem moves qty units of productID from the central store into labID.
func (a *GlasswareAllocator) AllocateItem(ctx context.Context, productID string, qty int, labID string, movement Movement) GlasswareResult {
	result := a.allocate(ctx, productID, qty, labID, movement)
	a.metrics.RecordAllocation(models.ResourceGlassware, result.Status)
	return result
}

func (a *GlasswareAllocator) allocate(ctx context.Context, productID string, qty int, labID string, movement Movement) GlasswareResult {
	if qty <= 0 {
		return GlasswareResult{Status: dto.AllocationFailed, Code: appErrors.ErrValidation.Code, Reason: "quantity must be greater than zero"}
	}
	central := a.ledger.CentralLabID()
	movement.Type = models.LedgerEntryAllocation
	movement.FromLabID = central
	movement.ToLabID = labID

	for attempt := 1; attempt <= a.retry.Attempts; attempt++ {
		row, err := a.ledger.FindGlassware(ctx, productID, central)
		if err != nil {
			if isNotFound(err) {
				return GlasswareResult{Status: dto.AllocationFailed, Code: appErrors.ErrNotFound.Code, Reason: "no central glassware stock for product"}
			}
			a.logger.Error("failed to load glassware", zap.String("productId", productID), zap.Error(err))
			return GlasswareResult{Status: dto.AllocationFailed, Code: appErrors.ErrInternal.Code, Reason: "failed to load glassware"}
		}
		if row.Quantity < qty {
			return GlasswareResult{
				Status: dto.AllocationFailed,
				Code:   appErrors.ErrInsufficientStock.Code,
				Reason: fmt.Sprintf("requested %d but only %d available", qty, row.Quantity),
			}
		}

		if _, err := a.ledger.DecrementGlassware(ctx, *row, qty, movement); err != nil {
			if !errors.Is(err, ErrStaleRead) {
				a.logger.Error("failed to decrement glassware", zap.String("productId", productID), zap.Error(err))
				return GlasswareResult{Status: dto.AllocationFailed, Code: appErrors.ErrInternal.Code, Reason: "failed to update glassware"}
			}
			a.metrics.RecordRetry(models.ResourceGlassware)
			if attempt < a.retry.Attempts {
				if err := a.sleep(ctx, a.retry.Backoff*time.Duration(attempt)); err != nil {
					a.logger.Warn("glassware allocation interrupted", zap.String("productId", productID), zap.Error(err))
					return GlasswareResult{Status: dto.AllocationFailed, Code: appErrors.ErrInternal.Code, Reason: "allocation cancelled"}
				}
			}
			continue
		}

		if _, err := a.ledger.IncrementOrCreateGlassware(ctx, *row, labID, qty, movement); err != nil {
			reverse := Movement{Type: models.LedgerEntryRollback, PerformedBy: movement.PerformedBy, RequestID: movement.RequestID, FromLabID: labID, ToLabID: central}
			if _, rbErr := a.ledger.IncrementOrCreateGlassware(context.WithoutCancel(ctx), *row, central, qty, reverse); rbErr != nil {
				a.logger.Error("failed to restore central glassware", zap.String("productId", productID), zap.Error(rbErr))
			}
			a.metrics.RecordRollback()
			return GlasswareResult{Status: dto.AllocationFailed, Code: appErrors.ErrInternal.Code, Reason: "allocation failed and was rolled back"}
		}
		return GlasswareResult{Status: dto.AllocationSuccess, Allocated: qty}
	}
	return GlasswareResult{
		Status: dto.AllocationFailed,
		Code:   appErrors.ErrInsufficientStock.Code,
		Reason: "glassware changed concurrently; retries exhausted",
	}
}
