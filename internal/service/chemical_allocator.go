package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/labstock-api/internal/dto"
	"github.com/noah-isme/labstock-api/internal/models"
	appErrors "github.com/noah-isme/labstock-api/pkg/errors"
)

var errBatchSkipped = errors.New("batch skipped")

// RetryPolicy bounds the attempts made against a single row when conditional writes lose races.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

func (p RetryPolicy) normalised() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type chemicalStep struct {
	central models.LiveStock
	lab     *models.LiveStock
	amount  decimal.Decimal
}

// ChemicalAllocator consumes central chemical batches earliest expiry first and moves the quantity
// into a destination lab. Each requested item either completes in full or is compensated.
type ChemicalAllocator struct {
	ledger  *StockLedger
	tracker *OutOfStockTracker
	retry   RetryPolicy
	metrics *MetricsService
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewChemicalAllocator constructs the allocator.
func NewChemicalAllocator(ledger *StockLedger, tracker *OutOfStockTracker, retry RetryPolicy, metrics *MetricsService, logger *zap.Logger) *ChemicalAllocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChemicalAllocator{
		ledger:  ledger,
		tracker: tracker,
		retry:   retry.normalised(),
		metrics: metrics,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// Available sums the central quantity that FIFO allocation could draw for a name.
func (a *ChemicalAllocator) Available(ctx context.Context, name string) (decimal.Decimal, error) {
	batches, err := a.ledger.FindCentralBatches(ctx, name)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, b := range batches {
		total = total.Add(b.Quantity)
	}
	return total, nil
}

// AllocateItem moves qty of the named chemical from the central store to labID.
func (a *ChemicalAllocator) AllocateItem(ctx context.Context, name string, qty decimal.Decimal, labID string, movement Movement) dto.ChemicalAllocationResult {
	result := dto.ChemicalAllocationResult{
		Name:              name,
		RequestedQuantity: qty,
		AllocatedQuantity: decimal.Zero,
		AvailableQuantity: decimal.Zero,
	}
	if !qty.IsPositive() {
		return a.fail(result, appErrors.ErrValidation.Code, "quantity must be greater than zero")
	}

	batches, err := a.ledger.FindCentralBatches(ctx, name)
	if err != nil {
		a.logger.Error("failed to load central batches", zap.String("name", name), zap.Error(err))
		return a.fail(result, appErrors.ErrInternal.Code, "failed to load central stock")
	}
	if len(batches) == 0 {
		return a.fail(result, appErrors.ErrNotFound.Code, fmt.Sprintf("no central stock found for %s", name))
	}
	for _, b := range batches {
		result.AvailableQuantity = result.AvailableQuantity.Add(b.Quantity)
	}
	if result.AvailableQuantity.LessThan(qty) {
		return a.fail(result, appErrors.ErrInsufficientStock.Code,
			fmt.Sprintf("requested %s %s but only %s available", qty.String(), batches[0].Unit, result.AvailableQuantity.String()))
	}

	movement.Type = models.LedgerEntryAllocation
	movement.FromLabID = a.ledger.CentralLabID()
	movement.ToLabID = labID

	remaining := qty
	steps := make([]chemicalStep, 0, len(batches))
	var failure error
	for _, batch := range batches {
		if !remaining.IsPositive() {
			break
		}
		step, err := a.consume(ctx, batch, remaining, labID, movement)
		if step != nil {
			steps = append(steps, *step)
			remaining = remaining.Sub(step.amount)
		}
		if errors.Is(err, errBatchSkipped) {
			continue
		}
		if err != nil {
			failure = err
			break
		}
	}

	if failure != nil || remaining.IsPositive() {
		a.rollback(ctx, steps, movement)
		if failure != nil {
			a.logger.Error("chemical allocation step failed", zap.String("name", name), zap.Error(failure))
			return a.fail(result, appErrors.ErrInternal.Code, "allocation failed and was rolled back")
		}
		return a.fail(result, appErrors.ErrInsufficientStock.Code,
			fmt.Sprintf("only %s of %s could be reserved under contention", qty.Sub(remaining).String(), qty.String()))
	}

	result.Status = dto.AllocationSuccess
	result.AllocatedQuantity = qty
	for _, step := range steps {
		result.Expiries = append(result.Expiries, step.central.ExpiryDate)
		if step.lab != nil {
			result.DestinationBatches = append(result.DestinationBatches, step.lab.ID)
		}
		if step.central.Quantity.IsZero() {
			if err := a.tracker.OnBatchExhausted(ctx, step.central, movement.PerformedBy); err != nil {
				a.logger.Warn("exhausted batch handling failed", zap.String("liveId", step.central.ID), zap.Error(err))
			}
		}
	}
	a.metrics.RecordAllocation(models.ResourceChemical, dto.AllocationSuccess)
	return result
}

// consume takes up to remaining from one batch, retrying the same batch on stale reads.
// A returned step is always part of the item, even when err is set.
func (a *ChemicalAllocator) consume(ctx context.Context, batch models.LiveStock, remaining decimal.Decimal, labID string, movement Movement) (*chemicalStep, error) {
	row := batch
	for attempt := 1; attempt <= a.retry.Attempts; attempt++ {
		take := decimal.Min(row.Quantity, remaining)
		if !take.IsPositive() {
			return nil, errBatchSkipped
		}

		updated, err := a.ledger.ConditionalDecrement(ctx, row, take, movement)
		if err == nil {
			step := &chemicalStep{central: *updated, amount: take}
			lab, err := a.ledger.IncrementOrCreate(ctx, *updated, labID, take, movement)
			if err != nil {
				return step, fmt.Errorf("increment destination lab: %w", err)
			}
			step.lab = lab
			return step, nil
		}
		if !errors.Is(err, ErrStaleRead) {
			return nil, err
		}

		a.metrics.RecordRetry(models.ResourceChemical)
		a.logger.Debug("stale batch read, retrying",
			zap.String("liveId", row.ID),
			zap.Int("attempt", attempt),
			zap.String("take", take.String()))
		if attempt == a.retry.Attempts {
			break
		}
		if err := a.sleep(ctx, a.retry.Backoff*time.Duration(attempt)); err != nil {
			return nil, err
		}
		fresh, err := a.ledger.GetLive(ctx, row.ID)
		if err != nil {
			if isNotFound(err) {
				return nil, errBatchSkipped
			}
			return nil, err
		}
		row = *fresh
	}
	a.logger.Warn("batch skipped after retries", zap.String("liveId", row.ID), zap.Int("attempts", a.retry.Attempts))
	return nil, errBatchSkipped
}

// rollback reverses every step of an item in reverse order.
func (a *ChemicalAllocator) rollback(ctx context.Context, steps []chemicalStep, movement Movement) {
	if len(steps) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	reverse := Movement{
		Type:        models.LedgerEntryRollback,
		PerformedBy: movement.PerformedBy,
		RequestID:   movement.RequestID,
		FromLabID:   movement.ToLabID,
		ToLabID:     movement.FromLabID,
	}
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		if step.lab != nil {
			lab, err := a.ledger.ConditionalDecrement(ctx, *step.lab, step.amount, reverse)
			if err != nil {
				a.logger.Error("failed to reverse lab increment",
					zap.String("liveId", step.lab.ID),
					zap.String("amount", step.amount.String()),
					zap.Error(err))
			} else if lab.Quantity.IsZero() {
				if _, err := a.ledger.DeleteIfEmpty(ctx, lab.ID); err != nil {
					a.logger.Warn("failed to drop empty lab row", zap.String("liveId", lab.ID), zap.Error(err))
				}
			}
		}
		if _, err := a.ledger.Restore(ctx, step.central, step.amount, reverse); err != nil {
			a.logger.Error("failed to restore central batch",
				zap.String("liveId", step.central.ID),
				zap.String("amount", step.amount.String()),
				zap.Error(err))
		}
	}
	a.metrics.RecordRollback()
	a.logger.Warn("chemical allocation rolled back", zap.Int("steps", len(steps)))
}

func (a *ChemicalAllocator) fail(result dto.ChemicalAllocationResult, code, reason string) dto.ChemicalAllocationResult {
	result.Status = dto.AllocationFailed
	result.AllocatedQuantity = decimal.Zero
	result.ErrorCode = code
	result.Reason = reason
	a.metrics.RecordAllocation(models.ResourceChemical, dto.AllocationFailed)
	return result
}
