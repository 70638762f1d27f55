package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/labstock-api/internal/models"
)

type outOfStockStore interface {
	Upsert(ctx context.Context, entry *models.OutOfStockEntry) error
	Get(ctx context.Context, displayName string) (*models.OutOfStockEntry, error)
	List(ctx context.Context) ([]models.OutOfStockEntry, error)
	Delete(ctx context.Context, displayName string) (bool, error)
}

// OutOfStockTracker reacts to central batches reaching zero and to restocks.
type OutOfStockTracker struct {
	ledger   *StockLedger
	resolver *BatchIdentityResolver
	store    outOfStockStore
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewOutOfStockTracker constructs the tracker.
func NewOutOfStockTracker(ledger *StockLedger, resolver *BatchIdentityResolver, store outOfStockStore, metrics *MetricsService, logger *zap.Logger) *OutOfStockTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutOfStockTracker{ledger: ledger, resolver: resolver, store: store, metrics: metrics, logger: logger}
}

// OnBatchExhausted removes an emptied central row. When siblings still hold stock they are
// reindexed; otherwise the display name is registered as out of stock first.
func (t *OutOfStockTracker) OnBatchExhausted(ctx context.Context, row models.LiveStock, performedBy string) error {
	if row.LabID != t.ledger.CentralLabID() || !row.Quantity.IsZero() {
		return nil
	}
	display := row.DisplayName
	if display == "" {
		display = DisplayName(row.ChemicalName)
	}

	siblings, err := t.ledger.CentralSiblings(ctx, display)
	if err != nil {
		return err
	}
	remaining := 0
	for _, s := range siblings {
		if s.ID != row.ID {
			remaining++
		}
	}

	if remaining > 0 {
		deleted, err := t.ledger.DeleteIfEmpty(ctx, row.ID)
		if err != nil {
			return fmt.Errorf("delete exhausted batch: %w", err)
		}
		if !deleted {
			t.logger.Debug("exhausted batch restocked before removal", zap.String("liveId", row.ID))
			return nil
		}
		if _, err := t.resolver.Reindex(ctx, display, row.LabID, performedBy); err != nil {
			return err
		}
		return nil
	}

	entry := &models.OutOfStockEntry{DisplayName: display, Unit: row.Unit}
	if err := t.store.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("register out of stock: %w", err)
	}
	deleted, err := t.ledger.DeleteIfEmpty(ctx, row.ID)
	if err != nil {
		return fmt.Errorf("delete exhausted batch: %w", err)
	}
	if !deleted {
		if _, err := t.store.Delete(ctx, display); err != nil {
			return fmt.Errorf("clear out of stock: %w", err)
		}
		return nil
	}
	t.metrics.RecordOutOfStock()
	t.logger.Info("chemical out of stock", zap.String("displayName", display))
	return nil
}

// OnRestock clears the out-of-stock entry for a display name. Absent entries are a no-op.
func (t *OutOfStockTracker) OnRestock(ctx context.Context, displayName string) error {
	removed, err := t.store.Delete(ctx, displayName)
	if err != nil {
		return fmt.Errorf("clear out of stock: %w", err)
	}
	if removed {
		t.logger.Info("chemical restocked", zap.String("displayName", displayName))
	}
	return nil
}

// List returns the registered out-of-stock display names.
func (t *OutOfStockTracker) List(ctx context.Context) ([]models.OutOfStockEntry, error) {
	entries, err := t.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list out of stock: %w", err)
	}
	return entries, nil
}
