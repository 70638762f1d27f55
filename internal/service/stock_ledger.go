package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/labstock-api/internal/models"
	"github.com/noah-isme/labstock-api/internal/repository"
)

// ErrStaleRead signals that a conditional write lost against a concurrent change.
var ErrStaleRead = errors.New("stale read")

type chemicalStore interface {
	CreateBatch(ctx context.Context, batch *models.ChemicalBatch, live *models.LiveStock, entry *models.LedgerEntry) error
	ListBatches(ctx context.Context, filter models.BatchFilter) ([]models.ChemicalBatch, error)
	MergeIntoBatch(ctx context.Context, batchID string, amount decimal.Decimal, defaults models.LiveStock, entry *models.LedgerEntry) (*models.LiveStock, error)
	RenameBatch(ctx context.Context, batchID, labID, name string) error
	ListLive(ctx context.Context, filter models.LiveStockFilter) ([]models.LiveStock, error)
	GetLive(ctx context.Context, id string) (*models.LiveStock, error)
	DecrementLive(ctx context.Context, id string, amount decimal.Decimal, entry *models.LedgerEntry) (*models.LiveStock, error)
	RestoreLive(ctx context.Context, id string, amount decimal.Decimal, entry *models.LedgerEntry) (*models.LiveStock, error)
	IncrementLive(ctx context.Context, defaults models.LiveStock, amount decimal.Decimal, entry *models.LedgerEntry) (*models.LiveStock, error)
	DeleteLiveIfEmpty(ctx context.Context, id string) (bool, error)
}

type equipmentStore interface {
	FindUnit(ctx context.Context, itemID string) (*models.EquipmentUnit, error)
	ListUnits(ctx context.Context, filter models.EquipmentFilter) ([]models.EquipmentUnit, error)
	TransitionUnit(ctx context.Context, transition models.UnitTransition, entry *models.LedgerEntry) (*models.EquipmentUnit, error)
}

type glasswareStore interface {
	Find(ctx context.Context, productID, labID string) (*models.GlasswareStock, error)
	Decrement(ctx context.Context, id string, qty int, entry *models.LedgerEntry) (*models.GlasswareStock, error)
	Increment(ctx context.Context, defaults models.GlasswareStock, qty int, entry *models.LedgerEntry) (*models.GlasswareStock, error)
}

type ledgerStore interface {
	Append(ctx context.Context, entry *models.LedgerEntry) error
	List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, error)
}

// Movement describes who moved stock and on whose behalf. It becomes the ledger entry of a mutation.
type Movement struct {
	Type        models.LedgerEntryType
	PerformedBy string
	RequestID   string
	FromLabID   string
	ToLabID     string
}

func (m Movement) entry(kind models.ResourceKind, resourceID, name, unit string, qty *decimal.Decimal) *models.LedgerEntry {
	entry := &models.LedgerEntry{
		Kind:         kind,
		Type:         m.Type,
		ResourceID:   resourceID,
		ResourceName: name,
		Quantity:     qty,
		Unit:         unit,
		PerformedBy:  m.PerformedBy,
	}
	if entry.PerformedBy == "" {
		entry.PerformedBy = "system"
	}
	if m.FromLabID != "" {
		from := m.FromLabID
		entry.FromLabID = &from
	}
	if m.ToLabID != "" {
		to := m.ToLabID
		entry.ToLabID = &to
	}
	if m.RequestID != "" {
		reqID := m.RequestID
		entry.RequestID = &reqID
	}
	return entry
}

// StockLedger is the only mutator of stock quantities and unit statuses. Every mutation it performs
// is persisted together with a ledger entry.
type StockLedger struct {
	chemicals    chemicalStore
	equipment    equipmentStore
	glassware    glasswareStore
	ledger       ledgerStore
	centralLabID string
	logger       *zap.Logger
}

// NewStockLedger constructs the ledger over the given stores.
func NewStockLedger(chemicals chemicalStore, equipment equipmentStore, glassware glasswareStore, ledger ledgerStore, centralLabID string, logger *zap.Logger) *StockLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if centralLabID == "" {
		centralLabID = models.CentralStoreLabID
	}
	return &StockLedger{
		chemicals:    chemicals,
		equipment:    equipment,
		glassware:    glassware,
		ledger:       ledger,
		centralLabID: centralLabID,
		logger:       logger,
	}
}

// CentralLabID returns the identifier of the central store.
func (l *StockLedger) CentralLabID() string {
	return l.centralLabID
}

// FindCentralBatches returns central live rows with stock for a display name in FIFO order.
// Exact display name wins, then the canonical key index, then a suffix-tolerant name pattern.
func (l *StockLedger) FindCentralBatches(ctx context.Context, displayName string) ([]models.LiveStock, error) {
	name := strings.TrimSpace(displayName)
	filters := []models.LiveStockFilter{
		{LabID: l.centralLabID, DisplayName: name, PositiveOnly: true},
		{LabID: l.centralLabID, CanonicalKey: CanonicalKey(name), PositiveOnly: true},
		{LabID: l.centralLabID, NamePattern: batchNamePattern(DisplayName(name)), PositiveOnly: true},
	}
	for i, filter := range filters {
		rows, err := l.chemicals.ListLive(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("find central batches: %w", err)
		}
		if len(rows) > 0 {
			if i == len(filters)-1 {
				l.logger.Debug("central batches resolved by name pattern", zap.String("name", name))
			}
			models.SortLiveStockByExpiry(rows)
			return rows, nil
		}
	}
	return []models.LiveStock{}, nil
}

// CentralSiblings returns central rows with stock sharing the canonical key of displayName.
func (l *StockLedger) CentralSiblings(ctx context.Context, displayName string) ([]models.LiveStock, error) {
	return l.ListLive(ctx, models.LiveStockFilter{LabID: l.centralLabID, CanonicalKey: CanonicalKey(displayName), PositiveOnly: true})
}

// ListLive returns live rows matching filter in FIFO order.
func (l *StockLedger) ListLive(ctx context.Context, filter models.LiveStockFilter) ([]models.LiveStock, error) {
	rows, err := l.chemicals.ListLive(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list live stock: %w", err)
	}
	models.SortLiveStockByExpiry(rows)
	return rows, nil
}

// ListBatches returns batch masters matching filter.
func (l *StockLedger) ListBatches(ctx context.Context, filter models.BatchFilter) ([]models.ChemicalBatch, error) {
	batches, err := l.chemicals.ListBatches(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list chemical batches: %w", err)
	}
	return batches, nil
}

// GetLive re-reads a live row. A missing row yields sql.ErrNoRows.
func (l *StockLedger) GetLive(ctx context.Context, id string) (*models.LiveStock, error) {
	return l.chemicals.GetLive(ctx, id)
}

// ConditionalDecrement subtracts amount from a live row only if it still holds that much.
func (l *StockLedger) ConditionalDecrement(ctx context.Context, row models.LiveStock, amount decimal.Decimal, movement Movement) (*models.LiveStock, error) {
	qty := amount
	entry := movement.entry(models.ResourceChemical, row.ID, row.ChemicalName, row.Unit, &qty)
	updated, err := l.chemicals.DecrementLive(ctx, row.ID, amount, entry)
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, ErrStaleRead
		}
		return nil, err
	}
	return updated, nil
}

// IncrementOrCreate adds amount to the (batch, lab) row cloned from source, creating it when missing.
// Rows created outside the central store are marked as allocated stock.
func (l *StockLedger) IncrementOrCreate(ctx context.Context, source models.LiveStock, labID string, amount decimal.Decimal, movement Movement) (*models.LiveStock, error) {
	defaults := models.LiveStock{
		ChemicalBatchID: source.ChemicalBatchID,
		DisplayName:     source.DisplayName,
		CanonicalKey:    source.CanonicalKey,
		ChemicalName:    source.ChemicalName,
		Unit:            source.Unit,
		ExpiryDate:      source.ExpiryDate,
		IsAllocated:     labID != l.centralLabID,
		LabID:           labID,
	}
	qty := amount
	entry := movement.entry(models.ResourceChemical, "", source.ChemicalName, source.Unit, &qty)
	live, err := l.chemicals.IncrementLive(ctx, defaults, amount, entry)
	if err != nil {
		return nil, err
	}
	return live, nil
}

// Restore adds amount back to a live row as a compensating action.
func (l *StockLedger) Restore(ctx context.Context, row models.LiveStock, amount decimal.Decimal, movement Movement) (*models.LiveStock, error) {
	qty := amount
	entry := movement.entry(models.ResourceChemical, row.ID, row.ChemicalName, row.Unit, &qty)
	return l.chemicals.RestoreLive(ctx, row.ID, amount, entry)
}

// DeleteIfEmpty removes a live row only while its quantity is still zero.
func (l *StockLedger) DeleteIfEmpty(ctx context.Context, id string) (bool, error) {
	return l.chemicals.DeleteLiveIfEmpty(ctx, id)
}

// CreateBatch persists a new batch together with its central live row.
func (l *StockLedger) CreateBatch(ctx context.Context, batch *models.ChemicalBatch, movement Movement) (*models.LiveStock, error) {
	live := &models.LiveStock{
		DisplayName:      batch.DisplayName,
		CanonicalKey:     batch.CanonicalKey,
		ChemicalName:     batch.Name,
		Unit:             batch.Unit,
		ExpiryDate:       batch.ExpiryDate,
		Quantity:         batch.Quantity,
		OriginalQuantity: batch.Quantity,
		LabID:            l.centralLabID,
	}
	qty := batch.Quantity
	entry := movement.entry(models.ResourceChemical, "", batch.Name, batch.Unit, &qty)
	if err := l.chemicals.CreateBatch(ctx, batch, live, entry); err != nil {
		return nil, fmt.Errorf("create chemical batch: %w", err)
	}
	return live, nil
}

// MergeIntoBatch adds an intake quantity to an existing batch and its central live row.
func (l *StockLedger) MergeIntoBatch(ctx context.Context, batch models.ChemicalBatch, amount decimal.Decimal, movement Movement) (*models.LiveStock, error) {
	defaults := models.LiveStock{
		DisplayName:  batch.DisplayName,
		CanonicalKey: batch.CanonicalKey,
		ChemicalName: batch.Name,
		Unit:         batch.Unit,
		ExpiryDate:   batch.ExpiryDate,
		LabID:        l.centralLabID,
	}
	qty := amount
	entry := movement.entry(models.ResourceChemical, "", batch.Name, batch.Unit, &qty)
	live, err := l.chemicals.MergeIntoBatch(ctx, batch.ID, amount, defaults, entry)
	if err != nil {
		return nil, fmt.Errorf("merge chemical batch: %w", err)
	}
	return live, nil
}

// RenameBatch renames a batch and its live row at labID, recording the change on the ledger.
func (l *StockLedger) RenameBatch(ctx context.Context, row models.LiveStock, labID, name, performedBy string) error {
	if err := l.chemicals.RenameBatch(ctx, row.ChemicalBatchID, labID, name); err != nil {
		return fmt.Errorf("rename batch %s: %w", row.ChemicalBatchID, err)
	}
	previous := row.ChemicalName
	entry := Movement{Type: models.LedgerEntryStatusChange, PerformedBy: performedBy}.
		entry(models.ResourceChemical, row.ID, name, row.Unit, nil)
	entry.PreviousStatus = &previous
	entry.NewStatus = &name
	if err := l.ledger.Append(ctx, entry); err != nil {
		l.logger.Warn("failed to record batch rename", zap.String("batchId", row.ChemicalBatchID), zap.Error(err))
	}
	return nil
}

// FindUnit returns a serialized unit by item id.
func (l *StockLedger) FindUnit(ctx context.Context, itemID string) (*models.EquipmentUnit, error) {
	return l.equipment.FindUnit(ctx, itemID)
}

// ListUnits returns serialized units matching filter.
func (l *StockLedger) ListUnits(ctx context.Context, filter models.EquipmentFilter) ([]models.EquipmentUnit, error) {
	units, err := l.equipment.ListUnits(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list equipment units: %w", err)
	}
	return units, nil
}

// TransitionUnit changes a unit's status iff it still holds the expected status (and lab when set).
func (l *StockLedger) TransitionUnit(ctx context.Context, transition models.UnitTransition, name string, movement Movement) (*models.EquipmentUnit, error) {
	previous := string(transition.ExpectedStatus)
	next := string(transition.NewStatus)
	entry := movement.entry(models.ResourceEquipment, transition.ItemID, name, "", nil)
	entry.PreviousStatus = &previous
	entry.NewStatus = &next
	unit, err := l.equipment.TransitionUnit(ctx, transition, entry)
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, ErrStaleRead
		}
		return nil, err
	}
	return unit, nil
}

// FindGlassware returns the glassware row of a product at a lab.
func (l *StockLedger) FindGlassware(ctx context.Context, productID, labID string) (*models.GlasswareStock, error) {
	return l.glassware.Find(ctx, productID, labID)
}

// DecrementGlassware subtracts qty from a row only if it still holds that much.
func (l *StockLedger) DecrementGlassware(ctx context.Context, row models.GlasswareStock, qty int, movement Movement) (*models.GlasswareStock, error) {
	amount := decimal.NewFromInt(int64(qty))
	entry := movement.entry(models.ResourceGlassware, row.ID, row.Name, "pcs", &amount)
	updated, err := l.glassware.Decrement(ctx, row.ID, qty, entry)
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, ErrStaleRead
		}
		return nil, err
	}
	return updated, nil
}

// IncrementOrCreateGlassware adds qty to the (product, lab) row cloned from source.
func (l *StockLedger) IncrementOrCreateGlassware(ctx context.Context, source models.GlasswareStock, labID string, qty int, movement Movement) (*models.GlasswareStock, error) {
	defaults := models.GlasswareStock{ProductID: source.ProductID, Name: source.Name, Variant: source.Variant, LabID: labID}
	amount := decimal.NewFromInt(int64(qty))
	entry := movement.entry(models.ResourceGlassware, "", source.Name, "pcs", &amount)
	return l.glassware.Increment(ctx, defaults, qty, entry)
}

// Entries lists ledger entries.
func (l *StockLedger) Entries(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, error) {
	entries, err := l.ledger.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	return entries, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
