// Package memstore provides an in-memory implementation of the stock and request stores used for
// tests and ephemeral environments. It honours the same conditional-write contracts as the
// Postgres repositories.
package memstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/labstock-api/internal/models"
	"github.com/noah-isme/labstock-api/internal/repository"
)

// Operation names passed to a Fault hook.
const (
	OpDecrementLive      = "decrement_live"
	OpIncrementLive      = "increment_live"
	OpRestoreLive        = "restore_live"
	OpTransitionUnit     = "transition_unit"
	OpDecrementGlassware = "decrement_glassware"
	OpIncrementGlassware = "increment_glassware"
	OpUpdateRequest      = "update_request"
	OpListLabs           = "list_labs"
)

// Fault is consulted before a mutation is applied. A non-nil error aborts the operation.
// It runs without the store lock held, so it may call back into the store.
type Fault func(op, id string) error

type state struct {
	batches    map[string]models.ChemicalBatch
	live       map[string]models.LiveStock
	outOfStock map[string]models.OutOfStockEntry
	units      map[string]models.EquipmentUnit
	glassware  map[string]models.GlasswareStock
	requests   map[string]*models.Request
	ledger     []models.LedgerEntry
	labs       map[string]models.Lab
}

// Store holds every collection behind a single mutex.
type Store struct {
	mu    sync.RWMutex
	state state
	fault Fault
	now   func() time.Time
}

// New constructs an empty store.
func New() *Store {
	return &Store{
		state: state{
			batches:    make(map[string]models.ChemicalBatch),
			live:       make(map[string]models.LiveStock),
			outOfStock: make(map[string]models.OutOfStockEntry),
			units:      make(map[string]models.EquipmentUnit),
			glassware:  make(map[string]models.GlasswareStock),
			requests:   make(map[string]*models.Request),
			labs:       make(map[string]models.Lab),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetFault installs a fault hook; nil clears it.
func (s *Store) SetFault(f Fault) {
	s.mu.Lock()
	s.fault = f
	s.mu.Unlock()
}

func (s *Store) check(op, id string) error {
	s.mu.RLock()
	f := s.fault
	s.mu.RUnlock()
	if f == nil {
		return nil
	}
	return f(op, id)
}

// Chemicals exposes the chemical batch and live stock store.
func (s *Store) Chemicals() *ChemicalStore { return &ChemicalStore{s: s} }

// OutOfStock exposes the out-of-stock registry.
func (s *Store) OutOfStock() *OutOfStockStore { return &OutOfStockStore{s: s} }

// Equipment exposes the serialized unit store.
func (s *Store) Equipment() *EquipmentStore { return &EquipmentStore{s: s} }

// Glassware exposes the glassware quantity store.
func (s *Store) Glassware() *GlasswareStore { return &GlasswareStore{s: s} }

// Requests exposes the request document store.
func (s *Store) Requests() *RequestStore { return &RequestStore{s: s} }

// Ledger exposes the append-only ledger.
func (s *Store) Ledger() *LedgerStore { return &LedgerStore{s: s} }

// Labs exposes the lab directory.
func (s *Store) Labs() *LabStore { return &LabStore{s: s} }

// SeedLabs registers labs in the directory.
func (s *Store) SeedLabs(labs ...models.Lab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, lab := range labs {
		s.state.labs[lab.ID] = lab
	}
}

// SeedUnits registers equipment units.
func (s *Store) SeedUnits(units ...models.EquipmentUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, unit := range units {
		if unit.ID == "" {
			unit.ID = uuid.NewString()
		}
		s.state.units[unit.ItemID] = unit
	}
}

// SeedGlassware registers glassware rows.
func (s *Store) SeedGlassware(rows ...models.GlasswareStock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		s.state.glassware[row.ID] = row
	}
}

func (s *Store) appendLedgerLocked(entry *models.LedgerEntry) {
	if entry == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	s.state.ledger = append(s.state.ledger, *entry)
}

// ChemicalStore implements the chemical batch and live stock contract.
type ChemicalStore struct{ s *Store }

// CreateBatch inserts a batch master, its first live row and the intake ledger entry.
func (c *ChemicalStore) CreateBatch(_ context.Context, batch *models.ChemicalBatch, live *models.LiveStock, entry *models.LedgerEntry) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	now := c.s.now()
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now
	if live.ID == "" {
		live.ID = uuid.NewString()
	}
	live.ChemicalBatchID = batch.ID
	if live.CreatedAt.IsZero() {
		live.CreatedAt = now
	}
	live.UpdatedAt = now
	for _, row := range c.s.state.live {
		if row.ChemicalBatchID == batch.ID && row.LabID == live.LabID {
			return fmt.Errorf("insert live stock: duplicate (batch, lab) %s/%s", batch.ID, live.LabID)
		}
	}

	c.s.state.batches[batch.ID] = *batch
	c.s.state.live[live.ID] = *live
	if entry != nil {
		entry.ResourceID = live.ID
	}
	c.s.appendLedgerLocked(entry)
	return nil
}

// ListBatches returns batch masters matching the filter ordered by expiry (absent last).
func (c *ChemicalStore) ListBatches(_ context.Context, filter models.BatchFilter) ([]models.ChemicalBatch, error) {
	pattern, err := compilePattern(filter.NamePattern)
	if err != nil {
		return nil, err
	}
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	result := make([]models.ChemicalBatch, 0)
	for _, batch := range c.s.state.batches {
		if filter.CanonicalKey != "" && batch.CanonicalKey != filter.CanonicalKey {
			continue
		}
		if pattern != nil && !pattern.MatchString(batch.Name) {
			continue
		}
		if filter.Vendor != "" && batch.Vendor != filter.Vendor {
			continue
		}
		if filter.Unit != "" && batch.Unit != filter.Unit {
			continue
		}
		result = append(result, batch)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if models.ExpiryBefore(result[i].ExpiryDate, result[j].ExpiryDate) {
			return true
		}
		if models.ExpiryBefore(result[j].ExpiryDate, result[i].ExpiryDate) {
			return false
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// MergeIntoBatch adds quantity to an existing batch and upserts the lab live row.
func (c *ChemicalStore) MergeIntoBatch(_ context.Context, batchID string, amount decimal.Decimal, defaults models.LiveStock, entry *models.LedgerEntry) (*models.LiveStock, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	batch, ok := c.s.state.batches[batchID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	batch.Quantity = batch.Quantity.Add(amount)
	batch.UpdatedAt = c.s.now()
	c.s.state.batches[batchID] = batch

	defaults.ChemicalBatchID = batchID
	live := c.upsertLocked(defaults, amount)
	if entry != nil {
		entry.ResourceID = live.ID
	}
	c.s.appendLedgerLocked(entry)
	return &live, nil
}

// RenameBatch renames the batch master and its live row at the given lab.
func (c *ChemicalStore) RenameBatch(_ context.Context, batchID, labID, name string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if batch, ok := c.s.state.batches[batchID]; ok {
		batch.Name = name
		batch.UpdatedAt = c.s.now()
		c.s.state.batches[batchID] = batch
	}
	for id, row := range c.s.state.live {
		if row.ChemicalBatchID == batchID && row.LabID == labID {
			row.ChemicalName = name
			row.UpdatedAt = c.s.now()
			c.s.state.live[id] = row
		}
	}
	return nil
}

// ListLive returns live rows matching the filter ordered by expiry (absent last).
func (c *ChemicalStore) ListLive(_ context.Context, filter models.LiveStockFilter) ([]models.LiveStock, error) {
	pattern, err := compilePattern(filter.NamePattern)
	if err != nil {
		return nil, err
	}
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	rows := make([]models.LiveStock, 0)
	for _, row := range c.s.state.live {
		if filter.LabID != "" && row.LabID != filter.LabID {
			continue
		}
		if filter.DisplayName != "" && row.DisplayName != filter.DisplayName {
			continue
		}
		if filter.CanonicalKey != "" && row.CanonicalKey != filter.CanonicalKey {
			continue
		}
		if pattern != nil && !pattern.MatchString(row.ChemicalName) {
			continue
		}
		if filter.PositiveOnly && !row.Quantity.IsPositive() {
			continue
		}
		rows = append(rows, row)
	}
	models.SortLiveStockByExpiry(rows)
	return rows, nil
}

// GetLive fetches a live row by id.
func (c *ChemicalStore) GetLive(_ context.Context, id string) (*models.LiveStock, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	row, ok := c.s.state.live[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &row, nil
}

// DecrementLive subtracts amount only when the row still holds at least that much.
func (c *ChemicalStore) DecrementLive(_ context.Context, id string, amount decimal.Decimal, entry *models.LedgerEntry) (*models.LiveStock, error) {
	if err := c.s.check(OpDecrementLive, id); err != nil {
		return nil, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	row, ok := c.s.state.live[id]
	if !ok || row.Quantity.LessThan(amount) {
		return nil, repository.ErrConditionFailed
	}
	row.Quantity = row.Quantity.Sub(amount)
	row.UpdatedAt = c.s.now()
	c.s.state.live[id] = row
	c.s.appendLedgerLocked(entry)
	return &row, nil
}

// RestoreLive adds quantity back to an existing live row.
func (c *ChemicalStore) RestoreLive(_ context.Context, id string, amount decimal.Decimal, entry *models.LedgerEntry) (*models.LiveStock, error) {
	if err := c.s.check(OpRestoreLive, id); err != nil {
		return nil, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	row, ok := c.s.state.live[id]
	if !ok {
		return nil, fmt.Errorf("restore live stock: %w", sql.ErrNoRows)
	}
	row.Quantity = row.Quantity.Add(amount)
	row.UpdatedAt = c.s.now()
	c.s.state.live[id] = row
	c.s.appendLedgerLocked(entry)
	return &row, nil
}

// IncrementLive upserts the (batch, lab) live row.
func (c *ChemicalStore) IncrementLive(_ context.Context, defaults models.LiveStock, amount decimal.Decimal, entry *models.LedgerEntry) (*models.LiveStock, error) {
	if err := c.s.check(OpIncrementLive, defaults.LabID); err != nil {
		return nil, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	live := c.upsertLocked(defaults, amount)
	c.s.appendLedgerLocked(entry)
	return &live, nil
}

// DeleteLiveIfEmpty removes a live row only while its quantity is still zero.
func (c *ChemicalStore) DeleteLiveIfEmpty(_ context.Context, id string) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	row, ok := c.s.state.live[id]
	if !ok || !row.Quantity.IsZero() {
		return false, nil
	}
	delete(c.s.state.live, id)
	return true, nil
}

func (c *ChemicalStore) upsertLocked(defaults models.LiveStock, amount decimal.Decimal) models.LiveStock {
	now := c.s.now()
	for id, row := range c.s.state.live {
		if row.ChemicalBatchID == defaults.ChemicalBatchID && row.LabID == defaults.LabID {
			row.Quantity = row.Quantity.Add(amount)
			row.OriginalQuantity = row.OriginalQuantity.Add(amount)
			row.UpdatedAt = now
			c.s.state.live[id] = row
			return row
		}
	}
	if defaults.ID == "" {
		defaults.ID = uuid.NewString()
	}
	defaults.Quantity = amount
	defaults.OriginalQuantity = amount
	defaults.CreatedAt = now
	defaults.UpdatedAt = now
	c.s.state.live[defaults.ID] = defaults
	return defaults
}

// OutOfStockStore implements the out-of-stock registry contract.
type OutOfStockStore struct{ s *Store }

// Upsert records the exhaustion time for a display name.
func (o *OutOfStockStore) Upsert(_ context.Context, entry *models.OutOfStockEntry) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	if existing, ok := o.s.state.outOfStock[entry.DisplayName]; ok {
		entry.ID = existing.ID
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.LastOutOfStockAt.IsZero() {
		entry.LastOutOfStockAt = o.s.now()
	}
	o.s.state.outOfStock[entry.DisplayName] = *entry
	return nil
}

// Get returns the entry for a display name.
func (o *OutOfStockStore) Get(_ context.Context, displayName string) (*models.OutOfStockEntry, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	entry, ok := o.s.state.outOfStock[displayName]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &entry, nil
}

// List returns every registered entry, most recent first.
func (o *OutOfStockStore) List(_ context.Context) ([]models.OutOfStockEntry, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()
	entries := make([]models.OutOfStockEntry, 0, len(o.s.state.outOfStock))
	for _, entry := range o.s.state.outOfStock {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].LastOutOfStockAt.After(entries[j].LastOutOfStockAt) })
	return entries, nil
}

// Delete removes the entry for a display name and reports whether one existed.
func (o *OutOfStockStore) Delete(_ context.Context, displayName string) (bool, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if _, ok := o.s.state.outOfStock[displayName]; !ok {
		return false, nil
	}
	delete(o.s.state.outOfStock, displayName)
	return true, nil
}

// EquipmentStore implements the serialized unit contract.
type EquipmentStore struct{ s *Store }

// FindUnit fetches a unit by item id.
func (e *EquipmentStore) FindUnit(_ context.Context, itemID string) (*models.EquipmentUnit, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()
	unit, ok := e.s.state.units[itemID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &unit, nil
}

// ListUnits returns units matching the filter ordered by item id.
func (e *EquipmentStore) ListUnits(_ context.Context, filter models.EquipmentFilter) ([]models.EquipmentUnit, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	units := make([]models.EquipmentUnit, 0)
	for _, unit := range e.s.state.units {
		if filter.Name != "" && !strings.EqualFold(unit.Name, filter.Name) {
			continue
		}
		if filter.Variant != "" && unit.Variant != filter.Variant {
			continue
		}
		if filter.LabID != "" && unit.LabID != filter.LabID {
			continue
		}
		if filter.Status != "" && unit.Status != filter.Status {
			continue
		}
		units = append(units, unit)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].ItemID < units[j].ItemID })
	if filter.Limit > 0 && len(units) > filter.Limit {
		units = units[:filter.Limit]
	}
	return units, nil
}

// TransitionUnit moves a unit to a new status only if it still holds the expected status (and lab when given).
func (e *EquipmentStore) TransitionUnit(_ context.Context, transition models.UnitTransition, entry *models.LedgerEntry) (*models.EquipmentUnit, error) {
	if err := e.s.check(OpTransitionUnit, transition.ItemID); err != nil {
		return nil, err
	}
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	unit, ok := e.s.state.units[transition.ItemID]
	if !ok || unit.Status != transition.ExpectedStatus {
		return nil, repository.ErrConditionFailed
	}
	if transition.ExpectedLabID != "" && unit.LabID != transition.ExpectedLabID {
		return nil, repository.ErrConditionFailed
	}
	unit.Status = transition.NewStatus
	unit.LabID = transition.NewLabID
	unit.AssignedTo = transition.AssignedTo
	unit.UpdatedAt = e.s.now()
	e.s.state.units[transition.ItemID] = unit
	if entry != nil {
		entry.ResourceID = unit.ItemID
	}
	e.s.appendLedgerLocked(entry)
	return &unit, nil
}

// GlasswareStore implements the glassware quantity contract.
type GlasswareStore struct{ s *Store }

// Find returns the stock row of a product at a lab.
func (g *GlasswareStore) Find(_ context.Context, productID, labID string) (*models.GlasswareStock, error) {
	g.s.mu.RLock()
	defer g.s.mu.RUnlock()
	for _, row := range g.s.state.glassware {
		if row.ProductID == productID && row.LabID == labID {
			found := row
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

// Decrement subtracts qty only when the row still holds at least that much.
func (g *GlasswareStore) Decrement(_ context.Context, id string, qty int, entry *models.LedgerEntry) (*models.GlasswareStock, error) {
	if err := g.s.check(OpDecrementGlassware, id); err != nil {
		return nil, err
	}
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	row, ok := g.s.state.glassware[id]
	if !ok || row.Quantity < qty {
		return nil, repository.ErrConditionFailed
	}
	row.Quantity -= qty
	row.UpdatedAt = g.s.now()
	g.s.state.glassware[id] = row
	g.s.appendLedgerLocked(entry)
	return &row, nil
}

// Increment upserts the (product, lab) row.
func (g *GlasswareStore) Increment(_ context.Context, defaults models.GlasswareStock, qty int, entry *models.LedgerEntry) (*models.GlasswareStock, error) {
	if err := g.s.check(OpIncrementGlassware, defaults.LabID); err != nil {
		return nil, err
	}
	g.s.mu.Lock()
	defer g.s.mu.Unlock()

	for id, row := range g.s.state.glassware {
		if row.ProductID == defaults.ProductID && row.LabID == defaults.LabID {
			row.Quantity += qty
			row.UpdatedAt = g.s.now()
			g.s.state.glassware[id] = row
			if entry != nil {
				entry.ResourceID = row.ID
			}
			g.s.appendLedgerLocked(entry)
			return &row, nil
		}
	}
	if defaults.ID == "" {
		defaults.ID = uuid.NewString()
	}
	defaults.Quantity = qty
	defaults.UpdatedAt = g.s.now()
	g.s.state.glassware[defaults.ID] = defaults
	if entry != nil {
		entry.ResourceID = defaults.ID
	}
	g.s.appendLedgerLocked(entry)
	return &defaults, nil
}

// RequestStore implements the versioned request document contract.
type RequestStore struct{ s *Store }

// Create inserts a new request document at version 1.
func (r *RequestStore) Create(_ context.Context, req *models.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.RequestStatusPending
	}
	req.Version = 1
	req.CreatedAt = now
	req.UpdatedAt = now
	r.s.state.requests[req.ID] = req.Clone()
	return nil
}

// GetByID returns a private copy of the stored document.
func (r *RequestStore) GetByID(_ context.Context, id string) (*models.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.state.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return req.Clone(), nil
}

// List returns requests matching the filter (latest first) and the total count.
func (r *RequestStore) List(_ context.Context, filter models.RequestFilter) ([]models.Request, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matches := make([]models.Request, 0)
	for _, req := range r.s.state.requests {
		if len(filter.Status) > 0 && !containsStatus(filter.Status, req.Status) {
			continue
		}
		if filter.FacultyID != "" && req.FacultyID != filter.FacultyID {
			continue
		}
		if filter.LabID != "" && req.LabID != filter.LabID {
			continue
		}
		matches = append(matches, *req.Clone())
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })

	total := len(matches)
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 || offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matches[offset:end], total, nil
}

// Update saves the document only if its stored version still equals req.Version, then bumps the version.
func (r *RequestStore) Update(_ context.Context, req *models.Request) error {
	if err := r.s.check(OpUpdateRequest, req.ID); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.state.requests[req.ID]
	if !ok || current.Version != req.Version {
		return repository.ErrConditionFailed
	}
	req.Version++
	req.UpdatedAt = r.s.now()
	r.s.state.requests[req.ID] = req.Clone()
	return nil
}

// LedgerStore implements the append-only ledger contract.
type LedgerStore struct{ s *Store }

// Append inserts a standalone ledger entry.
func (l *LedgerStore) Append(_ context.Context, entry *models.LedgerEntry) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.appendLedgerLocked(entry)
	return nil
}

// List returns entries matching the filter, newest first.
func (l *LedgerStore) List(_ context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	entries := make([]models.LedgerEntry, 0)
	for i := len(l.s.state.ledger) - 1; i >= 0; i-- {
		entry := l.s.state.ledger[i]
		if filter.Kind != "" && entry.Kind != filter.Kind {
			continue
		}
		if filter.ResourceID != "" && entry.ResourceID != filter.ResourceID {
			continue
		}
		if filter.RequestID != "" && (entry.RequestID == nil || *entry.RequestID != filter.RequestID) {
			continue
		}
		if filter.LabID != "" && !labMatches(entry, filter.LabID) {
			continue
		}
		entries = append(entries, entry)
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(entries) {
			return []models.LedgerEntry{}, nil
		}
		entries = entries[filter.Offset:]
	}
	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

// LabStore implements the lab directory contract.
type LabStore struct{ s *Store }

// ListActiveIDs returns the ids of every active lab.
func (l *LabStore) ListActiveIDs(_ context.Context) ([]string, error) {
	if err := l.s.check(OpListLabs, ""); err != nil {
		return nil, err
	}
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	ids := make([]string, 0, len(l.s.state.labs))
	for id, lab := range l.s.state.labs {
		if lab.Active {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("compile name pattern: %w", err)
	}
	return re, nil
}

func containsStatus(statuses []models.RequestStatus, status models.RequestStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func labMatches(entry models.LedgerEntry, labID string) bool {
	return (entry.FromLabID != nil && *entry.FromLabID == labID) || (entry.ToLabID != nil && *entry.ToLabID == labID)
}
