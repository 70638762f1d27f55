package memstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labstock-api/internal/models"
	"github.com/noah-isme/labstock-api/internal/repository"
)

func seedBatch(t *testing.T, store *Store, name string, qty int64) *models.LiveStock {
	t.Helper()
	batch := &models.ChemicalBatch{Name: name, DisplayName: name, CanonicalKey: name, Unit: "g", Quantity: decimal.NewFromInt(qty)}
	live := &models.LiveStock{DisplayName: name, CanonicalKey: name, ChemicalName: name, Unit: "g", Quantity: decimal.NewFromInt(qty), LabID: models.CentralStoreLabID}
	require.NoError(t, store.Chemicals().CreateBatch(context.Background(), batch, live, &models.LedgerEntry{Kind: models.ResourceChemical}))
	return live
}

func TestDecrementLiveIsConditional(t *testing.T) {
	store := New()
	live := seedBatch(t, store, "nacl", 5)
	ctx := context.Background()

	row, err := store.Chemicals().DecrementLive(ctx, live.ID, decimal.NewFromInt(3), nil)
	require.NoError(t, err)
	assert.True(t, row.Quantity.Equal(decimal.NewFromInt(2)))

	_, err = store.Chemicals().DecrementLive(ctx, live.ID, decimal.NewFromInt(3), nil)
	assert.ErrorIs(t, err, repository.ErrConditionFailed)

	deleted, err := store.Chemicals().DeleteLiveIfEmpty(ctx, live.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestIncrementLiveUpsertsPerBatchAndLab(t *testing.T) {
	store := New()
	live := seedBatch(t, store, "nacl", 5)
	ctx := context.Background()

	defaults := models.LiveStock{ChemicalBatchID: live.ChemicalBatchID, LabID: "lab-1", IsAllocated: true}
	first, err := store.Chemicals().IncrementLive(ctx, defaults, decimal.NewFromInt(2), nil)
	require.NoError(t, err)
	second, err := store.Chemicals().IncrementLive(ctx, defaults, decimal.NewFromInt(1), nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Quantity.Equal(decimal.NewFromInt(3)))
	assert.True(t, second.IsAllocated)
}

func TestTransitionUnitGuardsStatusAndLab(t *testing.T) {
	store := New()
	store.SeedUnits(models.EquipmentUnit{ItemID: "EQ-1", Name: "Scope", Status: models.EquipmentStatusAvailable, LabID: models.CentralStoreLabID})
	ctx := context.Background()

	_, err := store.Equipment().TransitionUnit(ctx, models.UnitTransition{
		ItemID: "EQ-1", ExpectedStatus: models.EquipmentStatusAvailable, ExpectedLabID: "lab-9",
		NewStatus: models.EquipmentStatusIssued, NewLabID: "lab-1",
	}, nil)
	assert.ErrorIs(t, err, repository.ErrConditionFailed)

	entry := &models.LedgerEntry{Kind: models.ResourceEquipment}
	unit, err := store.Equipment().TransitionUnit(ctx, models.UnitTransition{
		ItemID: "EQ-1", ExpectedStatus: models.EquipmentStatusAvailable,
		NewStatus: models.EquipmentStatusIssued, NewLabID: "lab-1",
	}, entry)
	require.NoError(t, err)
	assert.Equal(t, "lab-1", unit.LabID)
	assert.Equal(t, "EQ-1", entry.ResourceID)

	_, err = store.Equipment().TransitionUnit(ctx, models.UnitTransition{
		ItemID: "EQ-1", ExpectedStatus: models.EquipmentStatusAvailable,
		NewStatus: models.EquipmentStatusIssued, NewLabID: "lab-2",
	}, nil)
	assert.ErrorIs(t, err, repository.ErrConditionFailed)
}

func TestRequestUpdateRejectsStaleVersion(t *testing.T) {
	store := New()
	ctx := context.Background()
	req := &models.Request{FacultyID: "fac-1", LabID: "lab-1"}
	require.NoError(t, store.Requests().Create(ctx, req))

	first, err := store.Requests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	second, err := store.Requests().GetByID(ctx, req.ID)
	require.NoError(t, err)

	first.Status = models.RequestStatusApproved
	require.NoError(t, store.Requests().Update(ctx, first))
	second.Status = models.RequestStatusRejected
	assert.ErrorIs(t, store.Requests().Update(ctx, second), repository.ErrConditionFailed)

	stored, err := store.Requests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, stored.Status)
	assert.Equal(t, 2, stored.Version)

	_, err = store.Requests().GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestFaultHookAbortsMutation(t *testing.T) {
	store := New()
	live := seedBatch(t, store, "nacl", 5)
	boom := errors.New("boom")
	store.SetFault(func(op, id string) error {
		if op == OpDecrementLive && id == live.ID {
			return boom
		}
		return nil
	})

	_, err := store.Chemicals().DecrementLive(context.Background(), live.ID, decimal.NewFromInt(1), nil)
	assert.ErrorIs(t, err, boom)

	row, err := store.Chemicals().GetLive(context.Background(), live.ID)
	require.NoError(t, err)
	assert.True(t, row.Quantity.Equal(decimal.NewFromInt(5)))
}

func TestLedgerListFiltersByRequestAndLab(t *testing.T) {
	store := New()
	ctx := context.Background()
	reqID := "req-1"
	lab := "lab-1"
	require.NoError(t, store.Ledger().Append(ctx, &models.LedgerEntry{Kind: models.ResourceChemical, RequestID: &reqID, ToLabID: &lab}))
	require.NoError(t, store.Ledger().Append(ctx, &models.LedgerEntry{Kind: models.ResourceGlassware}))

	entries, err := store.Ledger().List(ctx, models.LedgerFilter{RequestID: reqID})
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	entries, err = store.Ledger().List(ctx, models.LedgerFilter{LabID: lab})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
