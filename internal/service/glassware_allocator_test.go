package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labstock-api/internal/dto"
	"github.com/noah-isme/labstock-api/internal/models"
	"github.com/noah-isme/labstock-api/internal/repository"
	"github.com/noah-isme/labstock-api/internal/repository/memstore"
	appErrors "github.com/noah-isme/labstock-api/pkg/errors"
)

func seedBeakers(f *stockFixture, qty int) {
	f.store.SeedGlassware(models.GlasswareStock{ProductID: "p-beaker", Name: "Beaker", Variant: "250ml", Quantity: qty, LabID: models.CentralStoreLabID})
}

func TestGlasswareAllocateMovesCount(t *testing.T) {
	f := newStockFixture(t)
	seedBeakers(f, 10)

	result := f.glassware.AllocateItem(context.Background(), "p-beaker", 3, testLabID, Movement{})
	require.Equal(t, dto.AllocationSuccess, result.Status, result.Reason)
	assert.Equal(t, 3, result.Allocated)

	central, err := f.glassware.Available(context.Background(), "p-beaker")
	require.NoError(t, err)
	assert.Equal(t, 7, central)
	lab, err := f.ledger.FindGlassware(context.Background(), "p-beaker", testLabID)
	require.NoError(t, err)
	assert.Equal(t, 3, lab.Quantity)
	assert.Equal(t, "Beaker", lab.Name)
}

func TestGlasswareInsufficientStock(t *testing.T) {
	f := newStockFixture(t)
	seedBeakers(f, 2)

	result := f.glassware.AllocateItem(context.Background(), "p-beaker", 5, testLabID, Movement{})

	assert.Equal(t, dto.AllocationFailed, result.Status)
	assert.Equal(t, appErrors.ErrInsufficientStock.Code, result.Code)
	available, err := f.glassware.Available(context.Background(), "p-beaker")
	require.NoError(t, err)
	assert.Equal(t, 2, available)
}

func TestGlasswareUnknownProduct(t *testing.T) {
	f := newStockFixture(t)

	result := f.glassware.AllocateItem(context.Background(), "p-flask", 1, testLabID, Movement{})

	assert.Equal(t, appErrors.ErrNotFound.Code, result.Code)
	available, err := f.glassware.Available(context.Background(), "p-flask")
	require.NoError(t, err)
	assert.Zero(t, available)
}

func TestGlasswareRestoresCentralWhenLabIncrementFails(t *testing.T) {
	f := newStockFixture(t)
	seedBeakers(f, 10)
	f.store.SetFault(func(op, id string) error {
		if op == memstore.OpIncrementGlassware && id == testLabID {
			return errors.New("lab row unavailable")
		}
		return nil
	})

	result := f.glassware.AllocateItem(context.Background(), "p-beaker", 4, testLabID, Movement{})

	assert.Equal(t, dto.AllocationFailed, result.Status)
	available, err := f.glassware.Available(context.Background(), "p-beaker")
	require.NoError(t, err)
	assert.Equal(t, 10, available)
}

func TestGlasswareCancelledDuringBackoff(t *testing.T) {
	f := newStockFixture(t)
	seedBeakers(f, 10)
	f.store.SetFault(func(op, _ string) error {
		if op == memstore.OpDecrementGlassware {
			return repository.ErrConditionFailed
		}
		return nil
	})
	f.glassware.sleep = func(context.Context, time.Duration) error { return context.Canceled }

	result := f.glassware.AllocateItem(context.Background(), "p-beaker", 4, testLabID, Movement{})

	assert.Equal(t, dto.AllocationFailed, result.Status)
	assert.Equal(t, appErrors.ErrInternal.Code, result.Code)
	assert.Equal(t, "allocation cancelled", result.Reason)
	available, err := f.glassware.Available(context.Background(), "p-beaker")
	require.NoError(t, err)
	assert.Equal(t, 10, available)
}
