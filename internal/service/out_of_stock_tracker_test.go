package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labstock-api/internal/dto"
	"github.com/noah-isme/labstock-api/internal/models"
)

func TestOutOfStockRegisteredWhenLastBatchExhausted(t *testing.T) {
	f := newStockFixture(t)
	intake := f.addIntake(t, "Acetone", 4, day(2030, time.July, 1))

	result := f.chemicals.AllocateItem(context.Background(), "Acetone", decimal.NewFromInt(4), testLabID, Movement{})
	require.Equal(t, dto.AllocationSuccess, result.Status, result.Reason)

	entries, err := f.tracker.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Acetone", entries[0].DisplayName)
	assert.Equal(t, "g", entries[0].Unit)
	assert.Empty(t, f.centralRows(t, "Acetone"))

	// exhausting the same row again is a no-op
	row := models.LiveStock{ID: intake.LiveStockID, DisplayName: "Acetone", LabID: models.CentralStoreLabID, Quantity: decimal.Zero}
	require.NoError(t, f.tracker.OnBatchExhausted(context.Background(), row, "admin-1"))
	entries, err = f.tracker.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOutOfStockClearedOnRestock(t *testing.T) {
	f := newStockFixture(t)
	f.addIntake(t, "Acetone", 4, day(2030, time.July, 1))
	result := f.chemicals.AllocateItem(context.Background(), "Acetone", decimal.NewFromInt(4), testLabID, Movement{})
	require.Equal(t, dto.AllocationSuccess, result.Status)

	restock := f.addIntake(t, "Acetone", 6, day(2030, time.July, 1))
	assert.Equal(t, dto.IntakeActionMerged, restock.Action)

	entries, err := f.tracker.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	rows := f.centralRows(t, "Acetone")
	require.Len(t, rows, 1)
	requireDecimal(t, 6, rows["Acetone"].Quantity)

	require.NoError(t, f.tracker.OnRestock(context.Background(), "Acetone"))
}

func TestOutOfStockIgnoresLabRowsAndStockedRows(t *testing.T) {
	f := newStockFixture(t)
	intake := f.addIntake(t, "Acetone", 4, nil)

	lab := models.LiveStock{ID: "lab-row", DisplayName: "Acetone", LabID: testLabID, Quantity: decimal.Zero}
	require.NoError(t, f.tracker.OnBatchExhausted(context.Background(), lab, "admin-1"))

	stocked := models.LiveStock{ID: intake.LiveStockID, DisplayName: "Acetone", LabID: models.CentralStoreLabID, Quantity: decimal.NewFromInt(4)}
	require.NoError(t, f.tracker.OnBatchExhausted(context.Background(), stocked, "admin-1"))

	entries, err := f.tracker.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Len(t, f.centralRows(t, "Acetone"), 1)
}
