package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labstock-api/internal/dto"
	"github.com/noah-isme/labstock-api/internal/models"
	"github.com/noah-isme/labstock-api/internal/repository/memstore"
)

const testLabID = "lab-chem-1"

var testAdmin = &models.ActorClaims{UserID: "admin-1", Role: models.RoleAdmin}

type stockFixture struct {
	store     *memstore.Store
	ledger    *StockLedger
	resolver  *BatchIdentityResolver
	tracker   *OutOfStockTracker
	chemicals *ChemicalAllocator
	glassware *GlasswareAllocator
	equipment *EquipmentAllocator
	intake    *IntakeService
	metrics   *MetricsService
}

func noSleep(context.Context, time.Duration) error { return nil }

func newStockFixture(t *testing.T) *stockFixture {
	t.Helper()
	store := memstore.New()
	store.SeedLabs(models.Lab{ID: testLabID, Name: "Chemistry 1", Active: true})

	metrics := NewMetricsService()
	ledger := NewStockLedger(store.Chemicals(), store.Equipment(), store.Glassware(), store.Ledger(), models.CentralStoreLabID, nil)
	resolver := NewBatchIdentityResolver(ledger, nil)
	tracker := NewOutOfStockTracker(ledger, resolver, store.OutOfStock(), metrics, nil)

	chemicals := NewChemicalAllocator(ledger, tracker, RetryPolicy{Attempts: 3}, metrics, nil)
	chemicals.sleep = noSleep
	glassware := NewGlasswareAllocator(ledger, RetryPolicy{Attempts: 3}, metrics, nil)
	glassware.sleep = noSleep

	return &stockFixture{
		store:     store,
		ledger:    ledger,
		resolver:  resolver,
		tracker:   tracker,
		chemicals: chemicals,
		glassware: glassware,
		equipment: NewEquipmentAllocator(ledger, metrics, nil),
		intake:    NewIntakeService(resolver, tracker, nil, models.CentralStoreLabID, nil),
		metrics:   metrics,
	}
}

func day(year int, month time.Month, d int) *time.Time {
	ts := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
	return &ts
}

func (f *stockFixture) addIntake(t *testing.T, name string, qty int64, expiry *time.Time) dto.IntakeBatchResult {
	t.Helper()
	resp, err := f.intake.AddChemicalIntake(context.Background(), dto.ChemicalIntakeRequest{
		Items: []dto.ChemicalIntakeLine{{
			Name:       name,
			Quantity:   decimal.NewFromInt(qty),
			Unit:       "g",
			ExpiryDate: expiry,
			Vendor:     "Merck",
		}},
	}, testAdmin)
	require.NoError(t, err)
	require.Len(t, resp.Batches, 1)
	return resp.Batches[0]
}

// centralRows returns the central rows of a display name keyed by row name.
func (f *stockFixture) centralRows(t *testing.T, display string) map[string]models.LiveStock {
	t.Helper()
	rows, err := f.ledger.ListLive(context.Background(), models.LiveStockFilter{
		LabID:        models.CentralStoreLabID,
		CanonicalKey: CanonicalKey(display),
	})
	require.NoError(t, err)
	out := make(map[string]models.LiveStock, len(rows))
	for _, row := range rows {
		out[row.ChemicalName] = row
	}
	return out
}

func (f *stockFixture) labTotal(t *testing.T, display, labID string) decimal.Decimal {
	t.Helper()
	rows, err := f.ledger.ListLive(context.Background(), models.LiveStockFilter{LabID: labID, CanonicalKey: CanonicalKey(display)})
	require.NoError(t, err)
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Quantity)
	}
	return total
}

func requireDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.NewFromInt(want).Equal(got), "want %d, got %s", want, got.String())
}
