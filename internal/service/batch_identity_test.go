package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labstock-api/internal/dto"
	"github.com/noah-isme/labstock-api/internal/models"
	appErrors "github.com/noah-isme/labstock-api/pkg/errors"
)

func TestDisplayNameAndCanonicalKey(t *testing.T) {
	cases := map[string]string{
		"NaCl":            "NaCl",
		"  NaCl   - B ":   "NaCl",
		"Sodium  Sulfate": "Sodium Sulfate",
		"Buffer-A":        "Buffer-A",
		"Acid - AB":       "Acid - AB",
	}
	for in, want := range cases {
		assert.Equal(t, want, DisplayName(in), in)
	}
	assert.Equal(t, "sodium sulfate", CanonicalKey("Sodium Sulfate - C"))
}

func TestNextSuffix(t *testing.T) {
	letter, err := NextSuffix("NaCl", nil)
	require.NoError(t, err)
	assert.Equal(t, "A", letter)

	letter, err = NextSuffix("NaCl", []string{"NaCl", "NaCl - A", "NaCl - C", "KCl - F"})
	require.NoError(t, err)
	assert.Equal(t, "D", letter)

	_, err = NextSuffix("NaCl", []string{"NaCl - Z"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrSuffixExhausted))
}

func TestIntakeMergesSameExpiryLot(t *testing.T) {
	f := newStockFixture(t)
	first := f.addIntake(t, "NaCl", 50, day(2030, time.May, 1))
	second := f.addIntake(t, "nacl", 50, day(2030, time.May, 1))

	assert.Equal(t, dto.IntakeActionCreated, first.Action)
	assert.Equal(t, dto.IntakeActionMerged, second.Action)
	assert.Equal(t, first.Batch.ID, second.Batch.ID)
	assert.Equal(t, "NaCl", second.Batch.DisplayName)
	requireDecimal(t, 100, second.Batch.Quantity)

	rows := f.centralRows(t, "NaCl")
	require.Len(t, rows, 1)
	requireDecimal(t, 100, rows["NaCl"].Quantity)
}

func TestIntakeMergesUndatedPool(t *testing.T) {
	f := newStockFixture(t)
	first := f.addIntake(t, "NaCl", 50, nil)
	second := f.addIntake(t, "NaCl", 50, nil)

	assert.Equal(t, dto.IntakeActionCreated, first.Action)
	assert.Equal(t, dto.IntakeActionMerged, second.Action)
	assert.Equal(t, first.Batch.ID, second.Batch.ID)
	requireDecimal(t, 100, second.Batch.Quantity)

	rows := f.centralRows(t, "NaCl")
	require.Len(t, rows, 1)
	requireDecimal(t, 100, rows["NaCl"].Quantity)
	assert.Nil(t, rows["NaCl"].ExpiryDate)
}

func TestIntakeSuffixesLaterExpiry(t *testing.T) {
	f := newStockFixture(t)
	f.addIntake(t, "NaCl", 10, day(2030, time.January, 1))
	later := f.addIntake(t, "NaCl", 10, day(2030, time.June, 1))
	// an undated lot joining dated siblings is suffixed so only the earliest expiry holds the base name
	undated := f.addIntake(t, "NaCl", 10, nil)

	assert.Equal(t, "NaCl - A", later.Batch.Name)
	assert.Equal(t, "NaCl - B", undated.Batch.Name)
	assert.Len(t, f.centralRows(t, "NaCl"), 3)
}

func TestIntakeEarlierExpiryTakesBaseName(t *testing.T) {
	f := newStockFixture(t)
	existing := f.addIntake(t, "NaCl", 10, day(2030, time.June, 1))
	earlier := f.addIntake(t, "NaCl", 10, day(2030, time.January, 1))

	assert.Equal(t, "NaCl", earlier.Batch.Name)
	require.Len(t, earlier.RenamedBatch, 1)
	assert.Equal(t, dto.RenamedBatch{BatchID: existing.Batch.ID, From: "NaCl", To: "NaCl - A"}, earlier.RenamedBatch[0])

	rows := f.centralRows(t, "NaCl")
	assert.Equal(t, time.January, rows["NaCl"].ExpiryDate.Month())
	assert.Equal(t, time.June, rows["NaCl - A"].ExpiryDate.Month())

	entries, err := f.ledger.Entries(context.Background(), models.LedgerFilter{Kind: models.ResourceChemical})
	require.NoError(t, err)
	renames := 0
	for _, entry := range entries {
		if entry.Type == models.LedgerEntryStatusChange {
			renames++
		}
	}
	assert.Equal(t, 1, renames)
}

func TestIntakeEarliestLotShiftsEverySibling(t *testing.T) {
	f := newStockFixture(t)
	march := f.addIntake(t, "NaCl", 10, day(2030, time.March, 1))
	june := f.addIntake(t, "NaCl", 10, day(2030, time.June, 1))
	january := f.addIntake(t, "NaCl", 10, day(2030, time.January, 1))

	assert.Equal(t, "NaCl", january.Batch.Name)
	assert.ElementsMatch(t, []dto.RenamedBatch{
		{BatchID: march.Batch.ID, From: "NaCl", To: "NaCl - A"},
		{BatchID: june.Batch.ID, From: "NaCl - A", To: "NaCl - B"},
	}, january.RenamedBatch)

	rows := f.centralRows(t, "NaCl")
	require.Len(t, rows, 3)
	assert.Equal(t, time.January, rows["NaCl"].ExpiryDate.Month())
	assert.Equal(t, time.March, rows["NaCl - A"].ExpiryDate.Month())
	assert.Equal(t, time.June, rows["NaCl - B"].ExpiryDate.Month())
}

func TestReindexAfterExhaustingEarliestBatch(t *testing.T) {
	f := newStockFixture(t)
	f.addIntake(t, "NaCl", 10, day(2030, time.January, 1))
	f.addIntake(t, "NaCl", 10, day(2030, time.February, 1))
	f.addIntake(t, "NaCl", 10, day(2030, time.March, 1))
	f.addIntake(t, "NaCl", 10, day(2030, time.April, 1))
	require.Contains(t, f.centralRows(t, "NaCl"), "NaCl - C")

	result := f.chemicals.AllocateItem(context.Background(), "NaCl", decimal.NewFromInt(10), testLabID, Movement{})
	require.Equal(t, dto.AllocationSuccess, result.Status, result.Reason)

	rows := f.centralRows(t, "NaCl")
	require.Len(t, rows, 3)
	assert.Equal(t, time.February, rows["NaCl"].ExpiryDate.Month())
	assert.Equal(t, time.March, rows["NaCl - A"].ExpiryDate.Month())
	assert.Equal(t, time.April, rows["NaCl - B"].ExpiryDate.Month())
}

func TestIntakeRejectsNonCentralLab(t *testing.T) {
	f := newStockFixture(t)
	_, err := f.intake.AddChemicalIntake(context.Background(), dto.ChemicalIntakeRequest{
		LabID: testLabID,
		Items: []dto.ChemicalIntakeLine{{Name: "NaCl", Quantity: decimal.NewFromInt(1), Unit: "g", Vendor: "Merck"}},
	}, testAdmin)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestIntakeValidatesLines(t *testing.T) {
	f := newStockFixture(t)
	_, err := f.intake.AddChemicalIntake(context.Background(), dto.ChemicalIntakeRequest{
		Items: []dto.ChemicalIntakeLine{{Name: "NaCl", Quantity: decimal.NewFromInt(-1), Unit: "g", Vendor: "Merck"}},
	}, testAdmin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestIntakeBatchCodeFormat(t *testing.T) {
	f := newStockFixture(t)
	f.intake.now = func() time.Time { return time.Date(2030, time.March, 4, 12, 0, 0, 0, time.UTC) }

	resp, err := f.intake.AddChemicalIntake(context.Background(), dto.ChemicalIntakeRequest{
		Items: []dto.ChemicalIntakeLine{
			{Name: "NaCl", Quantity: decimal.NewFromInt(1), Unit: "g", Vendor: "Merck"},
			{Name: "KCl", Quantity: decimal.NewFromInt(2), Unit: "g", Vendor: "Merck"},
		},
	}, testAdmin)
	require.NoError(t, err)
	assert.Regexp(t, `^BATCH-20300304-[0-9A-F]{8}$`, resp.BatchID)
	require.Len(t, resp.Batches, 2)
	assert.Equal(t, resp.BatchID, resp.Batches[0].Batch.BatchCode)
	assert.Empty(t, resp.Failed)
}
