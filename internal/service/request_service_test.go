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
	"github.com/noah-isme/labstock-api/internal/repository"
	"github.com/noah-isme/labstock-api/internal/repository/memstore"
	appErrors "github.com/noah-isme/labstock-api/pkg/errors"
)

var (
	testFaculty = &models.ActorClaims{UserID: "faculty-1", Role: models.RoleFaculty}
	testToday   = time.Date(2030, time.March, 10, 9, 0, 0, 0, time.UTC)
)

func newRequestFixture(t *testing.T) (*stockFixture, *RequestService) {
	t.Helper()
	f := newStockFixture(t)
	svc := NewRequestService(
		f.store.Requests(),
		f.chemicals,
		f.glassware,
		f.equipment,
		fixedGate(testToday),
		staticLabs{testLabID: true},
		nil,
		RequestServiceConfig{SaveRetries: 3},
		nil,
	)
	svc.now = func() time.Time { return testToday }
	return f, svc
}

func submitSample(t *testing.T, svc *RequestService, date time.Time) *models.Request {
	t.Helper()
	req, err := svc.Submit(context.Background(), dto.SubmitRequest{
		LabID: testLabID,
		Experiments: []dto.SubmitExperiment{{
			Name: "Titration",
			Date: date,
			Chemicals: []dto.ChemicalRequestLine{
				{ChemicalName: "NaCl", Quantity: decimal.NewFromInt(3), Unit: "g"},
				{ChemicalName: "KCl", Quantity: decimal.NewFromInt(2), Unit: "g"},
			},
			Glassware: []dto.GlasswareRequestLine{{ProductID: "p-beaker", Name: "Beaker", Quantity: 2}},
			Equipment: []dto.EquipmentRequestLine{{Name: "Microscope", Variant: "40x", Quantity: 1}},
		}},
	}, testFaculty)
	require.NoError(t, err)
	return req
}

func TestRecomputeStatus(t *testing.T) {
	build := func(status models.RequestStatus, flags ...bool) *models.Request {
		exp := models.Experiment{}
		for i, flag := range flags {
			switch i % 3 {
			case 0:
				exp.Chemicals = append(exp.Chemicals, models.ChemicalRequestItem{IsAllocated: flag})
			case 1:
				exp.Glassware = append(exp.Glassware, models.GlasswareRequestItem{IsAllocated: flag})
			default:
				exp.Equipment = append(exp.Equipment, models.EquipmentRequestItem{IsAllocated: flag})
			}
		}
		return &models.Request{Status: status, Experiments: models.Experiments{exp}}
	}

	assert.Equal(t, models.RequestStatusFulfilled, RecomputeStatus(build(models.RequestStatusApproved, true, true, true)))
	assert.Equal(t, models.RequestStatusPartiallyFulfilled, RecomputeStatus(build(models.RequestStatusApproved, true, false, false)))
	assert.Equal(t, models.RequestStatusPartiallyFulfilled, RecomputeStatus(build(models.RequestStatusApproved, false, false, true)))
	assert.Equal(t, models.RequestStatusApproved, RecomputeStatus(build(models.RequestStatusApproved, false, false, false)))
	assert.Equal(t, models.RequestStatusFulfilled, RecomputeStatus(build(models.RequestStatusApproved)), "empty lists are vacuously allocated")

	req := build(models.RequestStatusApproved, true, false)
	before := RecomputeStatus(req)
	assert.Equal(t, before, RecomputeStatus(req))
	assert.Equal(t, models.RequestStatusApproved, req.Status, "recompute does not mutate the request")
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.RequestStatusPending, models.RequestStatusApproved))
	assert.True(t, CanTransition(models.RequestStatusPartiallyFulfilled, models.RequestStatusFulfilled))
	assert.False(t, CanTransition(models.RequestStatusRejected, models.RequestStatusApproved))
	assert.False(t, CanTransition(models.RequestStatusFulfilled, models.RequestStatusPartiallyFulfilled))
	assert.False(t, CanTransition(models.RequestStatusCompleted, models.RequestStatusFulfilled))
}

func TestRequestLifecycleWithPartialThenRemainingFulfilment(t *testing.T) {
	f, svc := newRequestFixture(t)
	ctx := context.Background()
	f.addIntake(t, "NaCl", 5, day(2030, time.December, 1))
	seedBeakers(f, 10)
	seedScopes(f)

	req := submitSample(t, svc, time.Date(2030, time.March, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Equal(t, "faculty-1", req.FacultyID)

	_, err := svc.AllocateUnified(ctx, req.ID, dto.UnifiedAllocationRequest{}, testAdmin)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition, "pending requests cannot be allocated")

	approved, err := svc.Approve(ctx, req.ID, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)

	resp, err := svc.AllocateUnified(ctx, req.ID, dto.UnifiedAllocationRequest{}, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, dto.AllocationPartial, resp.Outcome)
	assert.Equal(t, models.RequestStatusApproved, resp.PreviousStatus)
	assert.Equal(t, models.RequestStatusPartiallyFulfilled, resp.Status)
	require.Len(t, resp.PerCategoryErrors, 1)
	assert.Equal(t, models.ResourceChemical, resp.PerCategoryErrors[0].Category)
	assert.Equal(t, "KCl", resp.PerCategoryErrors[0].Name)
	assert.Equal(t, appErrors.ErrNotFound.Code, resp.PerCategoryErrors[0].Code)
	assert.Len(t, resp.Allocated, 3)

	stored, err := svc.Get(ctx, req.ID, testFaculty)
	require.NoError(t, err)
	exp := stored.Experiments[0]
	assert.True(t, exp.Chemicals[0].IsAllocated)
	assert.True(t, exp.Chemicals[0].AllocatedQuantity.Equal(decimal.NewFromInt(3)))
	require.Len(t, exp.Chemicals[0].AllocationHistory, 1)
	assert.Equal(t, testLabID, exp.Chemicals[0].AllocationHistory[0].LabID)
	assert.False(t, exp.Chemicals[1].IsAllocated)
	assert.Equal(t, 2, exp.Glassware[0].AllocatedQuantity)
	assert.Equal(t, []string{"MIC-001"}, exp.Equipment[0].AllocatedItemIDs)
	require.NotNil(t, exp.AllocationStatus)
	assert.True(t, exp.AllocationStatus.Allowed)

	unit, err := f.ledger.FindUnit(ctx, "MIC-001")
	require.NoError(t, err)
	assert.Equal(t, models.EquipmentStatusAssigned, unit.Status)
	require.NotNil(t, unit.AssignedTo)
	assert.Equal(t, "faculty-1", *unit.AssignedTo)

	f.addIntake(t, "KCl", 5, nil)
	resp, err = svc.FulfillRemaining(ctx, req.ID, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, dto.AllocationSuccess, resp.Outcome)
	assert.Equal(t, models.RequestStatusFulfilled, resp.Status)
	require.Len(t, resp.Allocated, 1, "only the missing item is allocated again")
	requireDecimal(t, 3, f.labTotal(t, "KCl", models.CentralStoreLabID))

	_, err = svc.FulfillRemaining(ctx, req.ID, testAdmin)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	completed, err := svc.Complete(ctx, req.ID, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
}

func TestUnifiedAllocationHonoursDateGateAndOverride(t *testing.T) {
	f, svc := newRequestFixture(t)
	ctx := context.Background()
	f.addIntake(t, "NaCl", 5, nil)
	f.addIntake(t, "KCl", 5, nil)
	seedBeakers(f, 10)
	seedScopes(f)

	req := submitSample(t, svc, time.Date(2030, time.March, 1, 0, 0, 0, 0, time.UTC))
	_, err := svc.Approve(ctx, req.ID, testAdmin)
	require.NoError(t, err)

	resp, err := svc.AllocateUnified(ctx, req.ID, dto.UnifiedAllocationRequest{}, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, dto.AllocationFailed, resp.Outcome)
	assert.Equal(t, models.RequestStatusApproved, resp.Status)
	require.Len(t, resp.PerCategoryErrors, 4)
	for _, e := range resp.PerCategoryErrors {
		assert.Equal(t, appErrors.ErrDateRestriction.Code, e.Code)
	}
	requireDecimal(t, 5, f.centralRows(t, "NaCl")["NaCl"].Quantity)

	_, err = svc.SetAdminOverride(ctx, req.ID, req.Experiments[0].ID, true, testFaculty)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	updated, err := svc.SetAdminOverride(ctx, req.ID, req.Experiments[0].ID, true, testAdmin)
	require.NoError(t, err)
	assert.True(t, updated.Experiments[0].AdminOverride)

	resp, err = svc.AllocateUnified(ctx, req.ID, dto.UnifiedAllocationRequest{}, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, dto.AllocationSuccess, resp.Outcome)
	assert.Equal(t, models.RequestStatusFulfilled, resp.Status)
}

func TestUnifiedAllocationSkipsDisabledItemsAndHonoursSelections(t *testing.T) {
	f, svc := newRequestFixture(t)
	ctx := context.Background()
	f.addIntake(t, "NaCl", 5, nil)
	f.addIntake(t, "KCl", 5, nil)
	seedBeakers(f, 10)
	seedScopes(f)

	req := submitSample(t, svc, time.Date(2030, time.March, 20, 0, 0, 0, 0, time.UTC))
	_, err := svc.Approve(ctx, req.ID, testAdmin)
	require.NoError(t, err)
	exp := req.Experiments[0]

	disabled, err := svc.SetItemDisabled(ctx, req.ID, exp.ID, exp.Chemicals[1].ID, true, "not needed", testAdmin)
	require.NoError(t, err)
	assert.True(t, disabled.Experiments[0].Chemicals[1].IsDisabled)

	_, err = svc.SetItemDisabled(ctx, req.ID, exp.ID, "missing", true, "", testAdmin)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	resp, err := svc.AllocateUnified(ctx, req.ID, dto.UnifiedAllocationRequest{
		EquipmentSelections: map[string][]string{exp.Equipment[0].ID: {"MIC-002"}},
	}, testAdmin)
	require.NoError(t, err)
	assert.Empty(t, resp.PerCategoryErrors)
	assert.Equal(t, models.RequestStatusPartiallyFulfilled, resp.Status, "disabled items stay unallocated")
	requireDecimal(t, 5, f.centralRows(t, "KCl")["KCl"].Quantity)

	unit, err := f.ledger.FindUnit(ctx, "MIC-002")
	require.NoError(t, err)
	assert.Equal(t, models.EquipmentStatusAssigned, unit.Status)
}

func TestUnifiedAllocationReportsPinnedUnitFailures(t *testing.T) {
	f, svc := newRequestFixture(t)
	ctx := context.Background()
	f.addIntake(t, "NaCl", 5, nil)
	f.addIntake(t, "KCl", 5, nil)
	seedBeakers(f, 10)
	seedScopes(f)

	req := submitSample(t, svc, time.Date(2030, time.March, 20, 0, 0, 0, 0, time.UTC))
	_, err := svc.Approve(ctx, req.ID, testAdmin)
	require.NoError(t, err)

	resp, err := svc.AllocateUnified(ctx, req.ID, dto.UnifiedAllocationRequest{
		EquipmentSelections: map[string][]string{req.Experiments[0].Equipment[0].ID: {"MIC-003"}},
	}, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, dto.AllocationPartial, resp.Outcome)
	require.Len(t, resp.PerCategoryErrors, 1)
	assert.Equal(t, models.ResourceEquipment, resp.PerCategoryErrors[0].Category)
	assert.Contains(t, resp.PerCategoryErrors[0].Reason, "MIC-003")
}

func TestRequestWorkflowGuards(t *testing.T) {
	_, svc := newRequestFixture(t)
	ctx := context.Background()
	req := submitSample(t, svc, testToday)

	_, err := svc.Approve(ctx, req.ID, testFaculty)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Complete(ctx, req.ID, testAdmin)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	rejected, err := svc.Reject(ctx, req.ID, "duplicate", testAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, rejected.Status)
	require.NotNil(t, rejected.Remarks)
	assert.Equal(t, "duplicate", *rejected.Remarks)

	_, err = svc.Approve(ctx, req.ID, testAdmin)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	_, err = svc.Get(ctx, "missing", testAdmin)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSubmitValidatesLab(t *testing.T) {
	_, svc := newRequestFixture(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, dto.SubmitRequest{
		LabID:       "lab-unknown",
		Experiments: []dto.SubmitExperiment{{Name: "x", Date: testToday}},
	}, testFaculty)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Submit(ctx, dto.SubmitRequest{
		LabID:       models.CentralStoreLabID,
		Experiments: []dto.SubmitExperiment{{Name: "x", Date: testToday}},
	}, testFaculty)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Submit(ctx, dto.SubmitRequest{LabID: testLabID}, testFaculty)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestFacultyOnlySeesOwnRequests(t *testing.T) {
	_, svc := newRequestFixture(t)
	ctx := context.Background()
	mine := submitSample(t, svc, testToday)
	other := &models.ActorClaims{UserID: "faculty-2", Role: models.RoleFaculty}

	_, err := svc.Get(ctx, mine.ID, other)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	items, pagination, err := svc.List(ctx, dto.RequestQuery{}, 1, 20, other)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, pagination.TotalCount)

	items, pagination, err = svc.List(ctx, dto.RequestQuery{Status: []models.RequestStatus{models.RequestStatusPending}}, 1, 20, testAdmin)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestRequestSaveRetriesOnVersionConflict(t *testing.T) {
	f, svc := newRequestFixture(t)
	ctx := context.Background()
	req := submitSample(t, svc, testToday)

	conflicts := 0
	f.store.SetFault(func(op, _ string) error {
		if op == memstore.OpUpdateRequest && conflicts < 2 {
			conflicts++
			return repository.ErrConditionFailed
		}
		return nil
	})
	approved, err := svc.Approve(ctx, req.ID, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, 2, conflicts)
	assert.Equal(t, 2, approved.Version)

	f.store.SetFault(func(op, _ string) error {
		if op == memstore.OpUpdateRequest {
			return repository.ErrConditionFailed
		}
		return nil
	})
	_, err = svc.SetAdminOverride(ctx, req.ID, req.Experiments[0].ID, true, testAdmin)
	assert.ErrorIs(t, err, appErrors.ErrConcurrencyConflict)
}

func TestItemPermissionsReflectAllocationState(t *testing.T) {
	f, svc := newRequestFixture(t)
	ctx := context.Background()
	f.addIntake(t, "NaCl", 10, nil)
	seedBeakers(f, 10)
	seedScopes(f)

	req := submitSample(t, svc, time.Date(2030, time.March, 20, 0, 0, 0, 0, time.UTC))
	_, err := svc.Approve(ctx, req.ID, testAdmin)
	require.NoError(t, err)
	_, err = svc.AllocateUnified(ctx, req.ID, dto.UnifiedAllocationRequest{}, testAdmin)
	require.NoError(t, err)

	perms, err := svc.ItemPermissions(ctx, req.ID, testFaculty)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	require.Len(t, perms[0].Items, 4)

	nacl := perms[0].Items[0]
	assert.False(t, nacl.CanDecrease)
	assert.True(t, nacl.CanIncrease)
	assert.True(t, nacl.MaxIncrease.Equal(decimal.NewFromInt(7)))

	kcl := perms[0].Items[1]
	assert.True(t, kcl.CanEdit)
	assert.True(t, kcl.MaxIncrease.IsZero())

	beaker := perms[0].Items[2]
	assert.Equal(t, models.ResourceGlassware, beaker.Category)
	assert.True(t, beaker.MaxIncrease.Equal(decimal.NewFromInt(8)))
}
