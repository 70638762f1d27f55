package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/labstock-api/internal/models"
	appErrors "github.com/noah-isme/labstock-api/pkg/errors"
)

func fixedGate(now time.Time) *DateGate {
	return NewDateGate(2, time.UTC, func() time.Time { return now })
}

func TestDateGateIsAllocationAllowed(t *testing.T) {
	now := time.Date(2030, time.March, 10, 23, 30, 0, 0, time.UTC)
	gate := fixedGate(now)
	experiment := func(d int) time.Time { return time.Date(2030, time.March, d, 9, 0, 0, 0, time.UTC) }

	tests := []struct {
		name    string
		date    time.Time
		isAdmin bool
		allowed bool
		reason  models.DateGateReason
		overdue int
	}{
		{name: "future", date: experiment(12), allowed: true},
		{name: "same day", date: experiment(10), allowed: true},
		{name: "within grace as faculty", date: experiment(9), reason: models.DateGateExpiredAdminOnly, overdue: 1},
		{name: "within grace as admin", date: experiment(8), isAdmin: true, allowed: true, reason: models.DateGateAdminGrace, overdue: 2},
		{name: "beyond grace as admin", date: experiment(7), isAdmin: true, reason: models.DateGateExpiredCompletely, overdue: 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status := gate.IsAllocationAllowed(tc.date, tc.isAdmin)
			assert.Equal(t, tc.allowed, status.Allowed)
			assert.Equal(t, tc.reason, status.Reason)
			assert.Equal(t, tc.overdue, status.DaysOverdue)
		})
	}
}

func TestDateGateUsesCalendarDaysInZone(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	// 18:00 UTC on the 10th is already the 11th in UTC+7
	gate := NewDateGate(0, jakarta, func() time.Time { return time.Date(2030, time.March, 10, 18, 0, 0, 0, time.UTC) })

	status := gate.IsAllocationAllowed(time.Date(2030, time.March, 10, 0, 0, 0, 0, time.UTC), false)

	assert.False(t, status.Allowed)
	assert.Equal(t, 1, status.DaysOverdue)
}

func TestDateGateEvaluateAppliesOverride(t *testing.T) {
	gate := fixedGate(time.Date(2030, time.March, 20, 8, 0, 0, 0, time.UTC))
	date := time.Date(2030, time.March, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, gate.Evaluate(date, true, false).Allowed)
	assert.False(t, gate.Evaluate(date, false, true).Allowed, "override only applies to admins")

	status := gate.Evaluate(date, true, true)
	assert.True(t, status.Allowed)
	assert.Equal(t, models.DateGateAdminOverride, status.Reason)
	assert.Nil(t, gate.Restriction("exp-1", status))

	err := gate.Restriction("exp-1", gate.Evaluate(date, false, false))
	assert.ErrorIs(t, err, appErrors.ErrDateRestriction)
	assert.Equal(t, "date_expired_completely", appErrors.FromError(err).Details["reason"])
}

func TestDeriveItemPermission(t *testing.T) {
	gate := fixedGate(time.Now())
	open := models.ExperimentAllocationStatus{Allowed: true}
	grace := models.ExperimentAllocationStatus{Allowed: true, Reason: models.DateGateAdminGrace}
	closed := models.ExperimentAllocationStatus{Reason: models.DateGateExpiredCompletely}
	available := decimal.NewFromInt(12)

	perm := gate.DeriveItemPermission(open, ItemState{}, available)
	assert.True(t, perm.CanEdit)
	assert.True(t, perm.CanDecrease)
	assert.True(t, perm.MaxIncrease.Equal(available))

	perm = gate.DeriveItemPermission(open, ItemState{IsAllocated: true}, available)
	assert.False(t, perm.CanEdit)
	assert.False(t, perm.CanDecrease)
	assert.True(t, perm.CanIncrease)
	assert.True(t, perm.MaxIncrease.Equal(available))

	perm = gate.DeriveItemPermission(open, ItemState{IsAllocated: true}, decimal.Zero)
	assert.False(t, perm.CanIncrease)

	perm = gate.DeriveItemPermission(open, ItemState{IsAllocated: true, IsDisabled: true}, available)
	assert.True(t, perm.CanEdit)

	perm = gate.DeriveItemPermission(grace, ItemState{}, available)
	assert.False(t, perm.CanEdit)
	assert.Equal(t, string(models.DateGateAdminGrace), perm.Reason)

	perm = gate.DeriveItemPermission(closed, ItemState{IsAllocated: true}, available)
	assert.False(t, perm.CanIncrease)
	assert.False(t, perm.CanDecrease)
	assert.Equal(t, string(models.DateGateExpiredCompletely), perm.Reason)
}
