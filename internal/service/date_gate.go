package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/labstock-api/internal/dto"
	"github.com/noah-isme/labstock-api/internal/models"
	appErrors "github.com/noah-isme/labstock-api/pkg/errors"
)

// DateGate decides whether an experiment may still be allocated against, by calendar day in a fixed time zone.
type DateGate struct {
	graceDays int
	loc       *time.Location
	now       func() time.Time
}

// NewDateGate constructs the gate. A nil clock uses time.Now and a nil location uses UTC.
func NewDateGate(graceDays int, loc *time.Location, now func() time.Time) *DateGate {
	if graceDays < 0 {
		graceDays = 0
	}
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &DateGate{graceDays: graceDays, loc: loc, now: now}
}

// daysPast returns how many calendar days today is after the experiment date (negative when ahead).
func (g *DateGate) daysPast(experimentDate time.Time) int {
	ty, tm, td := g.now().In(g.loc).Date()
	ey, em, ed := experimentDate.Date()
	today := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	expDay := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(today.Sub(expDay).Hours() / 24)
}

// IsAllocationAllowed applies the date rules with the admin grace window.
func (g *DateGate) IsAllocationAllowed(experimentDate time.Time, isAdmin bool) models.ExperimentAllocationStatus {
	status := models.ExperimentAllocationStatus{EvaluatedAt: g.now().UTC()}
	past := g.daysPast(experimentDate)
	switch {
	case past <= 0:
		status.Allowed = true
		status.DaysRemaining = -past
	case past <= g.graceDays && isAdmin:
		status.Allowed = true
		status.Reason = models.DateGateAdminGrace
		status.DaysOverdue = past
	case past <= g.graceDays:
		status.Reason = models.DateGateExpiredAdminOnly
		status.DaysOverdue = past
	default:
		status.Reason = models.DateGateExpiredCompletely
		status.DaysOverdue = past
	}
	return status
}

// Evaluate is IsAllocationAllowed with the per-experiment admin override applied.
func (g *DateGate) Evaluate(experimentDate time.Time, isAdmin, adminOverride bool) models.ExperimentAllocationStatus {
	status := g.IsAllocationAllowed(experimentDate, isAdmin)
	if adminOverride && isAdmin && status.Reason != "" {
		status.Allowed = true
		status.Reason = models.DateGateAdminOverride
	}
	return status
}

// Restriction converts a denied status into a DATE_RESTRICTED error; allowed statuses yield nil.
func (g *DateGate) Restriction(experimentID string, status models.ExperimentAllocationStatus) error {
	if status.Allowed {
		return nil
	}
	return appErrors.WithDetails(appErrors.ErrDateRestriction, map[string]interface{}{
		"experimentId": experimentID,
		"reason":       string(status.Reason),
		"daysOverdue":  status.DaysOverdue,
	})
}

// ItemState is the allocation state of a request item relevant to edit permissions.
type ItemState struct {
	IsAllocated bool
	IsDisabled  bool
}

// DeriveItemPermission combines the experiment date status with an item's state. Full edits need an
// open date and an unallocated or disabled item. Allocated items may only grow, up to available stock.
func (g *DateGate) DeriveItemPermission(gate models.ExperimentAllocationStatus, state ItemState, available decimal.Decimal) dto.ItemPermission {
	perm := dto.ItemPermission{MaxIncrease: decimal.Zero}
	dateOpen := gate.Allowed && (gate.Reason == "" || gate.Reason == models.DateGateAdminOverride)

	if !state.IsAllocated || state.IsDisabled {
		perm.CanEdit = dateOpen
		perm.CanDecrease = dateOpen
		perm.CanIncrease = dateOpen
		if dateOpen {
			perm.MaxIncrease = available
		} else {
			perm.Reason = string(dateReason(gate))
		}
		return perm
	}

	perm.Reason = "allocated items cannot be decreased"
	if gate.Allowed && available.IsPositive() {
		perm.CanIncrease = true
		perm.MaxIncrease = available
	}
	if !gate.Allowed {
		perm.Reason = string(dateReason(gate))
	}
	return perm
}

func dateReason(gate models.ExperimentAllocationStatus) models.DateGateReason {
	if gate.Reason == "" || gate.Reason == models.DateGateAdminOverride {
		return ""
	}
	return gate.Reason
}
