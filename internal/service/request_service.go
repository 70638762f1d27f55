package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/labstock-api/internal/dto"
	"github.com/noah-isme/labstock-api/internal/models"
	"github.com/noah-isme/labstock-api/internal/repository"
	appErrors "github.com/noah-isme/labstock-api/pkg/errors"
	applog "github.com/noah-isme/labstock-api/pkg/logger"
)

type requestStore interface {
	Create(ctx context.Context, req *models.Request) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error)
	Update(ctx context.Context, req *models.Request) error
}

var requestTransitions = map[models.RequestStatus][]models.RequestStatus{
	models.RequestStatusPending:            {models.RequestStatusApproved, models.RequestStatusRejected},
	models.RequestStatusApproved:           {models.RequestStatusPartiallyFulfilled, models.RequestStatusFulfilled},
	models.RequestStatusPartiallyFulfilled: {models.RequestStatusFulfilled},
	models.RequestStatusFulfilled:          {models.RequestStatusCompleted},
}

// CanTransition reports whether the workflow allows moving from one status to another.
func CanTransition(from, to models.RequestStatus) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RecomputeStatus derives the aggregate status from the isAllocated flags of every item. Requests
// with nothing allocated keep their current status.
func RecomputeStatus(req *models.Request) models.RequestStatus {
	total, allocated := 0, 0
	count := func(isAllocated bool) {
		total++
		if isAllocated {
			allocated++
		}
	}
	for _, exp := range req.Experiments {
		for _, item := range exp.Chemicals {
			count(item.IsAllocated)
		}
		for _, item := range exp.Glassware {
			count(item.IsAllocated)
		}
		for _, item := range exp.Equipment {
			count(item.IsAllocated)
		}
	}
	switch {
	case allocated == total:
		return models.RequestStatusFulfilled
	case allocated > 0:
		return models.RequestStatusPartiallyFulfilled
	default:
		return req.Status
	}
}

// RequestServiceConfig tunes document saves.
type RequestServiceConfig struct {
	SaveRetries int
}

// RequestService drives fulfilment requests through their workflow.
type RequestService struct {
	store     requestStore
	chemicals *ChemicalAllocator
	glassware *GlasswareAllocator
	equipment *EquipmentAllocator
	gate      *DateGate
	labs      labDirectory
	validator *validator.Validate
	cfg       RequestServiceConfig
	now       func() time.Time
	logger    *zap.Logger
}

// NewRequestService constructs the service.
func NewRequestService(
	store requestStore,
	chemicals *ChemicalAllocator,
	glassware *GlasswareAllocator,
	equipment *EquipmentAllocator,
	gate *DateGate,
	labs labDirectory,
	validate *validator.Validate,
	cfg RequestServiceConfig,
	logger *zap.Logger,
) *RequestService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SaveRetries <= 0 {
		cfg.SaveRetries = 3
	}
	return &RequestService{
		store:     store,
		chemicals: chemicals,
		glassware: glassware,
		equipment: equipment,
		gate:      gate,
		labs:      labs,
		validator: validate,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
	}
}

// Submit creates a pending request for the calling faculty member.
func (s *RequestService) Submit(ctx context.Context, req dto.SubmitRequest, actor *models.ActorClaims) (*models.Request, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid request payload")
	}
	if actor == nil || actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if req.LabID == s.chemicals.ledger.CentralLabID() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "requests must target a lab, not the central store")
	}
	ok, err := s.labs.Contains(ctx, req.LabID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "lab directory unavailable")
	}
	if !ok {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrNotFound, "lab not found"), map[string]interface{}{"labId": req.LabID})
	}

	request := &models.Request{
		FacultyID:   actor.UserID,
		LabID:       req.LabID,
		Status:      models.RequestStatusPending,
		Experiments: make(models.Experiments, 0, len(req.Experiments)),
	}
	if remarks := strings.TrimSpace(req.Remarks); remarks != "" {
		request.Remarks = &remarks
	}
	for _, in := range req.Experiments {
		exp := models.Experiment{
			ID:        uuid.NewString(),
			Name:      in.Name,
			Date:      in.Date,
			Chemicals: make([]models.ChemicalRequestItem, 0, len(in.Chemicals)),
			Glassware: make([]models.GlasswareRequestItem, 0, len(in.Glassware)),
			Equipment: make([]models.EquipmentRequestItem, 0, len(in.Equipment)),
		}
		for _, line := range in.Chemicals {
			exp.Chemicals = append(exp.Chemicals, models.ChemicalRequestItem{
				ID:                uuid.NewString(),
				ChemicalName:      DisplayName(line.ChemicalName),
				Unit:              line.Unit,
				Quantity:          line.Quantity,
				AllocatedQuantity: decimal.Zero,
				AllocationHistory: []models.AllocationRecord{},
			})
		}
		for _, line := range in.Glassware {
			exp.Glassware = append(exp.Glassware, models.GlasswareRequestItem{
				ID:                uuid.NewString(),
				ProductID:         line.ProductID,
				Name:              line.Name,
				Variant:           line.Variant,
				Quantity:          line.Quantity,
				AllocationHistory: []models.AllocationRecord{},
			})
		}
		for _, line := range in.Equipment {
			exp.Equipment = append(exp.Equipment, models.EquipmentRequestItem{
				ID:                uuid.NewString(),
				Name:              line.Name,
				Variant:           line.Variant,
				Quantity:          line.Quantity,
				AllocatedItemIDs:  []string{},
				AllocationHistory: []models.AllocationRecord{},
			})
		}
		request.Experiments = append(request.Experiments, exp)
	}

	if err := s.store.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}
	applog.WithRequest(ctx, s.logger).Info("request submitted", zap.String("requestId", request.ID), zap.String("labId", request.LabID))
	return request, nil
}

// Get returns a request. Faculty members may only read their own requests.
func (s *RequestService) Get(ctx context.Context, id string, actor *models.ActorClaims) (*models.Request, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canRead(req, actor); err != nil {
		return nil, err
	}
	return req, nil
}

// List returns requests visible to the actor.
func (s *RequestService) List(ctx context.Context, query dto.RequestQuery, page, size int, actor *models.ActorClaims) ([]models.Request, *models.Pagination, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	filter := models.RequestFilter{Status: query.Status, LabID: query.LabID, Limit: size, Offset: (page - 1) * size}
	if actor != nil && actor.Role == models.RoleFaculty {
		filter.FacultyID = actor.UserID
	}
	items, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Approve moves a pending request to approved.
func (s *RequestService) Approve(ctx context.Context, id string, actor *models.ActorClaims) (*models.Request, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(req *models.Request) error {
		if err := transition(req, models.RequestStatusApproved); err != nil {
			return err
		}
		now := s.now().UTC()
		by := actor.PerformedBy()
		req.ApprovedBy = &by
		req.ApprovedAt = &now
		return nil
	})
}

// Reject moves a pending request to the terminal rejected state.
func (s *RequestService) Reject(ctx context.Context, id, reason string, actor *models.ActorClaims) (*models.Request, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(req *models.Request) error {
		if err := transition(req, models.RequestStatusRejected); err != nil {
			return err
		}
		now := s.now().UTC()
		by := actor.PerformedBy()
		req.RejectedBy = &by
		req.RejectedAt = &now
		if reason = strings.TrimSpace(reason); reason != "" {
			req.Remarks = &reason
		}
		return nil
	})
}

// Complete closes a fulfilled request.
func (s *RequestService) Complete(ctx context.Context, id string, actor *models.ActorClaims) (*models.Request, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(req *models.Request) error {
		if err := transition(req, models.RequestStatusCompleted); err != nil {
			return err
		}
		now := s.now().UTC()
		req.CompletedAt = &now
		return nil
	})
}

// SetAdminOverride toggles the override that lets admins allocate past the grace window.
func (s *RequestService) SetAdminOverride(ctx context.Context, id, experimentID string, enabled bool, actor *models.ActorClaims) (*models.Request, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(req *models.Request) error {
		exp := req.FindExperiment(experimentID)
		if exp == nil {
			return appErrors.Clone(appErrors.ErrNotFound, "experiment not found")
		}
		exp.AdminOverride = enabled
		if enabled {
			now := s.now().UTC()
			by := actor.PerformedBy()
			exp.OverrideBy = &by
			exp.OverrideAt = &now
		} else {
			exp.OverrideBy = nil
			exp.OverrideAt = nil
		}
		return nil
	})
}

// SetItemDisabled flags an item of any category so allocation skips it.
func (s *RequestService) SetItemDisabled(ctx context.Context, id, experimentID, itemID string, disabled bool, reason string, actor *models.ActorClaims) (*models.Request, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !disabled {
		reason = ""
	}
	return s.mutate(ctx, id, func(req *models.Request) error {
		exp := req.FindExperiment(experimentID)
		if exp == nil {
			return appErrors.Clone(appErrors.ErrNotFound, "experiment not found")
		}
		for i := range exp.Chemicals {
			if exp.Chemicals[i].ID == itemID {
				exp.Chemicals[i].IsDisabled, exp.Chemicals[i].DisabledReason = disabled, reason
				return nil
			}
		}
		for i := range exp.Glassware {
			if exp.Glassware[i].ID == itemID {
				exp.Glassware[i].IsDisabled, exp.Glassware[i].DisabledReason = disabled, reason
				return nil
			}
		}
		for i := range exp.Equipment {
			if exp.Equipment[i].ID == itemID {
				exp.Equipment[i].IsDisabled, exp.Equipment[i].DisabledReason = disabled, reason
				return nil
			}
		}
		return appErrors.Clone(appErrors.ErrNotFound, "request item not found")
	})
}

// ItemPermissions derives the edit permissions of every item from the experiment date gate and
// the stock currently available at the central store.
func (s *RequestService) ItemPermissions(ctx context.Context, id string, actor *models.ActorClaims) ([]dto.ExperimentPermissions, error) {
	req, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	out := make([]dto.ExperimentPermissions, 0, len(req.Experiments))
	for _, exp := range req.Experiments {
		status := s.gate.Evaluate(exp.Date, actor.IsAdmin(), exp.AdminOverride)
		group := dto.ExperimentPermissions{ExperimentID: exp.ID, DateStatus: status, Items: make([]dto.ItemPermission, 0)}

		for _, item := range exp.Chemicals {
			available, err := s.chemicals.Available(ctx, item.ChemicalName)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read chemical stock")
			}
			perm := s.gate.DeriveItemPermission(status, ItemState{IsAllocated: item.IsAllocated, IsDisabled: item.IsDisabled}, available)
			perm.Category, perm.ExperimentID, perm.ItemID = models.ResourceChemical, exp.ID, item.ID
			group.Items = append(group.Items, perm)
		}
		for _, item := range exp.Glassware {
			available, err := s.glassware.Available(ctx, item.ProductID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read glassware stock")
			}
			perm := s.gate.DeriveItemPermission(status, ItemState{IsAllocated: item.IsAllocated, IsDisabled: item.IsDisabled}, decimal.NewFromInt(int64(available)))
			perm.Category, perm.ExperimentID, perm.ItemID = models.ResourceGlassware, exp.ID, item.ID
			group.Items = append(group.Items, perm)
		}
		for _, item := range exp.Equipment {
			available, err := s.equipment.CountAvailable(ctx, item.Name, item.Variant)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read equipment stock")
			}
			perm := s.gate.DeriveItemPermission(status, ItemState{IsAllocated: item.IsAllocated, IsDisabled: item.IsDisabled}, decimal.NewFromInt(int64(available)))
			perm.Category, perm.ExperimentID, perm.ItemID = models.ResourceEquipment, exp.ID, item.ID
			group.Items = append(group.Items, perm)
		}
		out = append(out, group)
	}
	return out, nil
}

// AllocateUnified allocates every pending item of an approved or partially fulfilled request.
// Item failures are collected per category; they never abort the rest of the request.
func (s *RequestService) AllocateUnified(ctx context.Context, id string, req dto.UnifiedAllocationRequest, actor *models.ActorClaims) (*dto.UnifiedAllocationResponse, error) {
	return s.fulfil(ctx, id, req.EquipmentSelections, actor, models.RequestStatusApproved, models.RequestStatusPartiallyFulfilled)
}

// FulfillRemaining re-runs allocation for the items a partially fulfilled request is still missing.
func (s *RequestService) FulfillRemaining(ctx context.Context, id string, actor *models.ActorClaims) (*dto.UnifiedAllocationResponse, error) {
	return s.fulfil(ctx, id, nil, actor, models.RequestStatusPartiallyFulfilled)
}

// itemDelta is an allocation made during a unified call, applied to the stored document afterwards.
type itemDelta struct {
	category     models.ResourceKind
	experimentID string
	itemID       string
	quantity     decimal.Decimal
	itemIDs      []string
}

type fulfilment struct {
	deltas   []itemDelta
	statuses map[string]models.ExperimentAllocationStatus
	errors   []dto.CategoryError
	summary  []dto.ItemAllocationSummary
}

func (f *fulfilment) fail(category models.ResourceKind, expID, itemID, name, code, reason string) {
	f.errors = append(f.errors, dto.CategoryError{
		Category:     category,
		ExperimentID: expID,
		ItemID:       itemID,
		Name:         name,
		Code:         code,
		Reason:       reason,
	})
}

func (s *RequestService) fulfil(ctx context.Context, id string, selections map[string][]string, actor *models.ActorClaims, allowed ...models.RequestStatus) (*dto.UnifiedAllocationResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	snapshot, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !statusIn(snapshot.Status, allowed) {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidTransition, map[string]interface{}{
			"requestId": id,
			"status":    string(snapshot.Status),
		})
	}

	run := &fulfilment{statuses: make(map[string]models.ExperimentAllocationStatus, len(snapshot.Experiments))}
	movement := Movement{PerformedBy: actor.PerformedBy(), RequestID: snapshot.ID}
	picked := make(map[string]struct{})

	for _, exp := range snapshot.Experiments {
		status := s.gate.Evaluate(exp.Date, actor.IsAdmin(), exp.AdminOverride)
		run.statuses[exp.ID] = status
		if restriction := s.gate.Restriction(exp.ID, status); restriction != nil {
			s.denyExperiment(run, exp, restriction)
			continue
		}
		s.allocateChemicals(ctx, run, snapshot.LabID, exp, movement)
		s.allocateGlassware(ctx, run, snapshot.LabID, exp, movement)
		s.allocateEquipment(ctx, run, snapshot, exp, selections, picked, movement)
	}

	saved, err := s.mutate(ctx, id, func(req *models.Request) error {
		applyDeltas(req, run, actor.PerformedBy(), s.now().UTC(), s.logger)
		if statusIn(req.Status, []models.RequestStatus{models.RequestStatusApproved, models.RequestStatusPartiallyFulfilled}) {
			req.Status = RecomputeStatus(req)
		}
		return nil
	})
	if err != nil {
		applog.WithRequest(ctx, s.logger).Error("allocation committed to stock but request document was not saved",
			zap.String("requestId", id),
			zap.Int("allocatedItems", len(run.deltas)),
			zap.Error(err))
		return nil, err
	}

	resp := &dto.UnifiedAllocationResponse{
		RequestID:         saved.ID,
		PreviousStatus:    snapshot.Status,
		Status:            saved.Status,
		Allocated:         run.summary,
		PerCategoryErrors: run.errors,
	}
	if resp.Allocated == nil {
		resp.Allocated = []dto.ItemAllocationSummary{}
	}
	if resp.PerCategoryErrors == nil {
		resp.PerCategoryErrors = []dto.CategoryError{}
	}
	switch {
	case len(run.errors) == 0:
		resp.Outcome = dto.AllocationSuccess
	case len(run.deltas) > 0:
		resp.Outcome = dto.AllocationPartial
	default:
		resp.Outcome = dto.AllocationFailed
	}
	applog.WithRequest(ctx, s.logger).Info("unified allocation processed",
		zap.String("requestId", saved.ID),
		zap.String("status", string(saved.Status)),
		zap.Int("allocated", len(run.deltas)),
		zap.Int("errors", len(run.errors)))
	return resp, nil
}

func (f *fulfilment) errorsFor(itemID string) []dto.CategoryError {
	out := make([]dto.CategoryError, 0)
	for _, e := range f.errors {
		if e.ItemID == itemID {
			out = append(out, e)
		}
	}
	return out
}

func (s *RequestService) denyExperiment(run *fulfilment, exp models.Experiment, restriction error) {
	appErr := appErrors.FromError(restriction)
	reason := fmt.Sprintf("%s (%v)", appErr.Message, appErr.Details["reason"])
	for _, item := range exp.Chemicals {
		if pending(item.IsAllocated, item.IsDisabled) {
			run.fail(models.ResourceChemical, exp.ID, item.ID, item.ChemicalName, appErr.Code, reason)
		}
	}
	for _, item := range exp.Glassware {
		if pending(item.IsAllocated, item.IsDisabled) {
			run.fail(models.ResourceGlassware, exp.ID, item.ID, item.Name, appErr.Code, reason)
		}
	}
	for _, item := range exp.Equipment {
		if pending(item.IsAllocated, item.IsDisabled) {
			run.fail(models.ResourceEquipment, exp.ID, item.ID, item.Name, appErr.Code, reason)
		}
	}
}

func (s *RequestService) allocateChemicals(ctx context.Context, run *fulfilment, labID string, exp models.Experiment, movement Movement) {
	for _, item := range exp.Chemicals {
		if !pending(item.IsAllocated, item.IsDisabled) {
			continue
		}
		remaining := item.Quantity.Sub(item.AllocatedQuantity)
		if !remaining.IsPositive() {
			run.deltas = append(run.deltas, itemDelta{category: models.ResourceChemical, experimentID: exp.ID, itemID: item.ID, quantity: decimal.Zero})
			continue
		}
		result := s.chemicals.AllocateItem(ctx, item.ChemicalName, remaining, labID, movement)
		if result.Status != dto.AllocationSuccess {
			run.fail(models.ResourceChemical, exp.ID, item.ID, item.ChemicalName, result.ErrorCode, result.Reason)
			continue
		}
		run.deltas = append(run.deltas, itemDelta{category: models.ResourceChemical, experimentID: exp.ID, itemID: item.ID, quantity: result.AllocatedQuantity})
		run.summary = append(run.summary, dto.ItemAllocationSummary{
			Category:     models.ResourceChemical,
			ExperimentID: exp.ID,
			ItemID:       item.ID,
			Name:         item.ChemicalName,
			Allocated:    result.AllocatedQuantity,
			Complete:     true,
		})
	}
}

func (s *RequestService) allocateGlassware(ctx context.Context, run *fulfilment, labID string, exp models.Experiment, movement Movement) {
	for _, item := range exp.Glassware {
		if !pending(item.IsAllocated, item.IsDisabled) {
			continue
		}
		remaining := item.Quantity - item.AllocatedQuantity
		if remaining <= 0 {
			run.deltas = append(run.deltas, itemDelta{category: models.ResourceGlassware, experimentID: exp.ID, itemID: item.ID, quantity: decimal.Zero})
			continue
		}
		result := s.glassware.AllocateItem(ctx, item.ProductID, remaining, labID, movement)
		if result.Status != dto.AllocationSuccess {
			run.fail(models.ResourceGlassware, exp.ID, item.ID, item.Name, result.Code, result.Reason)
			continue
		}
		allocated := decimal.NewFromInt(int64(result.Allocated))
		run.deltas = append(run.deltas, itemDelta{category: models.ResourceGlassware, experimentID: exp.ID, itemID: item.ID, quantity: allocated})
		run.summary = append(run.summary, dto.ItemAllocationSummary{
			Category:     models.ResourceGlassware,
			ExperimentID: exp.ID,
			ItemID:       item.ID,
			Name:         item.Name,
			Allocated:    allocated,
			Complete:     result.Allocated >= remaining,
		})
	}
}

func (s *RequestService) allocateEquipment(ctx context.Context, run *fulfilment, req *models.Request, exp models.Experiment, selections map[string][]string, picked map[string]struct{}, movement Movement) {
	for _, item := range exp.Equipment {
		if !pending(item.IsAllocated, item.IsDisabled) {
			continue
		}
		need := item.Quantity - len(item.AllocatedItemIDs)
		if need <= 0 {
			run.deltas = append(run.deltas, itemDelta{category: models.ResourceEquipment, experimentID: exp.ID, itemID: item.ID})
			continue
		}

		ids, pinned := selections[item.ID]
		if pinned && len(ids) > need {
			ids = ids[:need]
		}
		if !pinned {
			var err error
			ids, err = s.equipment.PickAvailable(ctx, item.Name, item.Variant, need, picked)
			if err != nil {
				s.logger.Error("failed to list available units", zap.String("name", item.Name), zap.Error(err))
				run.fail(models.ResourceEquipment, exp.ID, item.ID, item.Name, appErrors.ErrInternal.Code, "failed to list available units")
				continue
			}
		}
		for _, itemID := range ids {
			picked[itemID] = struct{}{}
		}

		granted := make([]string, 0, len(ids))
		for _, res := range s.equipment.AssignUnits(ctx, item.Name, item.Variant, ids, req.LabID, req.FacultyID, movement) {
			if res.Status == dto.AllocationSuccess {
				granted = append(granted, res.ItemID)
				continue
			}
			run.fail(models.ResourceEquipment, exp.ID, item.ID, item.Name, appErrors.ErrConflict.Code, fmt.Sprintf("unit %s: %s", res.ItemID, res.Reason))
		}
		if len(granted) < need && len(granted)+len(run.errorsFor(item.ID)) < need {
			run.fail(models.ResourceEquipment, exp.ID, item.ID, item.Name, appErrors.ErrInsufficientStock.Code,
				fmt.Sprintf("requested %d units but only %d could be assigned", need, len(granted)))
		}
		if len(granted) == 0 {
			continue
		}
		run.deltas = append(run.deltas, itemDelta{
			category:     models.ResourceEquipment,
			experimentID: exp.ID,
			itemID:       item.ID,
			quantity:     decimal.NewFromInt(int64(len(granted))),
			itemIDs:      granted,
		})
		run.summary = append(run.summary, dto.ItemAllocationSummary{
			Category:     models.ResourceEquipment,
			ExperimentID: exp.ID,
			ItemID:       item.ID,
			Name:         item.Name,
			Allocated:    decimal.NewFromInt(int64(len(granted))),
			ItemIDs:      granted,
			Complete:     len(granted) >= need,
		})
	}
}

// applyDeltas merges allocations into a freshly loaded document. Items removed in the meantime are
// logged and skipped.
func applyDeltas(req *models.Request, run *fulfilment, performedBy string, now time.Time, logger *zap.Logger) {
	for expID, status := range run.statuses {
		if exp := req.FindExperiment(expID); exp != nil {
			st := status
			exp.AllocationStatus = &st
		}
	}
	for _, d := range run.deltas {
		exp := req.FindExperiment(d.experimentID)
		if exp == nil || !applyDelta(exp, d, req.LabID, performedBy, now) {
			logger.Warn("allocated item no longer present on request",
				zap.String("requestId", req.ID),
				zap.String("experimentId", d.experimentID),
				zap.String("itemId", d.itemID))
		}
	}
}

func applyDelta(exp *models.Experiment, d itemDelta, labID, performedBy string, now time.Time) bool {
	record := models.AllocationRecord{Quantity: d.quantity, ItemIDs: d.itemIDs, AllocatedBy: performedBy, LabID: labID, AllocatedAt: now}
	switch d.category {
	case models.ResourceChemical:
		for i := range exp.Chemicals {
			item := &exp.Chemicals[i]
			if item.ID != d.itemID {
				continue
			}
			if d.quantity.IsPositive() {
				item.AllocatedQuantity = item.AllocatedQuantity.Add(d.quantity)
				item.AllocationHistory = append(item.AllocationHistory, record)
			}
			item.IsAllocated = item.AllocatedQuantity.GreaterThanOrEqual(item.Quantity)
			return true
		}
	case models.ResourceGlassware:
		for i := range exp.Glassware {
			item := &exp.Glassware[i]
			if item.ID != d.itemID {
				continue
			}
			if d.quantity.IsPositive() {
				item.AllocatedQuantity += int(d.quantity.IntPart())
				item.AllocationHistory = append(item.AllocationHistory, record)
			}
			item.IsAllocated = item.AllocatedQuantity >= item.Quantity
			return true
		}
	case models.ResourceEquipment:
		for i := range exp.Equipment {
			item := &exp.Equipment[i]
			if item.ID != d.itemID {
				continue
			}
			if len(d.itemIDs) > 0 {
				item.AllocatedItemIDs = append(item.AllocatedItemIDs, d.itemIDs...)
				item.AllocationHistory = append(item.AllocationHistory, record)
			}
			item.IsAllocated = len(item.AllocatedItemIDs) >= item.Quantity
			return true
		}
	}
	return false
}

// mutate loads the document, applies fn and saves it with a version check, reloading on conflict.
func (s *RequestService) mutate(ctx context.Context, id string, fn func(req *models.Request) error) (*models.Request, error) {
	for attempt := 1; attempt <= s.cfg.SaveRetries; attempt++ {
		req, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(req); err != nil {
			return nil, err
		}
		err = s.store.Update(ctx, req)
		if err == nil {
			return req, nil
		}
		if !errors.Is(err, repository.ErrConditionFailed) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save request")
		}
		s.logger.Warn("request version conflict", zap.String("requestId", id), zap.Int("attempt", attempt))
	}
	return nil, appErrors.WithDetails(appErrors.ErrConcurrencyConflict, map[string]interface{}{"requestId": id})
}

func (s *RequestService) load(ctx context.Context, id string) (*models.Request, error) {
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return req, nil
}

func transition(req *models.Request, to models.RequestStatus) error {
	if !CanTransition(req.Status, to) {
		return appErrors.WithDetails(appErrors.ErrInvalidTransition, map[string]interface{}{
			"from": string(req.Status),
			"to":   string(to),
		})
	}
	req.Status = to
	return nil
}

func requireAdmin(actor *models.ActorClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	return nil
}

func canRead(req *models.Request, actor *models.ActorClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleFaculty && req.FacultyID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "request belongs to another faculty member")
	}
	return nil
}

func statusIn(status models.RequestStatus, set []models.RequestStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

func pending(isAllocated, isDisabled bool) bool {
	return !isAllocated && !isDisabled
}
