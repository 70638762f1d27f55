package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/labstock-api/internal/dto"
	"github.com/noah-isme/labstock-api/internal/models"
	appErrors "github.com/noah-isme/labstock-api/pkg/errors"
	applog "github.com/noah-isme/labstock-api/pkg/logger"
)

type labDirectory interface {
	Contains(ctx context.Context, labID string) (bool, error)
}

// AllocationService exposes direct central-store to lab allocations outside of requests.
type AllocationService struct {
	chemicals *ChemicalAllocator
	equipment *EquipmentAllocator
	labs      labDirectory
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAllocationService constructs the service.
func NewAllocationService(chemicals *ChemicalAllocator, equipment *EquipmentAllocator, labs labDirectory, validate *validator.Validate, logger *zap.Logger) *AllocationService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{chemicals: chemicals, equipment: equipment, labs: labs, validator: validate, logger: logger}
}

// AllocateChemicals allocates every item independently; a failed item never affects its siblings.
func (s *AllocationService) AllocateChemicals(ctx context.Context, req dto.ChemicalAllocationRequest, actor *models.ActorClaims) (*dto.ChemicalAllocationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid allocation payload")
	}
	if err := s.ensureLab(ctx, req.LabID); err != nil {
		return nil, err
	}

	resp := &dto.ChemicalAllocationResponse{LabID: req.LabID, Results: make([]dto.ChemicalAllocationResult, 0, len(req.Items))}
	movement := Movement{PerformedBy: actor.PerformedBy()}
	for _, item := range req.Items {
		resp.Results = append(resp.Results, s.chemicals.AllocateItem(ctx, item.Name, item.Quantity, req.LabID, movement))
	}
	applog.WithRequest(ctx, s.logger).Info("chemical allocation processed",
		zap.String("labId", req.LabID),
		zap.Int("items", len(req.Items)),
		zap.Bool("allSucceeded", resp.AllSucceeded()))
	return resp, nil
}

// AllocateEquipmentUnits issues the named units to a lab, reporting each unit separately.
func (s *AllocationService) AllocateEquipmentUnits(ctx context.Context, req dto.EquipmentAllocationRequest, actor *models.ActorClaims) (*dto.EquipmentAllocationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid allocation payload")
	}
	if err := s.ensureLab(ctx, req.LabID); err != nil {
		return nil, err
	}

	resp := &dto.EquipmentAllocationResponse{Success: true, LabID: req.LabID}
	movement := Movement{PerformedBy: actor.PerformedBy()}
	for _, alloc := range req.Allocations {
		results := s.equipment.IssueUnits(ctx, alloc.Name, alloc.Variant, alloc.ItemIDs, req.LabID, movement)
		for _, res := range results {
			if res.Status != dto.AllocationSuccess {
				resp.Success = false
			}
		}
		resp.PerItemResults = append(resp.PerItemResults, results...)
	}
	return resp, nil
}

func (s *AllocationService) ensureLab(ctx context.Context, labID string) error {
	if labID == s.chemicals.ledger.CentralLabID() {
		return appErrors.Clone(appErrors.ErrValidation, "allocations must target a lab, not the central store")
	}
	ok, err := s.labs.Contains(ctx, labID)
	if err != nil {
		s.logger.Error("lab directory unavailable", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "lab directory unavailable")
	}
	if !ok {
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrNotFound, "lab not found"), map[string]interface{}{"labId": labID})
	}
	return nil
}
