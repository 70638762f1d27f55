package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/labstock-api/internal/dto"
	"github.com/noah-isme/labstock-api/internal/models"
	appErrors "github.com/noah-isme/labstock-api/pkg/errors"
)

// IntakeService registers purchased chemical lots at the central store.
type IntakeService struct {
	resolver     *BatchIdentityResolver
	tracker      *OutOfStockTracker
	validator    *validator.Validate
	centralLabID string
	now          func() time.Time
	logger       *zap.Logger
}

// NewIntakeService constructs the service.
func NewIntakeService(resolver *BatchIdentityResolver, tracker *OutOfStockTracker, validate *validator.Validate, centralLabID string, logger *zap.Logger) *IntakeService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if centralLabID == "" {
		centralLabID = models.CentralStoreLabID
	}
	return &IntakeService{
		resolver:     resolver,
		tracker:      tracker,
		validator:    validate,
		centralLabID: centralLabID,
		now:          time.Now,
		logger:       logger,
	}
}

// AddChemicalIntake stores each line independently. Lines that fail are reported without
// undoing the lines that were stored; the call fails only when no line succeeds.
func (s *IntakeService) AddChemicalIntake(ctx context.Context, req dto.ChemicalIntakeRequest, actor *models.ActorClaims) (*dto.ChemicalIntakeResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid intake payload")
	}
	if req.LabID == "" {
		req.LabID = s.centralLabID
	}
	if req.LabID != s.centralLabID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "chemical intake is only accepted at the central store")
	}

	resp := &dto.ChemicalIntakeResponse{
		BatchID: fmt.Sprintf("BATCH-%s-%s", s.now().UTC().Format("20060102"), strings.ToUpper(uuid.NewString()[:8])),
		Batches: make([]dto.IntakeBatchResult, 0, len(req.Items)),
	}
	var firstErr error
	for i, line := range req.Items {
		outcome, err := s.resolver.ResolveOnIntake(ctx, line, actor.PerformedBy(), resp.BatchID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			appErr := appErrors.FromError(err)
			s.logger.Warn("intake line failed", zap.Int("index", i), zap.String("name", line.Name), zap.Error(err))
			resp.Failed = append(resp.Failed, dto.IntakeLineError{Index: i, Name: line.Name, Code: appErr.Code, Reason: appErr.Message})
			continue
		}
		if err := s.tracker.OnRestock(ctx, outcome.Batch.DisplayName); err != nil {
			s.logger.Warn("failed to clear out of stock entry", zap.String("displayName", outcome.Batch.DisplayName), zap.Error(err))
		}
		resp.Batches = append(resp.Batches, dto.IntakeBatchResult{
			Action:       outcome.Action,
			Batch:        outcome.Batch,
			LiveStockID:  outcome.LiveStock.ID,
			RenamedBatch: outcome.Renamed,
		})
	}

	if len(resp.Batches) == 0 {
		return nil, firstErr
	}
	s.logger.Info("chemical intake recorded",
		zap.String("batchId", resp.BatchID),
		zap.Int("stored", len(resp.Batches)),
		zap.Int("failed", len(resp.Failed)))
	return resp, nil
}
