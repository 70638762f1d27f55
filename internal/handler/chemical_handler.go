package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/labstock-api/internal/dto"
	"github.com/noah-isme/labstock-api/internal/models"
	appErrors "github.com/noah-isme/labstock-api/pkg/errors"
	"github.com/noah-isme/labstock-api/pkg/response"
)

type intakeService interface {
	AddChemicalIntake(ctx context.Context, req dto.ChemicalIntakeRequest, actor *models.ActorClaims) (*dto.ChemicalIntakeResponse, error)
}

type chemicalAllocationService interface {
	AllocateChemicals(ctx context.Context, req dto.ChemicalAllocationRequest, actor *models.ActorClaims) (*dto.ChemicalAllocationResponse, error)
}

type outOfStockLister interface {
	List(ctx context.Context) ([]models.OutOfStockEntry, error)
}

// ChemicalHandler exposes chemical intake and allocation endpoints.
type ChemicalHandler struct {
	intake     intakeService
	allocation chemicalAllocationService
	outOfStock outOfStockLister
}

// NewChemicalHandler builds a new handler.
func NewChemicalHandler(intake intakeService, allocation chemicalAllocationService, outOfStock outOfStockLister) *ChemicalHandler {
	return &ChemicalHandler{intake: intake, allocation: allocation, outOfStock: outOfStock}
}

// Intake godoc
// @Summary Record purchased chemical lots into the central store
// @Tags Chemicals
// @Accept json
// @Produce json
// @Param payload body dto.ChemicalIntakeRequest true "Intake payload"
// @Success 201 {object} response.Envelope
// @Router /chemicals/intake [post]
func (h *ChemicalHandler) Intake(c *gin.Context) {
	var req dto.ChemicalIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid intake payload"))
		return
	}
	result, err := h.intake.AddChemicalIntake(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Allocate godoc
// @Summary Move chemicals from the central store to a lab in FIFO expiry order
// @Tags Chemicals
// @Accept json
// @Produce json
// @Param payload body dto.ChemicalAllocationRequest true "Allocation payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /chemicals/allocate [post]
func (h *ChemicalHandler) Allocate(c *gin.Context) {
	var req dto.ChemicalAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid allocation payload"))
		return
	}
	result, err := h.allocation.AllocateChemicals(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if !result.AllSucceeded() {
		status = http.StatusBadRequest
	}
	response.JSON(c, status, result, nil)
}

// OutOfStock godoc
// @Summary List chemicals whose central stock has run out
// @Tags Chemicals
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /chemicals/out-of-stock [get]
func (h *ChemicalHandler) OutOfStock(c *gin.Context) {
	entries, err := h.outOfStock.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
