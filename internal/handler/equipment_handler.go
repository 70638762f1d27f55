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

type equipmentAllocationService interface {
	AllocateEquipmentUnits(ctx context.Context, req dto.EquipmentAllocationRequest, actor *models.ActorClaims) (*dto.EquipmentAllocationResponse, error)
}

// EquipmentHandler exposes serialized equipment endpoints.
type EquipmentHandler struct {
	service equipmentAllocationService
}

// NewEquipmentHandler builds a new handler.
func NewEquipmentHandler(service equipmentAllocationService) *EquipmentHandler {
	return &EquipmentHandler{service: service}
}

// Allocate godoc
// @Summary Issue serialized equipment units to a lab
// @Tags Equipment
// @Accept json
// @Produce json
// @Param payload body dto.EquipmentAllocationRequest true "Allocation payload"
// @Success 200 {object} response.Envelope
// @Router /equipment/allocate [post]
func (h *EquipmentHandler) Allocate(c *gin.Context) {
	var req dto.EquipmentAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid equipment allocation payload"))
		return
	}
	result, err := h.service.AllocateEquipmentUnits(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
