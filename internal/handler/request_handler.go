package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/labstock-api/internal/dto"
	"github.com/noah-isme/labstock-api/internal/models"
	appErrors "github.com/noah-isme/labstock-api/pkg/errors"
	"github.com/noah-isme/labstock-api/pkg/response"
)

type requestService interface {
	Submit(ctx context.Context, req dto.SubmitRequest, actor *models.ActorClaims) (*models.Request, error)
	Get(ctx context.Context, id string, actor *models.ActorClaims) (*models.Request, error)
	List(ctx context.Context, query dto.RequestQuery, page, size int, actor *models.ActorClaims) ([]models.Request, *models.Pagination, error)
	Approve(ctx context.Context, id string, actor *models.ActorClaims) (*models.Request, error)
	Reject(ctx context.Context, id, reason string, actor *models.ActorClaims) (*models.Request, error)
	Complete(ctx context.Context, id string, actor *models.ActorClaims) (*models.Request, error)
	SetAdminOverride(ctx context.Context, id, experimentID string, enabled bool, actor *models.ActorClaims) (*models.Request, error)
	SetItemDisabled(ctx context.Context, id, experimentID, itemID string, disabled bool, reason string, actor *models.ActorClaims) (*models.Request, error)
	ItemPermissions(ctx context.Context, id string, actor *models.ActorClaims) ([]dto.ExperimentPermissions, error)
	AllocateUnified(ctx context.Context, id string, req dto.UnifiedAllocationRequest, actor *models.ActorClaims) (*dto.UnifiedAllocationResponse, error)
	FulfillRemaining(ctx context.Context, id string, actor *models.ActorClaims) (*dto.UnifiedAllocationResponse, error)
}

// RequestHandler exposes the fulfilment request workflow.
type RequestHandler struct {
	service requestService
}

// NewRequestHandler builds a new handler.
func NewRequestHandler(service requestService) *RequestHandler {
	return &RequestHandler{service: service}
}

// Submit godoc
// @Summary Submit a fulfilment request for a lab
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.SubmitRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}
	created, err := h.service.Submit(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List godoc
// @Summary List fulfilment requests
// @Tags Requests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param labId query string false "Lab ID"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	query := dto.RequestQuery{LabID: c.Query("labId")}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				query.Status = append(query.Status, models.RequestStatus(s))
			}
		}
	}
	items, pagination, err := h.service.List(c.Request.Context(), query, queryInt(c, "page", 1), queryInt(c, "pageSize", 20), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a fulfilment request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Approve godoc
// @Summary Approve a pending request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/approve [post]
func (h *RequestHandler) Approve(c *gin.Context) {
	item, err := h.service.Approve(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Reject godoc
// @Summary Reject a pending request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RejectRequest false "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/reject [post]
func (h *RequestHandler) Reject(c *gin.Context) {
	var req dto.RejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
			return
		}
	}
	item, err := h.service.Reject(c.Request.Context(), c.Param("id"), req.Reason, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Complete godoc
// @Summary Close a fulfilled request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/complete [post]
func (h *RequestHandler) Complete(c *gin.Context) {
	item, err := h.service.Complete(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Allocate godoc
// @Summary Allocate every pending item of an approved request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UnifiedAllocationRequest false "Pinned equipment units per item"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/allocate [post]
func (h *RequestHandler) Allocate(c *gin.Context) {
	var req dto.UnifiedAllocationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid allocation payload"))
			return
		}
	}
	result, err := h.service.AllocateUnified(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// FulfillRemaining godoc
// @Summary Retry allocation of items left over by a partial fulfilment
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/fulfill-remaining [post]
func (h *RequestHandler) FulfillRemaining(c *gin.Context) {
	result, err := h.service.FulfillRemaining(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SetOverride godoc
// @Summary Toggle the admin override of an experiment
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param experimentId path string true "Experiment ID"
// @Param payload body dto.AdminOverrideRequest true "Override flag"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/experiments/{experimentId}/override [post]
func (h *RequestHandler) SetOverride(c *gin.Context) {
	var req dto.AdminOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid override payload"))
		return
	}
	item, err := h.service.SetAdminOverride(c.Request.Context(), c.Param("id"), c.Param("experimentId"), req.Enabled, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// SetItemDisabled godoc
// @Summary Disable or re-enable a request item
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param experimentId path string true "Experiment ID"
// @Param itemId path string true "Item ID"
// @Param payload body dto.DisableItemRequest true "Disable flag"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/experiments/{experimentId}/items/{itemId}/disable [post]
func (h *RequestHandler) SetItemDisabled(c *gin.Context) {
	var req dto.DisableItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid disable payload"))
		return
	}
	item, err := h.service.SetItemDisabled(c.Request.Context(), c.Param("id"), c.Param("experimentId"), c.Param("itemId"), req.Disabled, req.Reason, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Permissions godoc
// @Summary Derive per-item edit permissions
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/permissions [get]
func (h *RequestHandler) Permissions(c *gin.Context) {
	perms, err := h.service.ItemPermissions(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perms, nil)
}
