package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/labstock-api/internal/models"
	"github.com/noah-isme/labstock-api/pkg/response"
)

type ledgerReader interface {
	Entries(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, error)
}

// LedgerHandler exposes the append-only movement log.
type LedgerHandler struct {
	ledger ledgerReader
}

// NewLedgerHandler builds a new handler.
func NewLedgerHandler(ledger ledgerReader) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// List godoc
// @Summary List stock movement ledger entries
// @Tags Ledger
// @Produce json
// @Param kind query string false "chemical, glassware or equipment"
// @Param resourceId query string false "Live stock, glassware row or unit ID"
// @Param requestId query string false "Request ID"
// @Param labId query string false "Lab ID"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /ledger [get]
func (h *LedgerHandler) List(c *gin.Context) {
	page := queryInt(c, "page", 1)
	size := queryInt(c, "pageSize", 50)
	if size > 200 {
		size = 200
	}
	filter := models.LedgerFilter{
		Kind:       models.ResourceKind(c.Query("kind")),
		ResourceID: c.Query("resourceId"),
		RequestID:  c.Query("requestId"),
		LabID:      c.Query("labId"),
		Limit:      size,
		Offset:     (page - 1) * size,
	}
	entries, err := h.ledger.Entries(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil, map[string]interface{}{"page": page, "pageSize": size})
}
