package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labstock-api/internal/models"
)

type ledgerReaderMock struct {
	entries []models.LedgerEntry
	err     error
	last    models.LedgerFilter
}

func (m *ledgerReaderMock) Entries(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, error) {
	m.last = filter
	return m.entries, m.err
}

func TestLedgerHandlerListBuildsFilter(t *testing.T) {
	reader := &ledgerReaderMock{entries: []models.LedgerEntry{{ID: "l-1", Kind: models.ResourceChemical, Type: models.LedgerEntryAllocation}}}
	handler := NewLedgerHandler(reader)

	c, w := newTestContext(http.MethodGet, "/ledger?kind=chemical&requestId=req-1&page=3&pageSize=500", "")
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ResourceChemical, reader.last.Kind)
	assert.Equal(t, "req-1", reader.last.RequestID)
	assert.Equal(t, 200, reader.last.Limit)
	assert.Equal(t, 400, reader.last.Offset)
	assert.Contains(t, w.Body.String(), "l-1")
}

func TestLedgerHandlerListDefaultsPaging(t *testing.T) {
	reader := &ledgerReaderMock{}
	handler := NewLedgerHandler(reader)

	c, _ := newTestContext(http.MethodGet, "/ledger?page=-2", "")
	handler.List(c)

	assert.Equal(t, 50, reader.last.Limit)
	assert.Equal(t, 0, reader.last.Offset)
}

func TestLedgerHandlerListError(t *testing.T) {
	handler := NewLedgerHandler(&ledgerReaderMock{err: errors.New("db down")})

	c, w := newTestContext(http.MethodGet, "/ledger", "")
	handler.List(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
