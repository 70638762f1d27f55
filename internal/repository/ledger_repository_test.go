package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labstock-api/internal/models"
)

func TestLedgerRepositoryAppendAssignsIdentity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLedgerRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO stock_ledger")).WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.LedgerEntry{Kind: models.ResourceChemical, Type: models.LedgerEntryIntake, ResourceID: "live-1", PerformedBy: "admin-1"}
	require.NoError(t, repo.Append(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryListBuildsFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewLedgerRepository(db)
	columns := []string{"id", "kind", "type", "resource_id", "resource_name", "from_lab_id", "to_lab_id", "quantity", "unit",
		"previous_status", "new_status", "request_id", "performed_by", "created_at"}
	mock.ExpectQuery(`(?s)FROM stock_ledger WHERE kind = \$1 AND \(from_lab_id = \$2 OR to_lab_id = \$2\) ORDER BY created_at DESC LIMIT 20 OFFSET 40`).
		WithArgs("chemical", "lab-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("e-1", "chemical", "transfer", "live-1", "NaCl", "central-store", "lab-1", "7", "g", nil, nil, nil, "admin-1", time.Now()))

	entries, err := repo.List(context.Background(), models.LedgerFilter{Kind: models.ResourceChemical, LabID: "lab-1", Limit: 20, Offset: 40})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "7", entries[0].Quantity.String())
	assert.Equal(t, "lab-1", *entries[0].ToLabID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLabRepositoryListActiveIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM labs WHERE active = TRUE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("lab-bio-1").AddRow("lab-chem-1"))

	ids, err := NewLabRepository(db).ListActiveIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"lab-bio-1", "lab-chem-1"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
