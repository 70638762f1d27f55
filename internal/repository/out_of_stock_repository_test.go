package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labstock-api/internal/models"
)

func TestOutOfStockRepositoryUpsertIsKeyedByDisplayName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOutOfStockRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (display_name) DO UPDATE")).WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.OutOfStockEntry{DisplayName: "NaCl", Unit: "g"}
	require.NoError(t, repo.Upsert(context.Background(), entry))
	require.NotEmpty(t, entry.ID)
	require.False(t, entry.LastOutOfStockAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutOfStockRepositoryDeleteReportsExistence(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOutOfStockRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM chemical_out_of_stock")).WithArgs("NaCl").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM chemical_out_of_stock")).WithArgs("NaCl").WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.Delete(context.Background(), "NaCl")
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = repo.Delete(context.Background(), "NaCl")
	require.NoError(t, err)
	require.False(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}
