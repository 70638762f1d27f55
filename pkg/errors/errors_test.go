package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsCodeForErrorsIs(t *testing.T) {
	cloned := Clone(ErrInsufficientStock, "only 3g left")
	require.True(t, stdErrors.Is(cloned, ErrInsufficientStock))
	assert.False(t, stdErrors.Is(cloned, ErrNotFound))
	assert.Equal(t, "only 3g left", cloned.Message)
	assert.Equal(t, "insufficient stock", ErrInsufficientStock.Message)
}

func TestWithDetailsDoesNotMutateBase(t *testing.T) {
	withReason := WithDetails(ErrDateRestriction, map[string]interface{}{"reason": "date_expired_completely"})
	require.Equal(t, "date_expired_completely", withReason.Details["reason"])
	assert.Nil(t, ErrDateRestriction.Details)
	assert.Equal(t, http.StatusForbidden, withReason.Status)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrValidation, "bad"))
	appErr := FromError(wrapped)
	assert.Equal(t, ErrValidation.Code, appErr.Code)

	internal := FromError(stdErrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, internal.Code)
	assert.Nil(t, FromError(nil))
}
