package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError_PassesThroughWrappedDomainErrors(t *testing.T) {
	err := fmt.Errorf("load ticket: %w", NewNotFound("ticket", map[string]any{"ticket_id": "abc"}))

	domainErr := ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, CodeNotFound, domainErr.Code)
	assert.Equal(t, http.StatusNotFound, domainErr.HTTPStatus)
	assert.Equal(t, "ticket not found", domainErr.Message)
	assert.Equal(t, "abc", domainErr.Details["ticket_id"])
}

func TestToDomainError_UnknownErrorsBecomeInternal(t *testing.T) {
	domainErr := ToDomainError(errors.New("boom"))
	require.NotNil(t, domainErr)
	assert.Equal(t, CodeInternal, domainErr.Code)
	assert.Equal(t, http.StatusInternalServerError, domainErr.HTTPStatus)
	assert.Nil(t, ToDomainError(nil))
}

func TestStorageErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewStorageError(cause)

	assert.True(t, IsStorage(err))
	assert.False(t, IsNotFound(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsValidation(NewValidationError("bad", nil)))
	assert.True(t, IsConflict(NewConflict("taken", nil)))
	assert.True(t, IsNotFound(NewNotFound("user", nil)))
	assert.False(t, IsConflict(errors.New("plain")))
}
