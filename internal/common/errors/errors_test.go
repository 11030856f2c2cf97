package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeCatalogUnavailable, 3},
		{ErrCodeProfileStoreFailed, 3},
		{ErrCodeNotificationSendFailed, 3},
		{ErrCodeCatalogTimeout, 2},
		{ErrCodeSearchTimeout, 2},
		{ErrCodeInvalidInput, 0},
		{ErrCodeUniversityNotFound, 0},
		{ErrCodeBudgetRequired, 0},
		{ErrorCode("SOMETHING_ELSE"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, GetRetryCount(tt.code))
			assert.Equal(t, tt.expected > 0, IsRetryableErrorCode(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("retryable error keeps retries", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewCatalogUnavailableError("postgres", fmt.Errorf("connection refused")))

		assert.Equal(t, "CATALOG_UNAVAILABLE", bpmn.Code)
		assert.Equal(t, 3, bpmn.Retries)
		assert.True(t, bpmn.Retryable)
		assert.Equal(t, "CATALOG_UNAVAILABLE", bpmn.ErrorVariables["originalErrorCode"])
	})

	t.Run("business error has no retries", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewUniversityNotFoundError(42))

		assert.Equal(t, "UNIVERSITY_NOT_FOUND", bpmn.Code)
		assert.Zero(t, bpmn.Retries)
		assert.Equal(t, int64(42), bpmn.ErrorVariables["universityId"])
	})

	t.Run("schema failures surface as invalid input", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewSchemaValidationError("predict-admission", "universityId is required"))
		assert.Equal(t, "INVALID_INPUT", bpmn.Code)
	})

	t.Run("unmapped code falls back to itself", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewInternalError(fmt.Errorf("boom")))
		assert.Equal(t, "INTERNAL_ERROR", bpmn.Code)
	})
}

func TestToErrorVariables(t *testing.T) {
	bpmn := &BPMNError{
		Code:           "X",
		Message:        "msg",
		Details:        "details",
		ErrorVariables: map[string]interface{}{"extra": 1},
	}

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "X", vars["errorCode"])
	assert.Equal(t, "msg", vars["errorMessage"])
	assert.Equal(t, "details", vars["errorDetails"])
	assert.Equal(t, 1, vars["extra"])
}

func TestAsStandardError(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w", NewInvalidInputError("cgpa out of range"))

	stdErr, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidInput, stdErr.Code)
	assert.True(t, HasCode(wrapped, ErrCodeInvalidInput))
	assert.False(t, HasCode(stderrors.New("plain"), ErrCodeInvalidInput))
}

func TestNormalizeError(t *testing.T) {
	h := NewErrorHandler(nil)

	stdErr := h.normalizeError(context.Background(), fmt.Errorf("wrapped: %w", context.DeadlineExceeded))
	assert.Equal(t, ErrCodeTimeout, stdErr.Code)
	assert.True(t, stdErr.Retryable)

	stdErr = h.normalizeError(context.Background(), stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.False(t, stdErr.Retryable)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "CATALOG", GetErrorCategory(ErrCodeUniversityNotFound))
	assert.Equal(t, "PROFILE", GetErrorCategory(ErrCodeProfileStoreFailed))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeSearchTimeout))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidInput))
	assert.Equal(t, "SCORING", GetErrorCategory(ErrCodeComputationSkipped))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}
