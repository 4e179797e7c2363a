package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsFollowsWrapping(t *testing.T) {
	err := fmt.Errorf("fulfil order: %w", InsufficientStock("v-1", 2, 5))

	assert.True(t, Is(err, CodeInsufficientStock))
	assert.False(t, Is(err, CodeNotFound))
	assert.Equal(t, CodeInsufficientStock, Code(err))
	assert.Equal(t, CodeInternal, Code(errors.New("boom")))
}

func TestDuplicateSKUNamesValue(t *testing.T) {
	err := DuplicateSKU("TS-3")

	assert.Equal(t, CodeConflict, err.Code)
	assert.Equal(t, "TS-3", err.Details["sku"])
	assert.Contains(t, err.Error(), "TS-3")
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause)

	assert.Equal(t, "internal error", err.Message)
	assert.ErrorIs(t, err, cause)

	st, ok := status.FromError(GRPCStatus(err))
	require.True(t, ok)
	assert.Equal(t, codes.Internal, st.Code())
	assert.NotContains(t, st.Message(), "connection refused")
}

func TestGRPCStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"validation", Validation("bad"), codes.InvalidArgument},
		{"not found", NotFound("variant", "v-1"), codes.NotFound},
		{"conflict", DuplicateSKU("A-1"), codes.AlreadyExists},
		{"already fulfilled", AlreadyFulfilled("o-1"), codes.AlreadyExists},
		{"insufficient stock", InsufficientStock("v-1", 0, 1), codes.FailedPrecondition},
		{"forbidden", Forbidden("no"), codes.PermissionDenied},
		{"plain error", errors.New("x"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := status.FromError(GRPCStatus(tt.err))
			require.True(t, ok)
			assert.Equal(t, tt.want, st.Code())
		})
	}
}

func TestValidateStruct(t *testing.T) {
	type input struct {
		Name     string `validate:"required"`
		Quantity int    `validate:"gt=0"`
	}

	assert.NoError(t, ValidateStruct(input{Name: "a", Quantity: 1}))

	err := ValidateStruct(input{})
	require.Error(t, err)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, CodeValidation, appErr.Code)
	assert.Equal(t, "is required", appErr.Details["Name"])
	assert.Equal(t, "must be greater than 0", appErr.Details["Quantity"])
}
