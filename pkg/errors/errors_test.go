package errors

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewError tests the basic creation of errors.
func TestNewError(t *testing.T) {
	tests := []struct {
		name    string
		code    ErrorCode
		message string
	}{
		{
			name:    "ValidationFailed",
			code:    ValidationFailed,
			message: "validation failed",
		},
		{
			name:    "InvalidGenomeScope",
			code:    InvalidGenomeScope,
			message: "mutation outside active phase",
		},
		{
			name:    "DominationInvariantViolation",
			code:    DominationInvariantViolation,
			message: "archive contains dominated survivor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message)

			customErr, ok := err.(*Error)

			assert.True(t, ok, "should be a custom *Error")
			assert.Equal(t, tt.code, customErr.Code())
			assert.Equal(t, tt.message, customErr.Error())
			assert.Nil(t, customErr.Unwrap())
		})
	}
}

// TestWrapError tests error wrapping functionality.
func TestWrapError(t *testing.T) {
	originalErr := stderrors.New("connection reset")

	err := Wrap(originalErr, EvaluationFailed, "evaluate callback failed")
	require.Error(t, err)

	customErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, EvaluationFailed, customErr.Code())
	assert.Equal(t, originalErr, customErr.Unwrap())
	assert.Contains(t, err.Error(), "connection reset")

	assert.Nil(t, Wrap(nil, EvaluationFailed, "ignored"))
}

// TestWithFields verifies structured context attachment and copying.
func TestWithFields(t *testing.T) {
	err := New(BudgetExhausted, "metric call limit reached")
	err = WithFields(err, Fields{"limit": 100, "used": 100})

	customErr, ok := err.(*Error)
	require.True(t, ok)

	fields := customErr.Fields()
	assert.Equal(t, 100, fields["limit"])
	assert.Equal(t, 100, fields["used"])

	// Mutating the returned copy must not affect the error.
	fields["limit"] = 0
	assert.Equal(t, 100, customErr.Fields()["limit"])

	assert.Contains(t, err.Error(), "metric call limit reached")
}

// TestErrorIs verifies code-based matching via errors.Is.
func TestErrorIs(t *testing.T) {
	err := WithFields(New(InvalidGenomeScope, "component out of phase"), Fields{"component": "instructions"})

	assert.True(t, stderrors.Is(err, New(InvalidGenomeScope, "other message")))
	assert.False(t, stderrors.Is(err, New(ValidationFailed, "other message")))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(New(Timeout, "call timed out")))
	assert.True(t, IsTransient(New(RateLimitExceeded, "throttled")))
	assert.True(t, IsTransient(stderrors.New("opaque callback error")))

	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(New(InvalidInput, "bad genome")))
	assert.False(t, IsTransient(New(InvalidGenomeScope, "out of phase")))
}

func TestCheckContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.NoError(t, CheckContext(ctx, "evaluation"))

	cancel()
	err := CheckContext(ctx, "evaluation")
	require.Error(t, err)
	assert.Equal(t, Canceled, CodeOf(err))
	assert.Contains(t, err.Error(), "evaluation canceled")
}
