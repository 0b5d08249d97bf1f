package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("finds code through wrapping", func(t *testing.T) {
		base := New(CodeDuplicateSubmission, "already contributed")
		wrapped := fmt.Errorf("submit: %w", base)
		assert.True(t, HasCode(wrapped, CodeDuplicateSubmission))
		assert.False(t, HasCode(wrapped, CodeValidation))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "failed to insert contribution")
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to insert contribution: connection refused", err.Error())
}

func TestDetails(t *testing.T) {
	err := WithDetails(CodeValidation, "invalid contribution", []string{"price must be greater than 0"})
	assert.Equal(t, []string{"price must be greater than 0"}, Details(fmt.Errorf("x: %w", err)))
	assert.Nil(t, Details(errors.New("plain")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:          http.StatusBadRequest,
		CodeDuplicateSubmission: http.StatusBadRequest,
		CodeUnauthorized:        http.StatusUnauthorized,
		CodePriceConflict:       http.StatusConflict,
		CodeRateLimited:         http.StatusTooManyRequests,
		CodeInternal:            http.StatusInternalServerError,
		Code("unknown"):         http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
