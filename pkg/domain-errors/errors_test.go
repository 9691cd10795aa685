package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesCodeThroughWrapping(t *testing.T) {
	base := New(CodeConflict, "already voted")
	wrapped := fmt.Errorf("casting ballot: %w", base)

	assert.True(t, Is(wrapped, CodeConflict))
	assert.False(t, Is(wrapped, CodeNotFound))
	assert.False(t, Is(errors.New("plain"), CodeConflict))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("pq: duplicate key")
	err := Wrap(cause, CodeConflict, "vote already recorded")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeConflict, CodeOf(err))
	assert.Contains(t, err.Error(), "duplicate key")
}

func TestWithDetailsDoesNotMutateOriginal(t *testing.T) {
	base := New(CodeValidation, "incomplete ballot")
	detailed := base.WithDetails(map[string]any{"missingPositionIds": []string{"p1"}})

	assert.Nil(t, base.Details)
	assert.Equal(t, []string{"p1"}, detailed.Details["missingPositionIds"])
	assert.Equal(t, detailed.Details, DetailsOf(detailed))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:         http.StatusBadRequest,
		CodeValidation:         http.StatusBadRequest,
		CodeNotFound:           http.StatusNotFound,
		CodePreconditionFailed: http.StatusUnprocessableEntity,
		CodeConflict:           http.StatusConflict,
		CodeUnauthorized:       http.StatusUnauthorized,
		CodeForbidden:          http.StatusForbidden,
		CodeTooManyRequests:    http.StatusTooManyRequests,
		CodeTimeout:            http.StatusGatewayTimeout,
		CodeInternal:           http.StatusInternalServerError,
		Code("unknown"):        http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}

func TestMessageOfHidesNonDomainErrors(t *testing.T) {
	assert.Equal(t, "internal server error", MessageOf(errors.New("pq: connection refused")))
	assert.Equal(t, "election not found", MessageOf(New(CodeNotFound, "election not found")))
}
