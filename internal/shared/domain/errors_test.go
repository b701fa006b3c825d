package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatusCodes(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindBusinessRule: http.StatusUnprocessableEntity,
		KindTimeout:      http.StatusRequestTimeout,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.StatusCode(), "kind %s", kind)
	}
}

func TestClassify_PassesThroughDomainErrors(t *testing.T) {
	original := NewConflict("A user with email 'dup@example.com' already exists.")

	classified := Classify(original)
	assert.Same(t, original, classified)

	// También envuelto en otra capa.
	wrapped := fmt.Errorf("saving user: %w", original)
	classified = Classify(wrapped)
	assert.Equal(t, KindConflict, classified.Kind)
	assert.Equal(t, original.Message, classified.Message)
}

func TestClassify_DeadlineExceededIsTimeout(t *testing.T) {
	err := fmt.Errorf("query: %w", context.DeadlineExceeded)

	classified := Classify(err)
	assert.Equal(t, KindTimeout, classified.Kind)
	assert.Equal(t, "The request timed out.", classified.Message)
}

func TestClassify_UnknownIsInternal(t *testing.T) {
	cause := errors.New("connection reset by peer")

	classified := Classify(cause)
	assert.Equal(t, KindInternal, classified.Kind)
	assert.ErrorIs(t, classified, cause)
}

func TestNewNotFound_MessageFormat(t *testing.T) {
	err := NewNotFound("User", "123e4567-e89b-12d3-a456-426614174000")
	assert.Equal(t, "User with ID '123e4567-e89b-12d3-a456-426614174000' was not found.", err.Message)
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewUnauthorized("Invalid email or password."))

	assert.True(t, IsKind(err, KindUnauthorized))
	assert.False(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(errors.New("plain"), KindUnauthorized))
}

func TestValidationCarriesViolations(t *testing.T) {
	err := NewValidation("One or more validation errors occurred.",
		FieldViolation{Field: "firstName", Message: "The firstName field is required.", AttemptedValue: ""},
		FieldViolation{Field: "email", Message: "The email field must be a valid email address.", AttemptedValue: "nope"},
	)

	assert.Equal(t, KindValidation, err.Kind)
	assert.Len(t, err.Violations, 2)
	assert.Equal(t, "firstName", err.Violations[0].Field)
}
