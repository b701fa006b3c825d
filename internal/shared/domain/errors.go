package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ---------------- Taxonomía de errores ----------------

// Kind identifica la categoría de un fallo de dominio. El conjunto es
// cerrado: cualquier error que llegue a la frontera HTTP se clasifica
// en exactamente una de estas categorías.
type Kind string

const (
	KindValidation   Kind = "ValidationError"
	KindUnauthorized Kind = "Unauthorized"
	KindForbidden    Kind = "Forbidden"
	KindNotFound     Kind = "NotFound"
	KindConflict     Kind = "Conflict"
	KindBusinessRule Kind = "BusinessLogicError"
	KindTimeout      Kind = "Timeout"
	KindInternal     Kind = "InternalServerError"
)

// StatusCode devuelve el código HTTP fijo asociado a cada categoría.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindBusinessRule:
		return http.StatusUnprocessableEntity
	case KindTimeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// FieldViolation es una violación de validación a nivel de campo.
type FieldViolation struct {
	Field          string      `json:"field"`
	Message        string      `json:"message"`
	AttemptedValue interface{} `json:"attemptedValue"`
}

// Error es el error de dominio etiquetado. Se construye una sola vez en
// el punto donde se clasifica el fallo y es inmutable después.
type Error struct {
	Kind       Kind
	Message    string
	Violations []FieldViolation
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// ---------------- Constructores ----------------

func NewValidation(message string, violations ...FieldViolation) *Error {
	return &Error{Kind: KindValidation, Message: message, Violations: violations}
}

// NewNotFound construye el mensaje estándar "<entidad> with ID '<id>' was not found."
func NewNotFound(entity string, id interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s with ID '%v' was not found.", entity, id)}
}

func NewNotFoundMessage(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewConflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func NewUnauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func NewForbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NewBusinessRule(message string) *Error {
	return &Error{Kind: KindBusinessRule, Message: message}
}

func NewTimeout(message string) *Error {
	return &Error{Kind: KindTimeout, Message: message}
}

// WrapInternal envuelve un fallo no clasificado conservando la causa.
func WrapInternal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Message: message, cause: err}
}

// ---------------- Clasificación ----------------

// Classify decide la categoría de cualquier fallo. Es la única función
// que convierte errores arbitrarios en la taxonomía cerrada:
//  1. errores ya etiquetados pasan tal cual,
//  2. fallos de presupuesto de tiempo se convierten en Timeout,
//  3. todo lo demás es Internal.
func Classify(err error) *Error {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeout("The request timed out.")
	}
	return &Error{Kind: KindInternal, Message: err.Error(), cause: err}
}

// IsKind comprueba si un error pertenece a una categoría concreta.
func IsKind(err error, k Kind) bool {
	var domainErr *Error
	return errors.As(err, &domainErr) && domainErr.Kind == k
}
