package http

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
)

const TraceIDKey = "trace_id"

// errorResponse es el contrato de error único de toda la API.
type errorResponse struct {
	Type             string                        `json:"type"`
	Message          string                        `json:"message"`
	StatusCode       int                           `json:"statusCode"`
	TraceID          string                        `json:"traceId"`
	Timestamp        time.Time                     `json:"timestamp"`
	Details          map[string]string             `json:"details,omitempty"`
	ValidationErrors []sharedDomain.FieldViolation `json:"validationErrors,omitempty"`
}

// TraceID asigna un identificador único a cada petición y lo expone
// como header de respuesta para correlación.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := uuid.NewString()
		c.Set(TraceIDKey, traceID)
		c.Header("X-Trace-Id", traceID)
		c.Next()
	}
}

// ExceptionBoundary es el único punto donde los errores se traducen a
// respuestas HTTP. Los handlers registran el error con c.Error y
// retornan; aquí se clasifica, se loguea una sola vez y se escribe el
// cuerpo. Los pánicos se recuperan y se tratan como error interno.
func ExceptionBoundary(log *zap.Logger, development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic: %v", r)
				writeError(c, log, development, err, string(debug.Stack()))
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		// Sólo se responde el último error registrado.
		writeError(c, log, development, c.Errors.Last().Err, "")
	}
}

func writeError(c *gin.Context, log *zap.Logger, development bool, err error, stack string) {
	domainErr := sharedDomain.Classify(err)
	status := domainErr.Kind.StatusCode()
	traceID := c.GetString(TraceIDKey)

	fields := []zap.Field{
		zap.String("trace_id", traceID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("error_type", string(domainErr.Kind)),
		zap.Error(err),
	}
	if status >= 500 {
		log.Error("request failed", fields...)
	} else {
		log.Warn("request rejected", fields...)
	}

	message := domainErr.Message
	var details map[string]string
	if domainErr.Kind == sharedDomain.KindInternal {
		if development {
			details = map[string]string{
				"exceptionType": fmt.Sprintf("%T", err),
			}
			if stack == "" {
				stack = string(debug.Stack())
			}
			details["stackTrace"] = stack
		} else {
			// En producción nunca se filtra el detalle interno.
			message = "An internal server error occurred."
		}
	}

	c.AbortWithStatusJSON(status, errorResponse{
		Type:             string(domainErr.Kind),
		Message:          message,
		StatusCode:       status,
		TraceID:          traceID,
		Timestamp:        time.Now().UTC(),
		Details:          details,
		ValidationErrors: domainErr.Violations,
	})
}

// BindingError convierte los fallos de binding de gin/validator en un
// error de validación con una violación por campo.
func BindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return sharedDomain.NewValidation(err.Error())
	}

	violations := make([]sharedDomain.FieldViolation, 0, len(verrs))
	for _, fe := range verrs {
		violations = append(violations, sharedDomain.FieldViolation{
			Field:          fe.Field(),
			Message:        validationMessage(fe),
			AttemptedValue: fe.Value(),
		})
	}
	return sharedDomain.NewValidation("One or more validation errors occurred.", violations...)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", fe.Field())
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", fe.Field())
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters long.", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("The %s field must not exceed %s characters.", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", fe.Field())
	}
}
