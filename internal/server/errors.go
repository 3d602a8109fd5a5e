package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	auditdomain "github.com/digiunlocks/soccer-club-sub006/internal/audit/domain"
	integrationdomain "github.com/digiunlocks/soccer-club-sub006/internal/financeintegration/domain"
	reportdomain "github.com/digiunlocks/soccer-club-sub006/internal/financereport/domain"
	ledgerdomain "github.com/digiunlocks/soccer-club-sub006/internal/ledger/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/money"
	paymentdomain "github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if code, ok := validationErrorCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger's error_type/error_code.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status == http.StatusInternalServerError {
		return payload.Type, ""
	}
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, err.Error()
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationErrors = []error{
	ErrInvalidRequest,
	money.ErrInvalidAmount,
	money.ErrNegative,
	paymentdomain.ErrInvalidAmount,
	paymentdomain.ErrInvalidMethod,
	paymentdomain.ErrInvalidStatus,
	paymentdomain.ErrInvalidSource,
	paymentdomain.ErrInvalidID,
	paymentdomain.ErrInvalidDateRange,
	ledgerdomain.ErrInvalidAmount,
	ledgerdomain.ErrInvalidType,
	ledgerdomain.ErrInvalidCategory,
	ledgerdomain.ErrInvalidStatus,
	ledgerdomain.ErrInvalidDescription,
	ledgerdomain.ErrInvalidID,
	ledgerdomain.ErrInvalidReference,
	ledgerdomain.ErrInvalidDateRange,
	integrationdomain.ErrInvalidCategory,
	reportdomain.ErrInvalidDateRange,
	reportdomain.ErrInvalidType,
	reportdomain.ErrInvalidGranularity,
	auditdomain.ErrInvalidTimeRange,
	auditdomain.ErrInvalidAction,
}

// validationErrorCode reports the sentinel's code when err is a caller
// mistake. Integration failures never count, whatever their cause.
func validationErrorCode(err error) (string, bool) {
	if errors.Is(err, integrationdomain.ErrIntegrationWriteFailed) {
		return "", false
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	return "", false
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, paymentdomain.ErrDuplicateReference),
		errors.Is(err, paymentdomain.ErrHasRefunds),
		errors.Is(err, paymentdomain.ErrInvalidState),
		errors.Is(err, paymentdomain.ErrConcurrentModification),
		errors.Is(err, ledgerdomain.ErrDuplicateReference):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, paymentdomain.ErrHasRefunds):
		return "payment has refunds"
	case errors.Is(err, paymentdomain.ErrInvalidState):
		return "payment cannot be changed in its current status"
	case errors.Is(err, paymentdomain.ErrConcurrentModification):
		return "payment was modified concurrently, retry"
	case errors.Is(err, paymentdomain.ErrDuplicateReference),
		errors.Is(err, ledgerdomain.ErrDuplicateReference):
		return "reference number already exists"
	default:
		return "conflict"
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if code == "negative_amount" {
		return "amount"
	}
	return strings.TrimPrefix(code, "invalid_")
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_amount", "negative_amount":
		return "invalid amount"
	case "invalid_date_range", "invalid_time_range":
		return "start must not be after end"
	default:
		return "invalid value"
	}
}

// integrationWarnings turns a best-effort ledger failure into response
// warnings. Other errors are not expected here.
func integrationWarnings(err error) []string {
	if err == nil {
		return nil
	}
	var writeErr *integrationdomain.IntegrationWriteError
	if errors.As(err, &writeErr) {
		return []string{"ledger entry not recorded for " + writeErr.Reference + ": " + writeErr.Err.Error()}
	}
	return []string{integrationdomain.ErrIntegrationWriteFailed.Error() + ": " + err.Error()}
}
