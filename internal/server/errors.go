package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	feeconfigdomain "github.com/storekit/vendra/internal/feeconfig/domain"
	ledgerdomain "github.com/storekit/vendra/internal/ledger/domain"
	orderdomain "github.com/storekit/vendra/internal/order/domain"
	ordernumberdomain "github.com/storekit/vendra/internal/ordernumber/domain"
	billingdomain "github.com/storekit/vendra/internal/platformbilling/domain"
	"github.com/storekit/vendra/pkg/db"
	"gorm.io/gorm"
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

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) {
		return vErr
	}
	return nil
}

func mapError(err error) (int, errorPayload) {
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case errors.Is(err, orderdomain.ErrInvalidMerchant),
		errors.Is(err, orderdomain.ErrInvalidAmount),
		errors.Is(err, feeconfigdomain.ErrInvalidMerchant),
		errors.Is(err, billingdomain.ErrInvalidMerchant),
		errors.Is(err, billingdomain.ErrInvalidPeriod):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: err.Error(),
		}
	case errors.Is(err, orderdomain.ErrOrderNotFound),
		errors.Is(err, billingdomain.ErrCycleNotFound),
		errors.Is(err, ledgerdomain.ErrEntriesMissing),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, orderdomain.ErrAlreadyPaid),
		errors.Is(err, orderdomain.ErrNotPaid),
		errors.Is(err, orderdomain.ErrNotCancellable),
		errors.Is(err, orderdomain.ErrInvalidStage),
		errors.Is(err, ledgerdomain.ErrEntriesExist),
		errors.Is(err, ledgerdomain.ErrInvalidTransition),
		errors.Is(err, billingdomain.ErrCycleExists),
		errors.Is(err, billingdomain.ErrCycleNotPending),
		errors.Is(err, billingdomain.ErrNothingToInvoice),
		db.IsDuplicateKeyErr(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, ordernumberdomain.ErrAllocationFailed),
		errors.Is(err, billingdomain.ErrInvoiceAllocationFailed):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "allocation timed out, retry the request",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
