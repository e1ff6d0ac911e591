package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/lawdirectory/internal/authorization"
	coveragedomain "github.com/smallbiznis/lawdirectory/internal/coverage/domain"
	effectiveplandomain "github.com/smallbiznis/lawdirectory/internal/effectiveplan/domain"
	marketdomain "github.com/smallbiznis/lawdirectory/internal/market/domain"
	plandomain "github.com/smallbiznis/lawdirectory/internal/plan/domain"
	plangroupdomain "github.com/smallbiznis/lawdirectory/internal/plangroup/domain"
	"github.com/smallbiznis/lawdirectory/pkg/db"
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

// writeDetails describes where a multi-step write stopped.
type writeDetails struct {
	Operation      string   `json:"operation"`
	Step           string   `json:"step"`
	CompletedSteps []string `json:"completed_steps"`
	RolledBack     bool     `json:"rolled_back"`
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
	Details *writeDetails     `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
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

	// A dropped connection is reported as unavailable even mid-write.
	if db.IsUnavailableErr(err) {
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	}

	var writeErr *db.WriteError
	if errors.As(err, &writeErr) && writeErr != nil {
		completed := writeErr.CompletedSteps
		if completed == nil {
			completed = []string{}
		}
		return http.StatusInternalServerError, errorPayload{
			Type:    "partial_write",
			Message: "write failed",
			Details: &writeDetails{
				Operation:      writeErr.Operation,
				Step:           writeErr.Step,
				CompletedSteps: completed,
				RolledBack:     writeErr.RolledBack,
			},
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
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
			Message: notFoundMessage(err),
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the envelope type and a stable code for the access log.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	_, payload := mapError(err)
	code := payload.Type
	switch {
	case len(payload.Errors) > 0:
		code = payload.Errors[0].Code
	case payload.Details != nil:
		code = payload.Details.Operation + "." + payload.Details.Step
	case payload.Type == "not_found":
		code = err.Error()
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, authorization.ErrInvalidObject),
		errors.Is(err, authorization.ErrInvalidAction):
		return true
	case isMarketValidationError(err),
		isCoverageValidationError(err),
		isPlanValidationError(err),
		isPlanGroupValidationError(err),
		isEffectivePlanValidationError(err):
		return true
	default:
		return false
	}
}

func isMarketValidationError(err error) bool {
	switch {
	case errors.Is(err, marketdomain.ErrInvalidZipCode),
		errors.Is(err, marketdomain.ErrInvalidID),
		errors.Is(err, marketdomain.ErrInvalidQuery):
		return true
	default:
		return false
	}
}

func isCoverageValidationError(err error) bool {
	switch {
	case errors.Is(err, coveragedomain.ErrInvalidCity),
		errors.Is(err, coveragedomain.ErrInvalidState),
		errors.Is(err, coveragedomain.ErrInvalidLawyerID),
		errors.Is(err, coveragedomain.ErrInvalidMarketIDs),
		errors.Is(err, coveragedomain.ErrInvalidTier):
		return true
	default:
		return false
	}
}

func isPlanValidationError(err error) bool {
	switch {
	case errors.Is(err, plandomain.ErrInvalidID),
		errors.Is(err, plandomain.ErrInvalidName),
		errors.Is(err, plandomain.ErrInvalidFeatureName):
		return true
	default:
		return false
	}
}

func isPlanGroupValidationError(err error) bool {
	switch {
	case errors.Is(err, plangroupdomain.ErrInvalidGroupID),
		errors.Is(err, plangroupdomain.ErrInvalidPlanID),
		errors.Is(err, plangroupdomain.ErrInvalidMarketIDs),
		errors.Is(err, plangroupdomain.ErrInvalidTargetType),
		errors.Is(err, plangroupdomain.ErrInvalidName):
		return true
	default:
		return false
	}
}

func isEffectivePlanValidationError(err error) bool {
	return errors.Is(err, effectiveplandomain.ErrInvalidMarketID)
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, marketdomain.ErrNotFound),
		errors.Is(err, coveragedomain.ErrLawyerNotFound),
		errors.Is(err, plandomain.ErrNotFound),
		errors.Is(err, plangroupdomain.ErrGroupNotFound),
		errors.Is(err, plangroupdomain.ErrPlanNotFound),
		errors.Is(err, plangroupdomain.ErrOverrideNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, marketdomain.ErrNotFound):
		return "dma not found"
	case errors.Is(err, coveragedomain.ErrLawyerNotFound):
		return "lawyer not found"
	case errors.Is(err, plandomain.ErrNotFound),
		errors.Is(err, plangroupdomain.ErrPlanNotFound):
		return "plan not found"
	case errors.Is(err, plangroupdomain.ErrGroupNotFound):
		return "group not found"
	case errors.Is(err, plangroupdomain.ErrOverrideNotFound):
		return "override not found"
	default:
		return "not found"
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		for next := errors.Unwrap(err); next != nil; next = errors.Unwrap(err) {
			err = next
		}
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_zip_code":
		return "zip code must be 5 digits"
	case "invalid_dma_ids":
		return "at least one valid dma id is required"
	case "invalid_target_type":
		return "target_type must be global or group"
	case "invalid_subscription_type":
		return "unknown subscription type"
	default:
		return "invalid value"
	}
}
