package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/loyalops/perkdesk/internal/access"
	authdomain "github.com/loyalops/perkdesk/internal/auth/domain"
	"github.com/loyalops/perkdesk/internal/authorization"
	campaigndomain "github.com/loyalops/perkdesk/internal/campaign/domain"
	customerdomain "github.com/loyalops/perkdesk/internal/customer/domain"
	rewarddomain "github.com/loyalops/perkdesk/internal/reward/domain"
	tenantdomain "github.com/loyalops/perkdesk/internal/tenant/domain"
	tierdomain "github.com/loyalops/perkdesk/internal/tier/domain"
	txndomain "github.com/loyalops/perkdesk/internal/transaction/domain"
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

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrTenantRequired     = errors.New("tenant_required")
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

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
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
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, access.ErrNotAuthenticated),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, tenantdomain.ErrForbidden),
		errors.Is(err, tenantdomain.ErrOwnerImmutable),
		errors.Is(err, access.ErrInsufficientRole),
		errors.Is(err, access.ErrNotVerified):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, txndomain.ErrInsufficientPoints),
		errors.Is(err, txndomain.ErrOutOfStock),
		errors.Is(err, txndomain.ErrRewardArchived):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "unprocessable",
			Message: validationErrorCode(err),
		}
	case errors.Is(err, ErrRateLimited),
		errors.Is(err, txndomain.ErrRedeemInProgress):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, access.ErrLookupFailed):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
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
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isTenantValidationError(err),
		isTierValidationError(err),
		isRewardValidationError(err),
		isCampaignValidationError(err),
		isCustomerValidationError(err),
		isTransactionValidationError(err):
		return true
	default:
		return false
	}
}

func isTenantValidationError(err error) bool {
	switch {
	case errors.Is(err, tenantdomain.ErrInvalidName),
		errors.Is(err, tenantdomain.ErrInvalidUser),
		errors.Is(err, tenantdomain.ErrInvalidTenant),
		errors.Is(err, tenantdomain.ErrInvalidEmail),
		errors.Is(err, tenantdomain.ErrInvalidRole):
		return true
	default:
		return false
	}
}

func isTierValidationError(err error) bool {
	switch {
	case errors.Is(err, tierdomain.ErrInvalidTenant),
		errors.Is(err, tierdomain.ErrInvalidName),
		errors.Is(err, tierdomain.ErrInvalidMinPoints),
		errors.Is(err, tierdomain.ErrInvalidMultiplier),
		errors.Is(err, tierdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isRewardValidationError(err error) bool {
	switch {
	case errors.Is(err, rewarddomain.ErrInvalidTenant),
		errors.Is(err, rewarddomain.ErrInvalidName),
		errors.Is(err, rewarddomain.ErrInvalidCostPoints),
		errors.Is(err, rewarddomain.ErrInvalidInventory),
		errors.Is(err, rewarddomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isCampaignValidationError(err error) bool {
	switch {
	case errors.Is(err, campaigndomain.ErrInvalidTenant),
		errors.Is(err, campaigndomain.ErrInvalidName),
		errors.Is(err, campaigndomain.ErrInvalidMultiplier),
		errors.Is(err, campaigndomain.ErrInvalidWindow),
		errors.Is(err, campaigndomain.ErrInvalidID),
		errors.Is(err, campaigndomain.ErrAlreadyActive),
		errors.Is(err, campaigndomain.ErrAlreadyEnded):
		return true
	default:
		return false
	}
}

func isCustomerValidationError(err error) bool {
	switch {
	case errors.Is(err, customerdomain.ErrInvalidTenant),
		errors.Is(err, customerdomain.ErrInvalidExternalRef),
		errors.Is(err, customerdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isTransactionValidationError(err error) bool {
	switch {
	case errors.Is(err, txndomain.ErrInvalidTenant),
		errors.Is(err, txndomain.ErrInvalidCustomer),
		errors.Is(err, txndomain.ErrInvalidAmount),
		errors.Is(err, txndomain.ErrInvalidPoints),
		errors.Is(err, txndomain.ErrInvalidReward),
		errors.Is(err, txndomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, tenantdomain.ErrNameTaken),
		errors.Is(err, tenantdomain.ErrAlreadyMember),
		errors.Is(err, tierdomain.ErrNameTaken),
		errors.Is(err, customerdomain.ErrExternalRefTaken),
		errors.Is(err, rewarddomain.ErrArchived):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, authdomain.ErrVerificationNotFound),
		errors.Is(err, authdomain.ErrVerificationExpired),
		errors.Is(err, tenantdomain.ErrTenantNotFound),
		errors.Is(err, tenantdomain.ErrMemberNotFound),
		errors.Is(err, tenantdomain.ErrInviteNotFound),
		errors.Is(err, tenantdomain.ErrInviteExpired),
		errors.Is(err, tierdomain.ErrNotFound),
		errors.Is(err, rewarddomain.ErrNotFound),
		errors.Is(err, campaigndomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, txndomain.ErrNotFound),
		errors.Is(err, txndomain.ErrCustomerNotFound),
		errors.Is(err, txndomain.ErrRewardNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if code == "invalid_request" {
		return "request"
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog labels request errors for the access log without
// leaking payload contents.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	switch {
	case status >= 500:
		return "server_error", payload.Type
	case status >= 400:
		return "client_error", payload.Type
	default:
		return "", ""
	}
}
