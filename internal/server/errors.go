package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	generationdomain "github.com/smallbiznis/mergematrix/internal/generation/domain"
	mergerecorddomain "github.com/smallbiznis/mergematrix/internal/mergerecord/domain"
	"github.com/smallbiznis/mergematrix/internal/ratelimit"
	"github.com/smallbiznis/mergematrix/internal/storage"
)

type errorResponse struct {
	Error       string `json:"error"`
	Field       string `json:"field,omitempty"`
	Generations *int   `json:"generations,omitempty"`
	IsPremium   *bool  `json:"isPremium,omitempty"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
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
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorResponse) {
	var quotaErr *generationdomain.QuotaExceededError
	var missingErr *mergerecorddomain.MissingFieldError

	switch {
	case err == nil:
		return http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"}
	case errors.Is(err, generationdomain.ErrInvalidIdentity):
		return http.StatusUnauthorized, errorResponse{Error: "Email is required"}
	case errors.As(err, &quotaErr):
		generations, premium := quotaErr.Status.Generations, quotaErr.Status.IsPremium
		return http.StatusForbidden, errorResponse{
			Error:       "Generation limit reached",
			Generations: &generations,
			IsPremium:   &premium,
		}
	case errors.Is(err, generationdomain.ErrQuotaExceeded):
		return http.StatusForbidden, errorResponse{Error: "Generation limit reached"}
	case errors.As(err, &missingErr):
		return http.StatusBadRequest, errorResponse{Error: "Missing required fields", Field: missingErr.Field}
	case errors.Is(err, mergerecorddomain.ErrInvalidFileSize):
		return http.StatusBadRequest, errorResponse{Error: "Invalid file size", Field: "fileSize"}
	case errors.Is(err, mergerecorddomain.ErrMissingField),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorResponse{Error: "Missing required fields"}
	case errors.Is(err, mergerecorddomain.ErrInvalidQuery):
		return http.StatusBadRequest, errorResponse{Error: "Either User ID or Email is required"}
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{Error: "Too Many Requests"}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorResponse{Error: "Unauthorized"}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "Not Found"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"}
	}
}

// classifyErrorForLog returns the error_type and error_code fields of the request log line.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case errors.Is(err, generationdomain.ErrInvalidIdentity):
		return "unauthorized", generationdomain.ErrInvalidIdentity.Error()
	case errors.Is(err, generationdomain.ErrQuotaExceeded):
		return "forbidden", generationdomain.ErrQuotaExceeded.Error()
	case errors.Is(err, mergerecorddomain.ErrMissingField):
		return "validation_error", mergerecorddomain.ErrMissingField.Error()
	case errors.Is(err, mergerecorddomain.ErrInvalidFileSize):
		return "validation_error", mergerecorddomain.ErrInvalidFileSize.Error()
	case errors.Is(err, mergerecorddomain.ErrInvalidQuery):
		return "validation_error", mergerecorddomain.ErrInvalidQuery.Error()
	case errors.Is(err, ErrInvalidRequest):
		return "validation_error", ErrInvalidRequest.Error()
	case errors.Is(err, ratelimit.ErrRateLimited):
		return "rate_limited", ratelimit.ErrRateLimited.Error()
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized", ErrUnauthorized.Error()
	case errors.Is(err, ErrNotFound):
		return "not_found", ErrNotFound.Error()
	case errors.Is(err, storage.ErrUnavailable):
		return "storage_error", storage.ErrUnavailable.Error()
	default:
		return "internal_error", "internal_error"
	}
}
