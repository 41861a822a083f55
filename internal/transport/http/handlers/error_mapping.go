package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/planora/account-service/internal/usecase"
)

// RespondWithUsecaseError translates the typed usecase errors into HTTP
// responses. Unknown errors fall back to an opaque 500 so internals never
// leak to callers.
func RespondWithUsecaseError(c *gin.Context, err error) {
	var (
		validationErr  *usecase.ValidationError
		notFoundErr    *usecase.NotFoundError
		conflictErr    *usecase.ConflictError
		permissionErr  *usecase.PermissionError
		rateLimitErr   *usecase.RateLimitExceededError
		partialFailure *usecase.PartialFailureError
		storeErr       *usecase.StoreError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, validationErr.Error()))

	case errors.Is(err, usecase.ErrRecoveryTokenInvalid):
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "recovery token is invalid or already used"))

	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, NewErrorResponse(c, notFoundErr.Error()))

	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, NewErrorResponse(c, conflictErr.Error()))

	case errors.As(err, &permissionErr):
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "not allowed to modify this account"))

	case errors.As(err, &rateLimitErr):
		if rateLimitErr.RetryAfter > 0 {
			seconds := int(math.Ceil(rateLimitErr.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(seconds))
		}
		c.JSON(http.StatusTooManyRequests, NewErrorResponse(c, "too many attempts, try again later"))

	case errors.As(err, &partialFailure):
		resp := NewErrorResponse(c, "operation partially failed")
		resp.Detail = partialFailure.Error()
		c.JSON(http.StatusInternalServerError, resp)

	case errors.As(err, &storeErr):
		status := http.StatusBadGateway
		if storeErr.Retryable {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, NewErrorResponse(c, "backing store unavailable"))

	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal error"))
	}
}
