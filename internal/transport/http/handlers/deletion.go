package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/planora/account-service/internal/infra/telemetry"
	"github.com/planora/account-service/internal/transport/http/middleware"
	"github.com/planora/account-service/internal/usecase"
)

// DeletionHandler exposes the soft-delete lifecycle endpoints.
type DeletionHandler struct {
	lifecycle *usecase.DeletionLifecycle
	metrics   *telemetry.Metrics
}

func NewDeletionHandler(lifecycle *usecase.DeletionLifecycle, metrics *telemetry.Metrics) *DeletionHandler {
	return &DeletionHandler{lifecycle: lifecycle, metrics: metrics}
}

// RegisterAuthenticated attaches the owner-scoped deletion endpoints.
func (h *DeletionHandler) RegisterAuthenticated(group *gin.RouterGroup) {
	group.POST("/deletion", h.Request)
	group.GET("/deletion", h.Status)
}

// RegisterPublic attaches the token-based recovery endpoint. Recovery is
// deliberately unauthenticated: a user mid-deletion may no longer be able to
// sign in, so the single-use token is the credential.
func (h *DeletionHandler) RegisterPublic(group *gin.RouterGroup) {
	group.POST("/deletion/recover", h.Recover)
}

// Request godoc
// @Summary Request account deletion
// @Description Marks the account pending deletion, schedules the purge, and returns the one-time recovery token.
// @Tags Deletion
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body DeletionRequestPayload true "Address confirmation"
// @Success 200 {object} DeletionRequestedResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/account/deletion [post]
func (h *DeletionHandler) Request(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req DeletionRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid deletion payload"))
		return
	}

	grant, err := h.lifecycle.RequestDeletion(c.Request.Context(), userID, req.Email)
	if err != nil {
		RespondWithUsecaseError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.DeletionsRequested.Inc()
	}

	c.JSON(http.StatusOK, DeletionRequestedResponse{
		RequestID:        grant.RequestID,
		RecoveryToken:    grant.RecoveryToken,
		RequestedAt:      grant.RequestedAt,
		ScheduledPurgeAt: grant.ScheduledPurgeAt,
	})
}

// Status godoc
// @Summary Read deletion status
// @Description Returns whether a deletion is pending and how many days remain until the purge.
// @Tags Deletion
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Success 200 {object} DeletionStatusResponse
// @Failure 401 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/account/deletion [get]
func (h *DeletionHandler) Status(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	status, err := h.lifecycle.CheckStatus(c.Request.Context(), userID)
	if err != nil {
		RespondWithUsecaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, DeletionStatusResponse{
		Pending:          status.Pending,
		RequestedAt:      status.RequestedAt,
		ScheduledPurgeAt: status.ScheduledPurgeAt,
		DaysRemaining:    status.DaysRemaining,
	})
}

// Recover godoc
// @Summary Recover a pending deletion
// @Description Reactivates the account identified by a valid single-use recovery token.
// @Tags Deletion
// @Accept json
// @Produce json
// @Param request body RecoverRequest true "Recovery token"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/account/deletion/recover [post]
func (h *DeletionHandler) Recover(c *gin.Context) {
	var req RecoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid recovery payload"))
		return
	}

	if err := h.lifecycle.Recover(c.Request.Context(), req.RecoveryToken); err != nil {
		RespondWithUsecaseError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.DeletionsRecovered.Inc()
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account recovered"})
}
