package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/planora/account-service/internal/infra/telemetry"
	"github.com/planora/account-service/internal/transport/http/middleware"
	"github.com/planora/account-service/internal/usecase"
)

// EmailHandler exposes the email-change coordination endpoints.
type EmailHandler struct {
	coordinator *usecase.EmailChangeCoordinator
	metrics     *telemetry.Metrics
}

func NewEmailHandler(coordinator *usecase.EmailChangeCoordinator, metrics *telemetry.Metrics) *EmailHandler {
	return &EmailHandler{coordinator: coordinator, metrics: metrics}
}

// RegisterAuthenticated attaches the owner-scoped email endpoints.
func (h *EmailHandler) RegisterAuthenticated(group *gin.RouterGroup) {
	group.POST("/email", h.Request)
}

// RegisterInternal attaches the provider callback endpoint. It is reachable
// only on the internal route group.
func (h *EmailHandler) RegisterInternal(group *gin.RouterGroup) {
	group.POST("/email/verified", h.Verified)
}

// Request godoc
// @Summary Request an email change
// @Description Records the candidate address and triggers a verification challenge at the identity provider.
// @Tags Email
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body EmailChangeRequest true "Candidate address"
// @Success 200 {object} EmailChangeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/account/email [post]
func (h *EmailHandler) Request(c *gin.Context) {
	actorID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || actorID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req EmailChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid email change payload"))
		return
	}

	receipt, err := h.coordinator.RequestEmailChange(c.Request.Context(), actorID, actorID, req.NewEmail)
	if err != nil {
		RespondWithUsecaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, EmailChangeResponse{
		Accepted: receipt.Accepted,
		Message:  receipt.Message,
	})
}

// Verified godoc
// @Summary Provider callback after address verification
// @Description Promotes a verified pending address to the authoritative profile email.
// @Tags Email
// @Accept json
// @Produce json
// @Param request body EmailVerifiedCallback true "Verified address"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /internal/v1/account/email/verified [post]
func (h *EmailHandler) Verified(c *gin.Context) {
	var req EmailVerifiedCallback
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	if err := h.coordinator.CompleteEmailChange(c.Request.Context(), req.UserID, req.Email); err != nil {
		RespondWithUsecaseError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.EmailChanges.Inc()
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "email change applied"})
}
