package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/planora/account-service/internal/infra/telemetry"
	"github.com/planora/account-service/internal/transport/http/middleware"
	"github.com/planora/account-service/internal/usecase"
)

// OnboardingHandler exposes the reconciled onboarding status endpoints.
type OnboardingHandler struct {
	reconciler *usecase.StatusReconciler
	metrics    *telemetry.Metrics
}

func NewOnboardingHandler(reconciler *usecase.StatusReconciler, metrics *telemetry.Metrics) *OnboardingHandler {
	return &OnboardingHandler{reconciler: reconciler, metrics: metrics}
}

// RegisterRoutes attaches the onboarding endpoints to the provided group.
func (h *OnboardingHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/onboarding/status", h.Status)
	group.POST("/onboarding/reconcile", h.Reconcile)
}

// Status godoc
// @Summary Read the effective onboarding status
// @Description Returns the aggregate onboarding-complete value for the authenticated user.
// @Tags Onboarding
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Success 200 {object} OnboardingStatusResponse
// @Failure 401 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/account/onboarding/status [get]
func (h *OnboardingHandler) Status(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	complete, err := h.reconciler.IsOnboardingComplete(c.Request.Context(), userID)
	if err != nil {
		RespondWithUsecaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, OnboardingStatusResponse{
		UserID:             userID,
		OnboardingComplete: complete,
	})
}

// Reconcile godoc
// @Summary Reconcile onboarding signals
// @Description Ensures a profile row exists, recomputes the aggregate onboarding value, and repairs drifted replicas.
// @Tags Onboarding
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param request body ReconcileRequest false "Profile seed used only when no profile exists"
// @Success 200 {object} ReconcileResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/account/onboarding/reconcile [post]
func (h *OnboardingHandler) Reconcile(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req ReconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reconcile payload"))
			return
		}
	}

	if req.Name != "" || req.Email != "" {
		if _, err := h.reconciler.EnsureProfile(c.Request.Context(), userID, req.Name, req.Email); err != nil {
			RespondWithUsecaseError(c, err)
			return
		}
	}

	result, err := h.reconciler.Reconcile(c.Request.Context(), userID)
	if err != nil {
		RespondWithUsecaseError(c, err)
		return
	}

	if h.metrics != nil && result.Fixed {
		h.metrics.ReconcileRepairs.Inc()
	}

	c.JSON(http.StatusOK, ReconcileResponse{
		UserID:             userID,
		OnboardingComplete: result.Value,
		Repaired:           result.Fixed,
	})
}
