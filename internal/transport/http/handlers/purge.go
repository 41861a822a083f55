package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/planora/account-service/internal/infra/telemetry"
	"github.com/planora/account-service/internal/usecase"
)

// PurgeHandler exposes the internal purge endpoint used by operators and the
// scheduled purger.
type PurgeHandler struct {
	lifecycle *usecase.DeletionLifecycle
	metrics   *telemetry.Metrics
}

func NewPurgeHandler(lifecycle *usecase.DeletionLifecycle, metrics *telemetry.Metrics) *PurgeHandler {
	return &PurgeHandler{lifecycle: lifecycle, metrics: metrics}
}

// RegisterRoutes attaches the purge endpoint to the internal group.
func (h *PurgeHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/purge/:userID", h.Purge)
}

// Purge godoc
// @Summary Purge an expired deletion request
// @Description Permanently removes the user's data when the recovery window has elapsed. Idempotent.
// @Tags Deletion
// @Produce json
// @Param userID path string true "User identifier"
// @Success 200 {object} PurgeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /internal/v1/account/purge/{userID} [post]
func (h *PurgeHandler) Purge(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userID"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "user id is required"))
		return
	}

	result, err := h.lifecycle.Purge(c.Request.Context(), userID)
	if err != nil {
		RespondWithUsecaseError(c, err)
		return
	}

	if h.metrics != nil && result.Purged {
		h.metrics.AccountsPurged.Inc()
	}

	c.JSON(http.StatusOK, PurgeResponse{
		UserID:    userID,
		Purged:    result.Purged,
		RequestID: result.RequestID,
	})
}
