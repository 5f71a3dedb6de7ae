// Settings HTTP handlers.
//
// This file exposes the owner admin surface for chatbot configuration:
//   - GET /chat/settings  (fetch, creating defaults on first access)
//   - PUT /chat/settings  (validated partial update)
//
// Validation failures return every violated field at once so the dashboard
// can highlight all problems in a single round trip.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-bizchat-backend/internal/domain"
	"github.com/tbourn/go-bizchat-backend/internal/services"
)

// UpdateSettingsRequest is the JSON payload for PUT /chat/settings.
type UpdateSettingsRequest struct {
	BusinessID string                  `json:"businessId" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Settings   services.SettingsUpdate `json:"settings"   binding:"required"`
}

// SettingsResponse wraps a settings row.
type SettingsResponse struct {
	Settings *domain.ChatbotSettings `json:"settings"`
}

// GetSettings godoc
// @ID          getChatSettings
// @Summary     Get chatbot settings
// @Description Returns the business's chatbot settings, creating the default row on first access.
// @Tags        Settings
// @Produce     json
//
// @Param       businessId  query  string  true  "Business ID"
//
// @Success     200  {object}  handlers.SettingsResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /chat/settings [get]
func (h *Handlers) GetSettings(c *gin.Context) {
	businessID := c.Query("businessId")
	if businessID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "businessId is required")
		return
	}

	s, err := h.settingsSvc.Get(c.Request.Context(), businessID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to fetch settings")
		return
	}
	ok(c, http.StatusOK, SettingsResponse{Settings: s})
}

// UpdateSettings godoc
// @ID          updateChatSettings
// @Summary     Update chatbot settings
// @Description Validates and merges a partial settings update. Invalid input returns every violated field in validation_errors.
// @Tags        Settings
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.UpdateSettingsRequest  true  "Settings update payload"
//
// @Success     200  {object}  handlers.SettingsResponse
// @Failure     400  {object}  handlers.ErrorResponse "Invalid settings"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /chat/settings [put]
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "businessId and settings are required")
		return
	}

	s, err := h.settingsSvc.Update(c.Request.Context(), req.BusinessID, req.Settings)
	if err != nil {
		if verr, isVal := services.AsValidation(err); isVal {
			failWith(c, http.StatusBadRequest, ErrCodeInvalidSettings, "Invalid settings", verr.Fields)
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to update settings")
		return
	}
	ok(c, http.StatusOK, SettingsResponse{Settings: s})
}
