package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventcrm/internal/models"
	"eventcrm/internal/services"
)

type SettingsHandler struct {
	service services.SettingsService
}

func NewSettingsHandler(service services.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// @Summary      Get notification settings
// @Tags         Settings
// @Produce      json
// @Success      200  {object}  models.NotificationSettings
// @Router       /settings/notifications [get]
func (h *SettingsHandler) GetNotifications(c *gin.Context) {
	s, err := h.service.Get(c.Request.Context())
	if err != nil {
		respondError(c, "settings][get", err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// @Summary      Replace notification settings
// @Tags         Settings
// @Accept       json
// @Produce      json
// @Param        settings  body      models.NotificationSettings  true  "Settings"
// @Success      200       {object}  models.NotificationSettings
// @Failure      400       {object}  map[string]string
// @Router       /settings/notifications [put]
func (h *SettingsHandler) PutNotifications(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	var in models.NotificationSettings
	if err := c.ShouldBindJSON(&in); err != nil {
		log.Printf("[settings][put][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	saved, err := h.service.Update(c.Request.Context(), in)
	if err != nil {
		respondError(c, "settings][put", err)
		return
	}
	log.Printf("[settings][put][ok] by userID=%d email=%v telegram=%v management=%v",
		userID, saved.EmailEnabled, saved.TelegramEnabled, saved.ManagementSummaryEnabled)
	c.JSON(http.StatusOK, saved)
}
