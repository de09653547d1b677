package controllers

import (
	"net/http"
	"time"

	"Scorekeep/models"

	"github.com/gin-gonic/gin"
)

// @Summary Realtime settings for clients
// @Description How often clients re-poll /api/my-invitations and how long invitations are advertised as open
// @Tags realtime
// @Produce json
// @Success 200 {object} models.RealtimeConfig
// @Router /api/realtime-config [get]
func GetRealtimeConfig(pollInterval, invitationTTL time.Duration) gin.HandlerFunc {
	cfg := models.RealtimeConfig{
		PollIntervalSeconds:  int(pollInterval / time.Second),
		InvitationTTLSeconds: int(invitationTTL / time.Second),
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, cfg)
	}
}
