package handlers

import (
	"net/http"

	"homecare/services/notification"
	"homecare/utils"

	"github.com/gin-gonic/gin"
)

// DeviceHandler mirrors FCM device tokens into the cache so queued pushes can
// resolve a target without calling the identity service.
type DeviceHandler struct {
	Tokens *notification.RedisTokenResolver
}

func NewDeviceHandler(tokens *notification.RedisTokenResolver) *DeviceHandler {
	return &DeviceHandler{Tokens: tokens}
}

// UpdateFCMTokenHandler registers the caller's device token.
func (h *DeviceHandler) UpdateFCMTokenHandler(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	subject := c.GetString("subjectID")
	role := c.GetString("subjectRole")

	var err error
	switch role {
	case "nurse":
		err = h.Tokens.SaveNurseToken(c.Request.Context(), subject, req.Token)
	case "client":
		err = h.Tokens.SaveClientToken(c.Request.Context(), subject, req.Token)
	default:
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "unknown role")
		return
	}
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to save device token", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
