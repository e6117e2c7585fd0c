package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nvkv/botfleet/internal/provision"
)

type CreateBotRequest struct {
	BotToken string `json:"bot_token" binding:"required"`
	AdminID  int64  `json:"admin_id" binding:"required"`
}

func (h *Handler) CreateBot(c *gin.Context) {
	var req CreateBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID, err := h.provisioner.Provision(c.Request.Context(), req.BotToken, req.AdminID)
	if err != nil {
		var stepErr *provision.StepError
		if errors.As(err, &stepErr) {
			h.logger.Error("Provisioning failed",
				zap.String("step", stepErr.Step),
				zap.String("tenant_id", stepErr.TenantID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"status": "error",
				"error":  "Provisioning failed at step " + stepErr.Step,
			})
			return
		}
		h.logger.Error("Provisioning failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "Provisioning failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "ok", "tenant_id": tenantID})
}
