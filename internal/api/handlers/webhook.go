package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nvkv/botfleet/internal/store"
)

type PaymentWebhookRequest struct {
	Event  string `json:"event" binding:"required"`
	Object struct {
		ID string `json:"id" binding:"required"`
	} `json:"object" binding:"required"`
}

// PaymentWebhook receives payment status events from the gateway. Only
// succeeded payments change state; everything else is acknowledged and
// dropped. Replayed events are acknowledged too, since the pending row
// is gone after the first delivery.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	var req PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Event != "payment.succeeded" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := h.billing.ConfirmPayment(c.Request.Context(), req.Object.ID); err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusOK, gin.H{"status": "already processed"})
			return
		}
		h.logger.Error("Failed to confirm payment",
			zap.String("payment_id", req.Object.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
