package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nvkv/botfleet/internal/store"
)

// GetSubscription is the read-only lookup for the billing side. Cached
// briefly in Redis when a cache client is wired.
func (h *Handler) GetSubscription(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	ctx := c.Request.Context()

	if h.cache != nil {
		var cached store.Subscription
		if err := h.cache.GetCachedSubscription(ctx, tenantID, &cached); err == nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	sub, err := h.subs.Get(ctx, tenantID)
	if err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
			return
		}
		h.logger.Error("Failed to get subscription", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if h.cache != nil {
		if err := h.cache.CacheSubscription(ctx, tenantID, sub); err != nil {
			h.logger.Debug("Failed to cache subscription", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, sub)
}

type CreatePaymentRequest struct {
	Months int `json:"months" binding:"required,oneof=1 3 12"`
}

// CreatePaymentLink hands out a renewal payment URL for a tenant.
func (h *Handler) CreatePaymentLink(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.subs.Get(c.Request.Context(), tenantID)
	if err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
			return
		}
		h.logger.Error("Failed to get subscription", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	url, err := h.billing.RenewalLink(c.Request.Context(), tenantID, sub.AdminID, req.Months)
	if err != nil {
		h.logger.Error("Failed to create payment link",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create payment link"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"confirmation_url": url})
}
