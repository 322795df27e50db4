package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"greenpay/internal/service"
	"greenpay/pkg/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PayHeroWebhookHandler struct {
	cards *service.CardService
}

func NewPayHeroWebhookHandler(cards *service.CardService) *PayHeroWebhookHandler {
	return &PayHeroWebhookHandler{cards: cards}
}

// Handle processes POST /api/payhero-callback?reference=&type=. PayHero retries
// anything but a 200, so every outcome, including errors, is acknowledged.
func (h *PayHeroWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		zap.L().Warn("[PayHero callback] read body", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	var payload payment.PayHeroCallback
	if err := json.Unmarshal(body, &payload); err != nil {
		zap.L().Warn("[PayHero callback] invalid json", zap.Error(err), zap.ByteString("body", body))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	outcome, err := h.cards.HandleCallback(c.Request.Context(), c.Query("reference"), c.Query("type"), payload.Response)
	if err != nil {
		zap.L().Warn("[PayHero callback] not applied",
			zap.String("reference", payload.Response.ExternalReference), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
}
