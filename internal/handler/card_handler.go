package handler

import (
	"net/http"

	"greenpay/internal/middleware"
	"greenpay/internal/money"
	"greenpay/internal/service"

	"github.com/gin-gonic/gin"
)

type CardHandler struct {
	svc *service.CardService
}

func NewCardHandler(svc *service.CardService) *CardHandler {
	return &CardHandler{svc: svc}
}

// Purchase handles POST /api/virtual-card/purchase and sends an STK push.
func (h *CardHandler) Purchase(c *gin.Context) {
	var req struct {
		Phone string `json:"phone"`
	}
	_ = c.ShouldBindJSON(&req)
	t, err := h.svc.InitiatePurchase(c.Request.Context(), middleware.GetUserID(c), req.Phone)
	if err != nil {
		respondError(c, err, "card purchase failed")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message":     "Check your phone to approve the M-Pesa payment",
		"reference":   t.Reference,
		"amount":      money.Format(t.AmountCents),
		"currency":    t.Currency,
		"transaction": transactionView(t),
	})
}

// Get handles GET /api/virtual-card.
func (h *CardHandler) Get(c *gin.Context) {
	card, err := h.svc.GetCard(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "failed to load card")
		return
	}
	c.JSON(http.StatusOK, gin.H{"card": card, "balance": money.Format(card.BalanceCents)})
}
