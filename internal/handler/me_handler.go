package handler

import (
	"net/http"

	"greenpay/internal/middleware"
	"greenpay/internal/repository"
	"greenpay/internal/service"

	"github.com/gin-gonic/gin"
)

type MeHandler struct {
	userRepo *repository.UserRepository
	notifSvc *service.NotificationService
}

func NewMeHandler(userRepo *repository.UserRepository, notifSvc *service.NotificationService) *MeHandler {
	return &MeHandler{userRepo: userRepo, notifSvc: notifSvc}
}

// GetProfile handles GET /api/me.
func (h *MeHandler) GetProfile(c *gin.Context) {
	u, err := h.userRepo.GetByID(middleware.GetUserID(c))
	if err != nil {
		fail(c, http.StatusNotFound, "user not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "wallet": walletView(u)})
}

// GetWallet handles GET /api/wallet with stored, held and available balances.
func (h *MeHandler) GetWallet(c *gin.Context) {
	u, err := h.userRepo.GetByID(middleware.GetUserID(c))
	if err != nil {
		fail(c, http.StatusNotFound, "user not found")
		return
	}
	c.JSON(http.StatusOK, walletView(u))
}

// RegisterFCMToken handles POST /api/me/fcm-token.
func (h *MeHandler) RegisterFCMToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "token is required")
		return
	}
	if err := h.notifSvc.RegisterFCMToken(middleware.GetUserID(c), req.Token); err != nil {
		respondError(c, err, "failed to save token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
