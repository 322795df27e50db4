package router

import (
	"errors"
	"fmt"
	"net/http"

	"greenpay/config"
	"greenpay/internal/handler"
	"greenpay/internal/middleware"
	"greenpay/internal/repository"
	"greenpay/internal/service"
	"greenpay/internal/ws"
	"greenpay/pkg/cloudinary"
	"greenpay/pkg/payment"
	"greenpay/pkg/rates"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Providers bundles the outbound integrations so tests can swap them.
type Providers struct {
	STK      payment.STKPusher
	Deposits payment.DepositVerifier
	Rates    rates.Source
	Cloud    cloudinary.Uploader // nil disables KYC uploads
}

// ErrMissingCredentials stops a production server from starting on stub gateways.
var ErrMissingCredentials = errors.New("payment gateway credentials missing")

// DefaultProviders builds the live integrations. Outside production missing credentials
// fall back to stubs; in production they are an error.
func DefaultProviders(cfg *config.Config, cloud cloudinary.Uploader) (Providers, error) {
	p := Providers{
		Rates: rates.NewClient(cfg.Exchange.BaseURL, cfg.Exchange.APIKey, cfg.Exchange.Timeout),
		Cloud: cloud,
	}
	production := cfg.Server.Env == "production"
	if cfg.PayHero.AuthToken != "" {
		p.STK = payment.NewPayHeroProvider(cfg.PayHero.BaseURL, cfg.PayHero.AuthToken, cfg.PayHero.ChannelID)
	} else if production {
		return Providers{}, fmt.Errorf("%w: PAYHERO_AUTH_TOKEN", ErrMissingCredentials)
	} else {
		zap.L().Warn("[PAYHERO] no auth token, using stub STK push")
		p.STK = &payment.StubProvider{}
	}
	if cfg.Paystack.SecretKey != "" {
		p.Deposits = payment.NewPaystackProvider(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey)
	} else if production {
		return Providers{}, fmt.Errorf("%w: PAYSTACK_SECRET_KEY", ErrMissingCredentials)
	} else {
		zap.L().Warn("[PAYSTACK] no secret key, deposits verify only stub_ references")
		p.Deposits = &payment.StubProvider{Currency: "KES"}
	}
	return p, nil
}

func Setup(cfg *config.Config, db *gorm.DB, p Providers) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	if cfg.Server.RateLimit > 0 {
		r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)))
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	walletHub := ws.NewHub()

	// Services
	fcmSvc := service.NewFCMService(cfg.Firebase.ServiceAccountPath)
	if fcmSvc != nil {
		zap.L().Info("[FCM] push notifications enabled")
	} else {
		zap.L().Info("[FCM] push notifications disabled: set FIREBASE_SERVICE_ACCOUNT_PATH to enable")
	}
	notifSvc := service.NewNotificationService(notificationRepo, userRepo, fcmSvc, walletHub)
	settingsSvc := service.NewSettingsService(settingRepo, cfg.Fees)
	balanceSvc := service.NewBalanceService(userRepo, txRepo)
	authSvc := service.NewAuthService(cfg, userRepo)
	walletSvc := service.NewWalletService(db, settingsSvc, p.Rates, p.Deposits, notifSvc)
	cardSvc := service.NewCardService(db, settingsSvc, p.STK, cfg.PayHero.WebhookBaseURL, notifSvc)
	kycSvc := service.NewKYCService(db, p.Cloud, notifSvc)
	adminSvc := service.NewAdminService(db, balanceSvc, settingsSvc)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, auditRepo)
	meHandler := handler.NewMeHandler(userRepo, notifSvc)
	walletHandler := handler.NewWalletHandler(walletSvc, p.Rates)
	cardHandler := handler.NewCardHandler(cardSvc)
	payheroHandler := handler.NewPayHeroWebhookHandler(cardSvc)
	kycHandler := handler.NewKYCHandler(kycSvc)
	notificationHandler := handler.NewNotificationHandler(notifSvc)
	adminHandler := handler.NewAdminHandler(adminSvc, walletSvc, kycSvc)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.PATCH("/change-password", authMw, authHandler.ChangePassword)
		}

		// PayHero posts here without credentials; the handler always acknowledges.
		api.POST("/payhero-callback", payheroHandler.Handle)

		authed := api.Group("")
		authed.Use(authMw)
		{
			authed.GET("/me", meHandler.GetProfile)
			authed.GET("/wallet", meHandler.GetWallet)
			authed.POST("/me/fcm-token", meHandler.RegisterFCMToken)

			authed.POST("/transfer", walletHandler.Transfer)
			authed.POST("/exchange/convert", walletHandler.Exchange)
			authed.GET("/exchange/rate", walletHandler.Rate)
			authed.POST("/deposit/verify-payment", walletHandler.VerifyDeposit)
			authed.POST("/transactions", walletHandler.CreateTransaction)
			authed.GET("/transactions/:userId", walletHandler.History)
			authed.GET("/transaction/:id", walletHandler.GetTransaction)

			authed.GET("/virtual-card", cardHandler.Get)
			authed.POST("/virtual-card/purchase", cardHandler.Purchase)

			authed.POST("/kyc/documents", kycHandler.Submit)
			authed.GET("/kyc/documents", kycHandler.ListMine)

			authed.GET("/notifications", notificationHandler.List)
			authed.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.AdminRequired())
		{
			admin.GET("/dashboard", adminHandler.Dashboard)
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/users/:id", adminHandler.GetUser)
			admin.DELETE("/users/:id", adminHandler.DeleteUser)
			admin.PATCH("/users/:id/role", adminHandler.SetRole)
			admin.GET("/users/:id/reconcile", adminHandler.Reconcile)
			admin.GET("/transactions", adminHandler.ListTransactions)
			admin.GET("/withdrawals", adminHandler.ListWithdrawals)
			admin.POST("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
			admin.POST("/withdrawals/:id/reject", adminHandler.RejectWithdrawal)
			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.UpdateSettings)
			admin.GET("/kyc", adminHandler.ListKYC)
			admin.POST("/kyc/:id/approve", adminHandler.ApproveKYC)
			admin.POST("/kyc/:id/reject", adminHandler.RejectKYC)
			admin.GET("/audit-logs", adminHandler.AuditLogs)
		}
	}

	r.GET("/ws/wallet", ws.UpgradeWalletWS(&cfg.JWT, walletHub))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}
