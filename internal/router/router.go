package router

import (
	"time"

	"oriyet/config"
	"oriyet/internal/clock"
	"oriyet/internal/handler"
	"oriyet/internal/lookup"
	"oriyet/internal/middleware"
	"oriyet/internal/repository"
	"oriyet/internal/service"
	"oriyet/pkg/cloudinary"
	"oriyet/pkg/uddoktapay"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps carries the externally constructed pieces the router wires together.
type Deps struct {
	DB       *gorm.DB
	Lookups  *lookup.Cache
	Cloud    cloudinary.Client
	Gateway  *uddoktapay.Client
	Notifier service.Notifier
	Clock    clock.Clock
}

// Setup builds every repository, service and handler and mounts the routes.
func Setup(cfg *config.Config, d Deps) (*gin.Engine, *service.PaymentService, *service.AuthService, *service.EventService) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	global := middleware.NewRateLimiter(100, time.Minute)
	r.Use(global.Middleware())

	// Repositories
	txRunner := repository.NewTxRunner(d.DB)
	userRepo := repository.NewUserRepository(d.DB)
	eventRepo := repository.NewEventRepository(d.DB, d.Lookups)
	regRepo := repository.NewRegistrationRepository(d.DB, d.Lookups)
	paymentRepo := repository.NewPaymentRepository(d.DB, d.Lookups)
	otpRepo := repository.NewOTPRepository(d.DB, d.Lookups)
	certRepo := repository.NewCertificateRepository(d.DB)

	// Services
	authSvc := service.NewAuthService(txRunner, userRepo, otpRepo, d.Lookups, d.Notifier, d.Clock, cfg)
	eventSvc := service.NewEventService(eventRepo, d.Lookups, d.Cloud, d.Clock)
	regSvc := service.NewRegistrationService(txRunner, eventRepo, regRepo, userRepo, d.Lookups, d.Notifier, d.Clock)
	paymentSvc := service.NewPaymentService(txRunner, eventRepo, regRepo, paymentRepo, certRepo, userRepo, d.Lookups, d.Gateway, d.Notifier, d.Clock, cfg)
	certSvc := service.NewCertificateService(certRepo, regRepo, eventRepo, d.Clock)

	// Handlers
	healthHandler := handler.NewHealthHandler(d.DB)
	authHandler := handler.NewAuthHandler(authSvc)
	googleHandler := handler.NewGoogleOAuthHandler(cfg, authSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	regHandler := handler.NewRegistrationHandler(regSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	webhookHandler := handler.NewWebhookHandler(paymentSvc)
	certHandler := handler.NewCertificateHandler(certSvc)

	authMw := middleware.AuthRequired(&cfg.JWT)
	adminMw := middleware.RequireRole("admin")

	// Abuse-prone payment endpoints get tighter windows than the global cap.
	initiateLimit := middleware.NewRateLimiter(5, 15*time.Minute)
	verifyLimit := middleware.NewRateLimiter(10, 5*time.Minute)
	webhookLimit := middleware.NewRateLimiter(100, time.Minute)
	otpLimit := middleware.NewRateLimiter(5, 15*time.Minute)

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", otpLimit.ByIP(), authHandler.Register)
			authGroup.POST("/verify-email", authHandler.VerifyEmail)
			authGroup.POST("/resend-verification", otpLimit.ByIP(), authHandler.ResendVerification)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/login/otp", authHandler.VerifyLoginOTP)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/forgot-password", otpLimit.ByIP(), authHandler.ForgotPassword)
			authGroup.POST("/reset-password", authHandler.ResetPassword)
			authGroup.GET("/google", googleHandler.Redirect)
			authGroup.GET("/google/callback", googleHandler.Callback)
			authGroup.POST("/google/token", googleHandler.Token)

			authGroup.GET("/me", authMw, authHandler.Me)
			authGroup.PATCH("/change-password", authMw, authHandler.ChangePassword)
			authGroup.POST("/2fa/enroll", authMw, authHandler.EnrollTwoFactor)
			authGroup.POST("/2fa/confirm", authMw, authHandler.ConfirmTwoFactor)
			authGroup.POST("/2fa/disable", authMw, authHandler.DisableTwoFactor)
		}

		events := api.Group("/events")
		{
			events.GET("", eventHandler.List)
			events.GET("/slug/:slug", eventHandler.GetBySlug)

			events.POST("", authMw, adminMw, eventHandler.Create)
			events.GET("/:id", authMw, adminMw, eventHandler.Get)
			events.PUT("/:id", authMw, adminMw, eventHandler.Update)
			events.DELETE("/:id", authMw, adminMw, eventHandler.Delete)
			events.PATCH("/:id/registration", authMw, adminMw, eventHandler.SetRegistrationWindow)
			events.POST("/:id/cover", authMw, adminMw, eventHandler.UploadCover)
		}

		regs := api.Group("/registrations")
		regs.Use(authMw)
		{
			regs.POST("", regHandler.Register)
			regs.GET("", regHandler.ListMine)
			regs.GET("/:id", regHandler.Get)
			regs.POST("/:id/cancel", regHandler.Cancel)
		}

		payments := api.Group("/payments")
		payments.Use(authMw)
		{
			payments.POST("/initiate", initiateLimit.Middleware(), paymentHandler.Initiate)
			payments.POST("/verify", verifyLimit.Middleware(), paymentHandler.Verify)
			payments.GET("", paymentHandler.ListMine)
			payments.GET("/:transaction_id", paymentHandler.Get)
			payments.POST("/:transaction_id/cancel", paymentHandler.Cancel)

			payments.GET("/admin/all", adminMw, paymentHandler.ListAll)
			payments.POST("/admin/expire-pending", adminMw, paymentHandler.ExpirePending)
			payments.POST("/:transaction_id/refund", adminMw, paymentHandler.Refund)
		}

		certs := api.Group("/certificates")
		{
			certs.GET("/verify/:code", certHandler.Verify)
			certs.POST("", authMw, certHandler.Issue)
			certs.GET("", authMw, certHandler.ListMine)
		}

		api.POST("/webhooks/uddoktapay", webhookLimit.ByIP(), webhookHandler.UddoktaPay)
	}

	return r, paymentSvc, authSvc, eventSvc
}
