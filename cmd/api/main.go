package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/carecollective/care-api/internal/config"
	"github.com/carecollective/care-api/internal/domain/entity"
	"github.com/carecollective/care-api/internal/gate"
	"github.com/carecollective/care-api/internal/handler"
	"github.com/carecollective/care-api/internal/middleware"
	"github.com/carecollective/care-api/internal/repository/postgres"
	"github.com/carecollective/care-api/internal/service"
	"github.com/carecollective/care-api/pkg/auth"
	"github.com/carecollective/care-api/pkg/auth/manager"
	"github.com/carecollective/care-api/pkg/database"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	// Database.
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	if err := database.MigrateDB(db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	// Redis (rate limiting).
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Failed to close Redis client: %v", err)
		}
	}()

	// Repositories.
	profileRepo := postgres.NewProfileRepo(db)
	statusChangeRepo := postgres.NewStatusChangeRepo(db)
	invalidSessionRepo := postgres.NewInvalidSessionRepo(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepo(db)
	emailConfirmationRepo := postgres.NewEmailConfirmationRepo(db)
	helpRequestRepo := postgres.NewHelpRequestRepo(db)
	conversationRepo := postgres.NewConversationRepo(db)
	messageRepo := postgres.NewMessageRepo(db)

	// Token infrastructure. The token manager and JWT service depend on each
	// other, so the JWT service is injected after construction.
	tokenManager, err := manager.NewTokenManager(refreshTokenRepo, profileRepo)
	if err != nil {
		log.Fatalf("Failed to create token manager: %v", err)
	}
	tokenManager.SetProductionMode(os.Getenv("GIN_MODE") == "release")
	if cfg.Auth.RefreshTokenLifetime > 0 {
		tokenManager.SetRefreshTokenExpiry(time.Duration(cfg.Auth.RefreshTokenLifetime) * time.Hour)
	}
	if cfg.Auth.SessionLimit > 0 {
		tokenManager.SetMaxSessionsPerUser(cfg.Auth.SessionLimit)
	}

	accessTokenTTL := time.Duration(cfg.JWT.AccessTokenMinutes) * time.Minute
	jwtService, err := auth.NewJWTService(cfg.JWT.SigningKey, accessTokenTTL, cfg.JWT.CleanupInterval, invalidSessionRepo, appCtx)
	if err != nil {
		log.Fatalf("Failed to create JWT service: %v", err)
	}
	tokenManager.SetJWTService(jwtService)

	// Email.
	var emailService service.EmailService
	if cfg.Email.Enabled {
		emailService, err = service.NewResendEmailService(cfg.Email.APIKey, cfg.Email.From)
		if err != nil {
			log.Fatalf("Failed to create email service: %v", err)
		}
		log.Println("Email delivery enabled (Resend)")
	} else {
		emailService = &service.NoopEmailService{}
		log.Println("Email delivery disabled, using noop sender")
	}

	// Services.
	confirmationService := service.NewEmailConfirmationService(emailConfirmationRepo, profileRepo, emailService, cfg.Email.CodePepper)
	authService := service.NewAuthService(profileRepo, tokenManager, jwtService, confirmationService)
	verificationService := service.NewVerificationService(profileRepo, statusChangeRepo, jwtService, tokenManager, emailService)
	helpRequestService := service.NewHelpRequestService(helpRequestRepo, profileRepo)
	messageService := service.NewMessageService(conversationRepo, messageRepo, helpRequestRepo, profileRepo)

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	memberHandler := handler.NewMemberHandler(authService, confirmationService, verificationService)
	helpRequestHandler := handler.NewHelpRequestHandler(helpRequestService)
	messageHandler := handler.NewMessageHandler(messageService)
	adminHandler := handler.NewAdminHandler(verificationService, profileRepo)

	// Middleware.
	accessGate := middleware.NewAccessGate(
		jwtService, tokenManager, authService, verificationService,
		cfg.Gate.ProfileReadTimeoutMS, cfg.Gate.TerminateTimeoutMS,
	)
	rateLimiter := middleware.NewRateLimiter(redisClient)
	csrf := middleware.CSRFProtection(tokenManager)

	// Hourly cleanup of expired refresh tokens.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := tokenManager.CleanupExpiredTokens(); err != nil {
					log.Printf("Refresh token cleanup failed: %v", err)
				}
			case <-appCtx.Done():
				return
			}
		}
	}()

	router := gin.Default()
	if err := router.SetTrustedProxies(nil); err != nil {
		log.Fatalf("Failed to set trusted proxies: %v", err)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "https://carecollective.example.org"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", manager.CSRFHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Page-path enforcement: when the server fronts browser navigation
	// (/dashboard, /admin, ...) the prefix table drives redirects. API groups
	// below carry their own explicit requirements.
	router.Use(accessGate.Handler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", rateLimiter.LimitByIP("register", 5, time.Hour), authHandler.Register)
			authRoutes.POST("/login", rateLimiter.LimitByIP("login", 10, 15*time.Minute), authHandler.Login)
			authRoutes.POST("/refresh", rateLimiter.LimitByIP("refresh", 30, time.Minute), authHandler.Refresh)
			authRoutes.POST("/logout", authHandler.Logout)
		}

		// Session-only: pending and rejected members keep access to their own
		// profile, the confirmation flow and re-application.
		me := api.Group("/members/me", accessGate.SessionOnly())
		{
			me.GET("", memberHandler.Me)
			me.PUT("", csrf, memberHandler.UpdateProfile)
			me.POST("/password", csrf, authHandler.ChangePassword)
			me.GET("/history", memberHandler.History)
			me.POST("/reapply", csrf, memberHandler.Reapply)
			me.GET("/confirmation", memberHandler.ConfirmationStatus)
			me.POST("/confirmation/send", csrf, rateLimiter.LimitByUser("confirm_send", 5, 10*time.Minute), memberHandler.SendConfirmationCode)
			me.POST("/confirmation/verify", csrf, rateLimiter.LimitByUser("confirm_verify", 10, 10*time.Minute), memberHandler.ConfirmEmail)
		}

		// Community features: approved members with a confirmed email.
		community := api.Group("", accessGate.Require(gate.Requirements{
			MinStatus:             entity.StatusApproved,
			RequireEmailConfirmed: true,
		}))
		{
			requests := community.Group("/requests")
			{
				requests.GET("", helpRequestHandler.List)
				requests.POST("", csrf, helpRequestHandler.Create)
				requests.GET("/mine", helpRequestHandler.ListMine)
				requests.GET("/helping", helpRequestHandler.ListHelping)

				byID := requests.Group("/:request_id", middleware.ExtractUintParam("request_id", "request_id"))
				{
					byID.GET("", helpRequestHandler.Get)
					byID.POST("/offer", csrf, helpRequestHandler.OfferHelp)
					byID.POST("/complete", csrf, helpRequestHandler.Complete)
					byID.POST("/cancel", csrf, helpRequestHandler.Cancel)
				}
			}

			conversations := community.Group("/conversations")
			{
				conversations.GET("", messageHandler.ListConversations)
				conversations.POST("", csrf, messageHandler.StartConversation)

				byID := conversations.Group("/:conversation_id", middleware.ExtractUintParam("conversation_id", "conversation_id"))
				{
					byID.GET("/messages", messageHandler.ListMessages)
					byID.POST("/messages", csrf, messageHandler.SendMessage)
					byID.POST("/read", csrf, messageHandler.MarkRead)
				}
			}
		}

		// Moderation panel: approved admins only.
		admin := api.Group("/admin", accessGate.Require(gate.Requirements{
			MinStatus:    entity.StatusApproved,
			RequireAdmin: true,
		}))
		{
			admin.GET("/members", adminHandler.ListMembers)
			admin.GET("/audit-log", adminHandler.AuditLog)
			admin.GET("/export/members.csv", adminHandler.ExportRosterCSV)
			admin.GET("/export/members.xlsx", adminHandler.ExportRosterXLSX)

			member := admin.Group("/members/:member_id", middleware.ExtractUintParam("member_id", "member_id"))
			{
				member.GET("/history", adminHandler.MemberHistory)
				member.POST("/approve", csrf, adminHandler.Approve)
				member.POST("/reject", csrf, adminHandler.Reject)
			}
		}
	}

	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Server listening on :%s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancelApp()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
