package api

import (
	"strings"
	"time"

	"github.com/broker-one/core/internal/api/handlers"
	"github.com/broker-one/core/internal/api/middleware"
	"github.com/broker-one/core/internal/config"
	"github.com/broker-one/core/internal/drafting"
	"github.com/broker-one/core/internal/functions/ai"
	"github.com/broker-one/core/internal/functions/mail"
	"github.com/broker-one/core/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, *middleware.AuthManager, error) {
	router := gin.Default()

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSOrigins == "" || cfg.CORSOrigins == "*" {
		corsConfig.AllowOrigins = []string{"*"}
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.CORSOrigins, ",")
	}
	router.Use(cors.New(corsConfig))

	// Initialize auth manager
	authManager, err := middleware.NewAuthManager(cfg.DataDir, cfg.JWTSecret, middleware.DefaultTokenExpiry)
	if err != nil {
		return nil, nil, err
	}

	// Initialize services
	logService := services.NewLogServiceWithLevel(db, cfg.LogLevel)
	userService := services.NewUserService(db)
	dealService := services.NewDealService(db)

	// AI completion client shared by the generator and the validator
	aiClient := ai.NewClient()
	aiClient.ConfigureWithBaseURL(cfg.AIProvider, cfg.AIAPIKey, cfg.AIModel, cfg.AIBaseURL)

	generator := drafting.NewGenerator(aiClient)
	validator := drafting.NewValidator(aiClient)
	mailer := mail.NewClient(cfg.MailAPIKey, cfg.MailFrom, cfg.MailBaseURL)

	draftService := services.NewDraftService(db, dealService, userService, logService,
		generator, validator, mailer, cfg.MailFrom)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, authManager.JWTManager, logService)
	userHandler := handlers.NewUserHandler(userService, logService)
	settingsHandler := handlers.NewSettingsHandler(userService, logService)
	dealHandler := handlers.NewDealHandler(dealService, logService)
	draftHandler := handlers.NewDraftHandler(draftService, logService)
	logHandler := handlers.NewLogHandler(logService)

	// Health check endpoint (no auth required)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	apiGroup := router.Group("/api")
	{
		// Apply API key middleware to all API routes
		apiGroup.Use(middleware.APIKeyMiddleware(authManager.APIKeyManager))

		// Auth routes (API key required, but no JWT required)
		auth := apiGroup.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
		}

		// Protected routes (API key + JWT required)
		protected := apiGroup.Group("")
		protected.Use(middleware.JWTMiddleware(authManager.JWTManager))
		{
			protected.POST("/auth/refresh", authHandler.RefreshToken)
			protected.POST("/auth/logout", authHandler.Logout)
			protected.GET("/auth/me", authHandler.GetCurrentUser)

			// User routes
			userGroup := protected.Group("/user")
			{
				userGroup.GET("/profile", userHandler.GetProfile)
				userGroup.PUT("/profile", userHandler.UpdateProfile)
				userGroup.PUT("/password", userHandler.ChangePassword)
			}

			// Deal routes
			deals := protected.Group("/deals")
			{
				deals.GET("", dealHandler.ListDeals)
				deals.GET("/:id", dealHandler.GetDeal)
				deals.GET("/:id/spaces", dealHandler.GetDealSpaces)
				deals.GET("/:id/emails", dealHandler.GetDealEmails)
			}

			// Draft lifecycle routes
			drafts := protected.Group("/drafts")
			{
				drafts.GET("", draftHandler.ListDrafts)
				drafts.POST("", draftHandler.CreateDraft)
				drafts.GET("/:id", draftHandler.GetDraft)
				drafts.PUT("/:id", draftHandler.UpdateDraft)
				drafts.POST("/:id/regenerate", draftHandler.RegenerateDraft)
				drafts.PUT("/:id/version", draftHandler.SwitchDraftVersion)
				drafts.POST("/:id/undo", draftHandler.UndoDraftVersion)
				drafts.POST("/:id/redo", draftHandler.RedoDraftVersion)
				drafts.POST("/:id/approve", draftHandler.ApproveDraft)
				drafts.POST("/:id/unapprove", draftHandler.UnapproveDraft)
				drafts.POST("/:id/reject", draftHandler.RejectDraft)
				drafts.POST("/:id/archive", draftHandler.ArchiveDraft)
				drafts.POST("/:id/send", draftHandler.SendDraft)
			}

			// Settings routes
			settings := protected.Group("/settings")
			{
				settings.GET("", settingsHandler.GetSettings)
				settings.PUT("", settingsHandler.UpdateSettings)
			}

			// Log routes
			logs := protected.Group("/logs")
			{
				logs.GET("", logHandler.ListLogs)
			}
		}
	}

	return router, authManager, nil
}
