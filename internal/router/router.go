package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom/internal/config"
	"github.com/stemsi/examroom/internal/handler"
	"github.com/stemsi/examroom/internal/middleware"
	"github.com/stemsi/examroom/internal/response"
	"github.com/stemsi/examroom/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Attempt    *handler.AttemptHandler
	WS         *handler.WSHandler
	Dashboard  *handler.DashboardHandler
	Profile    *handler.ProfileHandler
	Preference *handler.PreferenceHandler
	System     *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds the background cleanup of the login rate limiter.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(response.AccessLog(log))

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Health check.
	router.GET("/health", handlers.System.Health)

	// Rate limiter for auth routes (LoginRateLimit requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(ctx, cfg.LoginRateLimit, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/student/login", authLimiter.Middleware(), handlers.Auth.StudentLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
		middleware.NoStore(),
		middleware.Brotli(),
	)
	{
		studentAPI.GET("/dashboard", handlers.Dashboard.GetDashboard)
		studentAPI.GET("/profile", handlers.Profile.GetProfile)
		studentAPI.GET("/preferences", handlers.Preference.GetPreferences)
		studentAPI.PATCH("/preferences", handlers.Preference.UpdatePreferences)

		studentAPI.GET("/assessments/:id/rules", handlers.Attempt.GetRules)
		studentAPI.POST("/assessments/:id/attempt", handlers.Attempt.StartAttempt)
		studentAPI.GET("/assessments/:id/attempt", handlers.Attempt.GetAttempt)
		studentAPI.POST("/assessments/:id/attempt/intents", handlers.Attempt.PostIntent)
		studentAPI.GET("/assessments/:id/paper", handlers.Attempt.GetPaper)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireStudentWSAuth(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		ws.GET("/student/assessments/:id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. System Group (JWT) ─────────────────────────────────────────
	system := router.Group("/api/v1/system")
	system.Use(middleware.RequireStudentJWT(authService))
	{
		system.GET("/status", handlers.System.Status)
	}

	return router
}
