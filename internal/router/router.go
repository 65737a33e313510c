package router

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"campusconnect/internal/auth"
	"campusconnect/internal/config"
	"campusconnect/internal/errors"
	"campusconnect/internal/handler"
	"campusconnect/internal/metrics"
	"campusconnect/internal/validation"
)

const (
	rateWindow   = 15 * time.Minute
	apiRateLimit = 100
	// Login, registration and reset requests per IP per window.
	authRateLimit = 5
	bodyLimit     = "1M"
)

// Handlers groups the HTTP handlers mounted under /api/v1.
type Handlers struct {
	Auth        *handler.AuthHandler
	Users       *handler.UserHandler
	Events      *handler.EventHandler
	Marketplace *handler.MarketplaceHandler
	Posts       *handler.PostHandler
	Livestreams *handler.LivestreamHandler
}

// Gates holds the token middlewares.
type Gates struct {
	Access  *auth.Gate
	Refresh *auth.Gate
}

func windowLimiter(requests int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Every(rateWindow / time.Duration(requests)),
		Burst:     requests,
		ExpiresIn: rateWindow,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, errors.ErrorResponse{
				Error: "too many requests, please try again later",
				Code:  "RATE_LIMITED",
			})
		},
	})
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("requestId", v.RequestID),
				zap.String("remoteIp", v.RemoteIP),
			}
			if v.Error != nil {
				logger.Warn("http.request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("http.request", fields...)
			return nil
		},
	})
}

// Register wires middleware and routes.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger *zap.Logger,
	gatherer prometheus.Gatherer,
	gates Gates,
	h Handlers,
) {
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         31536000,
		ReferrerPolicy:     "no-referrer",
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(metrics.Middleware())

	e.Validator = validation.New(cfg.EmailDomain)

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api/v1", windowLimiter(apiRateLimit))
	authLimit := windowLimiter(authRateLimit)
	access := gates.Access.Middleware()

	users := api.Group("/users")
	users.POST("/register", h.Auth.Register, authLimit)
	users.POST("/login", h.Auth.Login, authLimit)
	users.POST("/refresh", h.Auth.Refresh, gates.Refresh.Middleware())
	users.GET("/verify", h.Auth.VerifyEmail)
	users.POST("/resend-verification", h.Auth.ResendVerification, authLimit)
	users.POST("/request-password-reset", h.Auth.RequestPasswordReset, authLimit)
	users.POST("/reset-password", h.Auth.ResetPassword, authLimit)
	users.GET("/me", h.Users.Me, access)
	users.PUT("/upsert-profile", h.Users.UpsertProfile, access)
	users.GET("/public_profile/:id", h.Users.PublicProfile)
	users.DELETE("/:id", h.Users.DeleteAccount, access)
	if cfg.IsDevelopment() {
		users.GET("", h.Users.ListUsers)
	}

	events := api.Group("/events")
	events.GET("", h.Events.ListEvents)
	events.POST("", h.Events.CreateEvent, access)
	events.GET("/:id", h.Events.GetEvent)

	market := api.Group("/marketplace")
	market.GET("", h.Marketplace.ListListings)
	market.GET("/favorites", h.Marketplace.ListFavorites, access)
	market.GET("/:id", h.Marketplace.GetListing)
	market.POST("", h.Marketplace.CreateListing, access)
	market.PUT("/:id", h.Marketplace.UpdateListing, access)
	market.DELETE("/:id", h.Marketplace.DeleteListing, access)
	market.POST("/:id/view", h.Marketplace.RecordView)
	market.POST("/:id/favorite", h.Marketplace.ToggleFavorite, access)

	posts := api.Group("/posts", access)
	posts.GET("", h.Posts.Feed)
	posts.POST("", h.Posts.CreatePost)
	posts.GET("/user/:userId", h.Posts.UserPosts)
	posts.DELETE("/comments/:commentId", h.Posts.DeleteComment)
	posts.GET("/:id", h.Posts.GetPost)
	posts.DELETE("/:id", h.Posts.DeletePost)
	posts.POST("/:id/like", h.Posts.LikePost)
	posts.DELETE("/:id/like", h.Posts.UnlikePost)
	posts.GET("/:id/comments", h.Posts.Comments)
	posts.POST("/:id/comments", h.Posts.CreateComment)
	posts.POST("/:id/repost", h.Posts.Repost)
	posts.DELETE("/:id/repost", h.Posts.UndoRepost)

	// Webhook is authenticated by the provider signature, not a bearer token.
	e.POST("/api/v1/livestreams/webhook", h.Livestreams.Webhook)
	streams := api.Group("/livestreams")
	streams.GET("", h.Livestreams.ListActive)
	streams.POST("", h.Livestreams.StartLivestream, access)
	streams.GET("/:id", h.Livestreams.GetLivestream)
	streams.POST("/:id/join", h.Livestreams.JoinLivestream, access)
	streams.POST("/:id/end", h.Livestreams.EndLivestream, access)
}
