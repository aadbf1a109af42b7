// Package server assembles the gin engine from the domain handlers.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"bitelogs/internal/access"
	"bitelogs/internal/apperr"
	"bitelogs/internal/auth"
	"bitelogs/internal/discovery"
	"bitelogs/internal/feed"
	"bitelogs/internal/media"
	"bitelogs/internal/menuitems"
	"bitelogs/internal/metrics"
	"bitelogs/internal/middleware"
	"bitelogs/internal/restaurants"
	"bitelogs/internal/reviews"
	"bitelogs/pkg/utils"
)

// Version is reported by the health endpoint; overridden at link time.
var Version = "dev"

type Deps struct {
	Config  utils.Config
	DB      *sqlx.DB
	Log     logrus.FieldLogger
	Tokens  auth.TokenService
	Media   media.Store
	Metrics *metrics.Metrics
	Feed    *feed.Hub
}

// corsMiddleware allows any origin without credentials when none are
// configured.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// New wires every repo, service and handler onto a fresh engine.
func New(d Deps) *gin.Engine {
	cfg := d.Config

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(d.Log),
		middleware.RequestLogger(d.Log),
		apperr.Middleware(apperr.Responder{Log: d.Log, Verbose: cfg.IsDevelopment()}),
		corsMiddleware(cfg.AllowedOrigins()),
		middleware.SecurityHeaders("/api"),
	)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	apperr.UseJSONFieldNames()

	r.NoRoute(func(c *gin.Context) {
		apperr.Respond(c, apperr.NotFound("Route"))
	})

	limits := middleware.NewLimiters(cfg.RateLimitDisabled, d.Log)

	authRepo := auth.NewRepo(d.DB)
	restaurantRepo := restaurants.NewRepo(d.DB)
	itemRepo := menuitems.NewRepo(d.DB)
	reviewRepo := reviews.NewRepo(d.DB)

	opts := []reviews.ServiceOption{
		reviews.WithPolicy(access.Policy{AdminMayAttachReviewImages: cfg.ReviewImageAdminOverride}),
	}
	if d.Feed != nil {
		opts = append(opts, reviews.WithFeed(d.Feed))
	}
	if d.Metrics != nil {
		opts = append(opts, reviews.WithMetrics(d.Metrics))
	}
	reviewSvc := reviews.NewService(reviewRepo, itemRepo, d.Media, d.Log, opts...)

	requireAuth := auth.AuthMiddleware(d.Tokens, authRepo)

	api := r.Group("/api")
	NewHealth(d.DB, Version).RegisterRoutes(api)

	if limits.General != nil {
		api = api.Group("", limits.General)
	}

	authHandler := auth.NewHandler(authRepo, d.Tokens, d.Media, cfg.MaxFileSize, d.Log)
	authHandler.RegisterRoutes(api.Group("/auth"), auth.Limits{Login: limits.Login, Register: limits.Register})

	restaurantHandler := restaurants.NewHandler(restaurantRepo, d.Media, cfg.MaxFileSize, d.Log)
	itemHandler := menuitems.NewHandler(itemRepo, d.Media, cfg.MaxFileSize, d.Log)
	reviewHandler := reviews.NewHandler(reviewSvc, cfg.MaxFileSize)

	restaurantGroup := api.Group("/restaurants")
	restaurantHandler.RegisterRoutes(restaurantGroup, requireAuth)
	itemHandler.RegisterRestaurantRoutes(restaurantGroup)

	itemGroup := api.Group("/menu-items")
	itemHandler.RegisterRoutes(itemGroup, requireAuth)
	reviewHandler.RegisterMenuItemRoutes(itemGroup)

	reviewHandler.RegisterRoutes(api.Group("/reviews"), requireAuth, limits.Reviews)

	discovery.NewHandler(discovery.NewRepo(d.DB)).RegisterRoutes(api.Group("/discover"))

	if d.Feed != nil {
		r.GET("/ws/reviews", feed.WSHandler(d.Feed, cfg.AllowedOrigins()))
	}
	if cfg.UploadDir != "" {
		r.StaticFS("/uploads", http.Dir(cfg.UploadDir))
	}
	return r
}
