package routes

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"farmsetu/handlers"
	"farmsetu/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Log         *slog.Logger
	Auth        middleware.Authenticator
	AuthLimiter *middleware.IPRateLimiter
	CORSOrigins []string

	Users     *handlers.AuthHandler
	Listings  *handlers.ListingHandler
	Uploads   *handlers.UploadHandler
	Locations *handlers.LocationHandler
}

func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(d.Log))
	router.Use(cors.New(corsConfig(d.CORSOrigins)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
	})

	api := router.Group("/api")
	protect := middleware.JWTAuthMiddleware(d.Auth)

	auth := api.Group("/auth")
	auth.POST("/register", middleware.RateLimitMiddleware(d.AuthLimiter), d.Users.Register)
	auth.POST("/login", middleware.RateLimitMiddleware(d.AuthLimiter), d.Users.Login)
	auth.PUT("/change-password", protect, d.Users.ChangePassword)
	auth.PUT("/profile", protect, d.Users.UpdateProfile)
	auth.GET("/me", protect, d.Users.Me)

	listings := api.Group("/listings", protect)
	listings.POST("", d.Listings.Create)
	listings.GET("", d.Listings.List)
	listings.GET("/my", d.Listings.Mine)
	listings.PATCH("/:id/status", d.Listings.SetStatus)

	uploads := api.Group("/uploads", protect)
	uploads.POST("/image", d.Uploads.Image)
	uploads.POST("/images", d.Uploads.Images)
	uploads.POST("/video", d.Uploads.Video)

	location := api.Group("/location")
	location.GET("/states", d.Locations.States)
	location.GET("/districts/:state", d.Locations.Districts)
	location.GET("/talukos/:state/:district", d.Locations.Talukos)
	location.GET("/villages/:state/:district/:taluko", d.Locations.Villages)
	location.GET("/villages-all/:state/:district", d.Locations.VillagesOfDistrict)
	location.GET("/pincode/:pincode", d.Locations.Pincode)
	location.GET("/reverse", d.Locations.Reverse)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Endpoint not found",
				"path":    c.Request.URL.Path,
			})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Not found"})
	})

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
