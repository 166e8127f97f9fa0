package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentride/internal/infra/config"
	"rentride/internal/infra/obs"
)

type SessionHTTP interface {
	Open(c *gin.Context)
	Get(c *gin.Context)
	Close(c *gin.Context)
	Resync(c *gin.Context)
	Stream(c *gin.Context)
}

type BookingHTTP interface {
	Quote(c *gin.Context)
	Edit(c *gin.Context)
	Cancel(c *gin.Context)
	Pay(c *gin.Context)
	VerifyPayment(c *gin.Context)
}

type Handlers struct {
	Sessions SessionHTTP
	Bookings BookingHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{Addr: cfg.HTTPAddr, Handler: NewRouter(obsMW, health, h)}
}

func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Sessions != nil {
		sessions := api.Group("/sessions")
		sessions.POST("", h.Sessions.Open)
		sessions.GET("/:id", h.Sessions.Get)
		sessions.DELETE("/:id", h.Sessions.Close)
		sessions.POST("/:id/resync", h.Sessions.Resync)
		sessions.GET("/:id/stream", h.Sessions.Stream)
	}
	if h.Bookings != nil {
		bookings := api.Group("/sessions/:id/bookings/:bookingId")
		bookings.POST("/quote", h.Bookings.Quote)
		bookings.PATCH("", h.Bookings.Edit)
		bookings.POST("/cancel", h.Bookings.Cancel)
		bookings.POST("/payments", h.Bookings.Pay)
		api.GET("/payments/:ref/verify", h.Bookings.VerifyPayment)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
