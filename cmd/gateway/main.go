package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"shareit/pkg/circuitbreaker"
	"shareit/pkg/config"
	"shareit/pkg/middleware"
)

var (
	serverURL   string
	httpClient  *http.Client
	breaker     *circuitbreaker.CircuitBreaker
	rateLimiter *middleware.RateLimiter
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	config.LoadEnvFile()
	cfg := config.LoadGateway()

	setup(cfg)
	registerValidations()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go rateLimiter.RunCleanup(ctx)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newRouter(slog.Default(), cfg.CORSOrigins),
	}
	go func() {
		slog.Info("gateway listening", "port", cfg.Port, "server_url", serverURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("gateway failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "err", err)
	}
}

func setup(cfg config.Gateway) {
	serverURL = cfg.ServerURL
	httpClient = &http.Client{
		Timeout: cfg.ServerTimeout,
	}
	breaker = circuitbreaker.NewCircuitBreaker(cfg.BreakerMaxFailures, cfg.BreakerTimeout)
	rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
}

func newRouter(log *slog.Logger, origins []string) *gin.Engine {
	r := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = origins
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", middleware.UserHeader, middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	r.Use(gin.Recovery(), cors.New(corsConfig), middleware.RequestID(), middleware.Logger(log), middleware.RateLimit(rateLimiter))

	r.GET("/manage/health", healthCheck)

	u := r.Group("/users")
	u.POST("", createUserHandler)
	u.GET("", passThroughHandler)
	u.GET("/:userId", idHandler("userId"))
	u.PATCH("/:userId", updateUserHandler)
	u.DELETE("/:userId", idHandler("userId"))

	i := r.Group("/items", middleware.RequireUser())
	i.POST("", createItemHandler)
	i.GET("", pagedHandler)
	i.GET("/search", pagedHandler)
	i.GET("/:itemId", idHandler("itemId"))
	i.PATCH("/:itemId", updateItemHandler)
	i.DELETE("/:itemId", idHandler("itemId"))
	i.POST("/:itemId/comment", createCommentHandler)

	b := r.Group("/bookings", middleware.RequireUser())
	b.POST("", createBookingHandler)
	b.GET("", listBookingsHandler)
	b.GET("/owner", listBookingsHandler)
	b.GET("/:bookingId", idHandler("bookingId"))
	b.PATCH("/:bookingId", decideBookingHandler)
	b.PATCH("/:bookingId/cancel", idHandler("bookingId"))

	rq := r.Group("/requests", middleware.RequireUser())
	rq.POST("", createRequestHandler)
	rq.GET("", pagedHandler)
	rq.GET("/all", pagedHandler)
	rq.GET("/:requestId", idHandler("requestId"))

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP", "breaker": breaker.GetState().String()})
}
