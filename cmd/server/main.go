package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"shareit/pkg/apperr"
	"shareit/pkg/booking"
	"shareit/pkg/config"
	"shareit/pkg/database"
	"shareit/pkg/events"
	"shareit/pkg/item"
	"shareit/pkg/middleware"
	"shareit/pkg/request"
	"shareit/pkg/user"
)

var (
	db       *gorm.DB
	users    *user.Service
	items    *item.Service
	requests *request.Service
	bookings *booking.Service

	publisher events.Publisher
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	config.LoadEnvFile()
	cfg := config.LoadServer()

	slog.Info("starting shareit server")
	conn, err := database.Open(cfg.DB)
	if err != nil {
		slog.Error("database setup failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pub events.Publisher = events.Nop{}
	if cfg.RedisURL != "" {
		client, err := events.Connect(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("booking events disabled", "err", err)
		} else {
			defer client.Close()
			rp := events.NewRedisPublisher(client, cfg.RedisChannel)
			go rp.RunRetries(ctx, 5*time.Second)
			pub = rp
			slog.Info("publishing booking events", "channel", cfg.RedisChannel)
		}
	}

	setup(conn, pub)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newRouter(slog.Default()),
	}
	go func() {
		slog.Info("shareit server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
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

// setup wires the services over conn.
func setup(conn *gorm.DB, pub events.Publisher) {
	db = conn
	publisher = pub
	users = user.NewService(conn)
	bookings = booking.NewService(conn, users, pub)
	items = item.NewService(conn, users, bookings)
	requests = request.NewService(conn, users)
}

func newRouter(log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(log))

	r.GET("/manage/health", healthCheck)

	u := r.Group("/users")
	u.POST("", createUser)
	u.GET("", listUsers)
	u.GET("/:userId", getUser)
	u.PATCH("/:userId", updateUser)
	u.DELETE("/:userId", deleteUser)

	i := r.Group("/items", middleware.RequireUser())
	i.POST("", createItem)
	i.GET("", listOwnItems)
	i.GET("/search", searchItems)
	i.GET("/:itemId", getItem)
	i.PATCH("/:itemId", updateItem)
	i.DELETE("/:itemId", deleteItem)
	i.POST("/:itemId/comment", postComment)

	b := r.Group("/bookings", middleware.RequireUser())
	b.POST("", createBooking)
	b.GET("", listBookerBookings)
	b.GET("/owner", listOwnerBookings)
	b.GET("/:bookingId", getBooking)
	b.PATCH("/:bookingId", decideBooking)
	b.PATCH("/:bookingId/cancel", cancelBooking)

	rq := r.Group("/requests", middleware.RequireUser())
	rq.POST("", createRequest)
	rq.GET("", listOwnRequests)
	rq.GET("/all", listOtherRequests)
	rq.GET("/:requestId", getRequest)

	return r
}

func healthCheck(c *gin.Context) {
	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "error": err.Error()})
		return
	}
	response := gin.H{"status": "UP"}
	if rp, ok := publisher.(*events.RedisPublisher); ok {
		response["pendingEvents"] = rp.Backlog()
	}
	c.JSON(http.StatusOK, response)
}

func writeError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.Request.URL.Path, "req_id", middleware.GetRequestID(c), "err", err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func pathID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + ": " + raw})
		return 0, false
	}
	return uint(id), true
}
