package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"shareit/pkg/apperr"
	"shareit/pkg/booking"
	"shareit/pkg/middleware"
	"shareit/pkg/models"
	"shareit/pkg/pagination"
)

type userCreate struct {
	Name  string `json:"name" binding:"required,notblank"`
	Email string `json:"email" binding:"required,email"`
}

type userPatch struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty" binding:"omitempty,email"`
}

type itemCreate struct {
	Name        string `json:"name" binding:"required,notblank"`
	Description string `json:"description" binding:"required,notblank"`
	Available   *bool  `json:"available" binding:"required"`
	RequestID   *uint  `json:"requestId,omitempty" binding:"omitempty,gt=0"`
}

type bookingCreate struct {
	ItemID uint             `json:"itemId" binding:"required"`
	Start  *models.DateTime `json:"start" binding:"required"`
	End    *models.DateTime `json:"end" binding:"required"`
}

type commentCreate struct {
	Text string `json:"text" binding:"required,notblank"`
}

type requestCreate struct {
	Description string `json:"description" binding:"required,notblank"`
}

func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			slog.Error("failed to register notblank validation", "err", err)
		}
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation error", "details": err.Error()})
}

// bindAndForward validates the body into dst and forwards its re-encoded form.
func bindAndForward(c *gin.Context, method string, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, err)
		return false
	}
	body, err := json.Marshal(dst)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create request body"})
		return false
	}
	forward(c, method, body)
	return true
}

func createUserHandler(c *gin.Context) {
	slog.Info("Creating user")
	bindAndForward(c, http.MethodPost, &userCreate{})
}

func updateUserHandler(c *gin.Context) {
	if _, ok := pathID(c, "userId"); !ok {
		return
	}
	slog.Info("Updating user", "userId", c.Param("userId"))
	bindAndForward(c, http.MethodPatch, &userPatch{})
}

func createItemHandler(c *gin.Context) {
	slog.Info("Creating item", "userId", middleware.UserID(c))
	bindAndForward(c, http.MethodPost, &itemCreate{})
}

func updateItemHandler(c *gin.Context) {
	if _, ok := pathID(c, "itemId"); !ok {
		return
	}
	slog.Info("Updating item", "userId", middleware.UserID(c), "itemId", c.Param("itemId"))
	bindAndForward(c, http.MethodPatch, &models.ItemInput{})
}

func createCommentHandler(c *gin.Context) {
	if _, ok := pathID(c, "itemId"); !ok {
		return
	}
	slog.Info("Creating comment", "userId", middleware.UserID(c), "itemId", c.Param("itemId"))
	bindAndForward(c, http.MethodPost, &commentCreate{})
}

func createRequestHandler(c *gin.Context) {
	slog.Info("Creating request", "userId", middleware.UserID(c))
	bindAndForward(c, http.MethodPost, &requestCreate{})
}

func createBookingHandler(c *gin.Context) {
	var in bookingCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	start, end := in.Start.Time(), in.End.Time()
	if start.Before(time.Now()) || !end.After(start) {
		writeError(c, apperr.WrongTimeRange())
		return
	}
	slog.Info("Creating booking", "userId", middleware.UserID(c), "itemId", in.ItemID)
	body, err := json.Marshal(in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create request body"})
		return
	}
	forward(c, http.MethodPost, body)
}

func decideBookingHandler(c *gin.Context) {
	if _, ok := pathID(c, "bookingId"); !ok {
		return
	}
	approved, err := strconv.ParseBool(c.Query("approved"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "approved must be true or false"})
		return
	}
	slog.Info("Deciding booking", "userId", middleware.UserID(c), "bookingId", c.Param("bookingId"), "approved", approved)
	forward(c, http.MethodPatch, nil)
}

func listBookingsHandler(c *gin.Context) {
	state, err := booking.ParseState(c.DefaultQuery("state", "ALL"))
	if err != nil {
		writeError(c, err)
		return
	}
	page, err := pagination.Parse(c.Query("from"), c.Query("size"))
	if err != nil {
		writeError(c, err)
		return
	}
	slog.Info("Get bookings", "path", c.Request.URL.Path, "state", state, "userId", middleware.UserID(c), "page", page)
	forward(c, http.MethodGet, nil)
}

func pagedHandler(c *gin.Context) {
	if _, err := pagination.Parse(c.Query("from"), c.Query("size")); err != nil {
		writeError(c, err)
		return
	}
	forward(c, http.MethodGet, nil)
}

func passThroughHandler(c *gin.Context) {
	forward(c, c.Request.Method, nil)
}

// idHandler checks the named path parameter and forwards the request as is.
func idHandler(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := pathID(c, name); !ok {
			return
		}
		forward(c, c.Request.Method, nil)
	}
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

func writeError(c *gin.Context, err error) {
	c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
}
