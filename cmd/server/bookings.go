package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shareit/pkg/booking"
	"shareit/pkg/middleware"
	"shareit/pkg/models"
	"shareit/pkg/pagination"
)

func createBooking(c *gin.Context) {
	var in models.BookingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	b, err := bookings.Create(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func decideBooking(c *gin.Context) {
	id, ok := pathID(c, "bookingId")
	if !ok {
		return
	}
	approved, err := strconv.ParseBool(c.Query("approved"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "approved must be true or false"})
		return
	}
	b, err := bookings.Decide(c.Request.Context(), id, middleware.UserID(c), approved)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func cancelBooking(c *gin.Context) {
	id, ok := pathID(c, "bookingId")
	if !ok {
		return
	}
	b, err := bookings.Cancel(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func getBooking(c *gin.Context) {
	id, ok := pathID(c, "bookingId")
	if !ok {
		return
	}
	b, err := bookings.Get(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func listBookerBookings(c *gin.Context) {
	listBookings(c, bookings.ListByBooker)
}

func listOwnerBookings(c *gin.Context) {
	listBookings(c, bookings.ListByOwner)
}

type bookingLister func(ctx context.Context, userID uint, state booking.State, page *pagination.Page) ([]models.BookingDto, error)

func listBookings(c *gin.Context, list bookingLister) {
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
	out, err := list(c.Request.Context(), middleware.UserID(c), state, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
