package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shareit/pkg/middleware"
	"shareit/pkg/models"
	"shareit/pkg/pagination"
)

func createRequest(c *gin.Context) {
	var in models.RequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	r, err := requests.Create(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func listOwnRequests(c *gin.Context) {
	page, err := pagination.Parse(c.Query("from"), c.Query("size"))
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := requests.ListOwn(c.Request.Context(), middleware.UserID(c), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func listOtherRequests(c *gin.Context) {
	page, err := pagination.Parse(c.Query("from"), c.Query("size"))
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := requests.ListOthers(c.Request.Context(), middleware.UserID(c), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func getRequest(c *gin.Context) {
	id, ok := pathID(c, "requestId")
	if !ok {
		return
	}
	r, err := requests.GetByID(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
