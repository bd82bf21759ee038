package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shareit/pkg/middleware"
	"shareit/pkg/models"
	"shareit/pkg/pagination"
)

func createItem(c *gin.Context) {
	var in models.ItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	it, err := items.Create(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, it)
}

func updateItem(c *gin.Context) {
	id, ok := pathID(c, "itemId")
	if !ok {
		return
	}
	var in models.ItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	it, err := items.Update(c.Request.Context(), id, middleware.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func deleteItem(c *gin.Context) {
	id, ok := pathID(c, "itemId")
	if !ok {
		return
	}
	if err := items.Delete(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func getItem(c *gin.Context) {
	id, ok := pathID(c, "itemId")
	if !ok {
		return
	}
	it, err := items.FindByID(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func listOwnItems(c *gin.Context) {
	page, err := pagination.Parse(c.Query("from"), c.Query("size"))
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := items.ListByOwner(c.Request.Context(), middleware.UserID(c), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func searchItems(c *gin.Context) {
	page, err := pagination.Parse(c.Query("from"), c.Query("size"))
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := items.Search(c.Request.Context(), c.Query("text"), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func postComment(c *gin.Context) {
	id, ok := pathID(c, "itemId")
	if !ok {
		return
	}
	var in models.CommentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	comment, err := items.PostComment(c.Request.Context(), id, middleware.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}
