package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"shareit/pkg/circuitbreaker"
	"shareit/pkg/middleware"
)

var errServerFailure = errors.New("shareit server error")

// forward replays the request against the server tier with the same path and
// query and relays the response. Transport errors and 5xx answers count
// against the circuit breaker.
func forward(c *gin.Context, method string, body []byte) {
	url := serverURL + c.Request.URL.Path
	if q := c.Request.URL.RawQuery; q != "" {
		url += "?" + q
	}

	var (
		status      int
		data        []byte
		contentType string
	)
	err := breaker.Execute(func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		request, err := http.NewRequestWithContext(c.Request.Context(), method, url, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if body != nil {
			request.Header.Set("Content-Type", "application/json")
		}
		if userID := middleware.UserID(c); userID != 0 {
			request.Header.Set(middleware.UserHeader, fmt.Sprint(userID))
		}
		request.Header.Set(middleware.RequestIDHeader, middleware.GetRequestID(c))

		response, err := httpClient.Do(request)
		if err != nil {
			return err
		}
		defer response.Body.Close()
		data, err = io.ReadAll(response.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		status = response.StatusCode
		contentType = response.Header.Get("Content-Type")
		if status >= http.StatusInternalServerError {
			return errServerFailure
		}
		return nil
	}, nil)

	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		slog.Warn("circuit breaker open, request rejected", "method", method, "url", url)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "shareit server is unavailable"})
		return
	case err != nil && !errors.Is(err, errServerFailure):
		slog.Error("failed to perform request", "method", method, "url", url, "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to perform request"})
		return
	}

	if status == http.StatusNoContent {
		c.Status(status)
		return
	}
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(status, contentType, data)
}
