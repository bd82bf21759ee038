package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shareit/pkg/config"
	"shareit/pkg/middleware"
	"shareit/pkg/models"
)

type captured struct {
	Method    string
	Path      string
	Query     string
	UserID    string
	RequestID string
	Body      string
}

type fakeServer struct {
	mu       sync.Mutex
	status   int
	response string
	calls    []captured
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, captured{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		UserID:    r.Header.Get(middleware.UserHeader),
		RequestID: r.Header.Get(middleware.RequestIDHeader),
		Body:      string(body),
	})
	status, response := f.status, f.response
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(response))
}

func (f *fakeServer) last(t *testing.T) captured {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

func (f *fakeServer) reply(status int, response string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.response = status, response
}

func (f *fakeServer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func setupGateway(t *testing.T, rps float64) (*gin.Engine, *fakeServer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	fake := &fakeServer{status: http.StatusOK, response: `{}`}
	backend := httptest.NewServer(fake)
	t.Cleanup(backend.Close)

	setup(config.Gateway{
		ServerURL:          backend.URL,
		ServerTimeout:      time.Second,
		BreakerMaxFailures: 2,
		BreakerTimeout:     time.Minute,
		RateLimitRPS:       rps,
		RateLimitBurst:     100,
	})
	registerValidations()
	return newRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), []string{"*"}), fake
}

func send(r *gin.Engine, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.UserHeader, userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func wireTime(t time.Time) string {
	return t.In(time.Local).Format(models.DateTimeLayout)
}

func TestHealthCheck(t *testing.T) {
	r, fake := setupGateway(t, 100)

	w := send(r, "GET", "/manage/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"breaker":"closed"`)
	assert.Zero(t, fake.count())
}

func TestMissingUserHeader(t *testing.T) {
	r, fake := setupGateway(t, 100)

	assert.Equal(t, http.StatusBadRequest, send(r, "GET", "/bookings", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, send(r, "GET", "/items", "abc", nil).Code)
	assert.Zero(t, fake.count())
}

func TestCreateBookingForwarded(t *testing.T) {
	r, fake := setupGateway(t, 100)
	fake.reply(http.StatusCreated, `{"id":1,"status":"WAITING"}`)

	start := time.Now().Add(time.Hour)
	w := send(r, "POST", "/bookings", "2", map[string]interface{}{
		"itemId": 5,
		"start":  wireTime(start),
		"end":    wireTime(start.Add(time.Hour)),
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":1,"status":"WAITING"}`, w.Body.String())

	call := fake.last(t)
	assert.Equal(t, "POST", call.Method)
	assert.Equal(t, "/bookings", call.Path)
	assert.Equal(t, "2", call.UserID)
	assert.NotEmpty(t, call.RequestID)
	assert.Contains(t, call.Body, `"itemId":5`)
	assert.Contains(t, call.Body, wireTime(start))
}

func TestCreateBookingValidation(t *testing.T) {
	r, fake := setupGateway(t, 100)
	now := time.Now()

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"start in past", map[string]interface{}{"itemId": 1, "start": wireTime(now.Add(-time.Hour)), "end": wireTime(now.Add(time.Hour))}},
		{"end before start", map[string]interface{}{"itemId": 1, "start": wireTime(now.Add(2 * time.Hour)), "end": wireTime(now.Add(time.Hour))}},
		{"end equals start", map[string]interface{}{"itemId": 1, "start": wireTime(now.Add(time.Hour)), "end": wireTime(now.Add(time.Hour))}},
		{"missing start", map[string]interface{}{"itemId": 1, "end": wireTime(now.Add(time.Hour))}},
		{"missing item", map[string]interface{}{"start": wireTime(now.Add(time.Hour)), "end": wireTime(now.Add(2 * time.Hour))}},
		{"bad date", map[string]interface{}{"itemId": 1, "start": "tomorrow", "end": wireTime(now.Add(2 * time.Hour))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := send(r, "POST", "/bookings", "1", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Zero(t, fake.count())
}

func TestListBookingsValidation(t *testing.T) {
	r, fake := setupGateway(t, 100)
	fake.reply(http.StatusOK, `[]`)

	tests := []struct {
		path      string
		code      int
		forwarded bool
	}{
		{"/bookings?state=UNSUPPORTED_STATUS", http.StatusBadRequest, false},
		{"/bookings?from=0&size=0", http.StatusBadRequest, false},
		{"/bookings/owner?from=-1&size=10", http.StatusBadRequest, false},
		{"/bookings?from=abc", http.StatusBadRequest, false},
		{"/bookings?from=4611686018427387904&size=2", http.StatusBadRequest, false},
		{"/bookings", http.StatusOK, true},
		{"/bookings/owner?state=past&from=1&size=5", http.StatusOK, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			before := fake.count()
			w := send(r, "GET", tt.path, "1", nil)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.forwarded, fake.count() > before)
		})
	}

	call := fake.last(t)
	assert.Equal(t, "/bookings/owner", call.Path)
	assert.Equal(t, "state=past&from=1&size=5", call.Query)
}

func TestBodyValidation(t *testing.T) {
	r, fake := setupGateway(t, 100)

	tests := []struct {
		name string
		path string
		body interface{}
		code int
	}{
		{"user without email", "/users", map[string]string{"name": "a"}, http.StatusBadRequest},
		{"user bad email", "/users", map[string]string{"name": "a", "email": "nope"}, http.StatusBadRequest},
		{"user blank name", "/users", map[string]string{"name": "  ", "email": "a@b.com"}, http.StatusBadRequest},
		{"user ok", "/users", map[string]string{"name": "a", "email": "a@b.com"}, http.StatusOK},
		{"item missing available", "/items", map[string]interface{}{"name": "a", "description": "b"}, http.StatusBadRequest},
		{"item blank description", "/items", map[string]interface{}{"name": "a", "description": " ", "available": true}, http.StatusBadRequest},
		{"item ok", "/items", map[string]interface{}{"name": "a", "description": "b", "available": false}, http.StatusOK},
		{"request blank", "/requests", map[string]string{"description": ""}, http.StatusBadRequest},
		{"request ok", "/requests", map[string]string{"description": "need a tent"}, http.StatusOK},
		{"comment blank", "/items/1/comment", map[string]string{"text": "   "}, http.StatusBadRequest},
		{"comment ok", "/items/1/comment", map[string]string{"text": "nice"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := fake.count()
			w := send(r, "POST", tt.path, "1", tt.body)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.code == http.StatusOK, fake.count() > before)
		})
	}

	call := fake.last(t)
	assert.Equal(t, "/items/1/comment", call.Path)
	assert.JSONEq(t, `{"text":"nice"}`, call.Body)
}

func TestDecideRequiresApprovedFlag(t *testing.T) {
	r, fake := setupGateway(t, 100)

	assert.Equal(t, http.StatusBadRequest, send(r, "PATCH", "/bookings/1", "1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, send(r, "PATCH", "/bookings/x?approved=true", "1", nil).Code)
	assert.Zero(t, fake.count())

	assert.Equal(t, http.StatusOK, send(r, "PATCH", "/bookings/1?approved=true", "1", nil).Code)
	call := fake.last(t)
	assert.Equal(t, "PATCH", call.Method)
	assert.Equal(t, "approved=true", call.Query)
}

func TestServerErrorsAreRelayedAndTripBreaker(t *testing.T) {
	r, fake := setupGateway(t, 100)

	fake.reply(http.StatusNotFound, `{"error":"user by ID: 9 - not found"}`)
	w := send(r, "GET", "/users/9", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"user by ID: 9 - not found"}`, w.Body.String())

	fake.reply(http.StatusInternalServerError, `{"error":"internal server error"}`)
	for i := 0; i < 2; i++ {
		w = send(r, "GET", "/users", "", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	}

	calls := fake.count()
	w = send(r, "GET", "/users", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, calls, fake.count())
}

func TestDeleteNoContent(t *testing.T) {
	r, fake := setupGateway(t, 100)
	fake.reply(http.StatusNoContent, "")

	w := send(r, "DELETE", "/items/3", "1", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "DELETE", fake.last(t).Method)
	assert.Equal(t, "/items/3", fake.last(t).Path)
}

func TestRateLimited(t *testing.T) {
	r, _ := setupGateway(t, 0.001)

	codes := map[int]int{}
	for i := 0; i < 101; i++ {
		codes[send(r, "GET", "/manage/health", "", nil).Code]++
	}
	assert.Equal(t, 100, codes[http.StatusOK])
	assert.Equal(t, 1, codes[http.StatusTooManyRequests])
}
