package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxcraft/voxcraft-golang/internal/handlers"
)

func TestPing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := SetupRouter(&handlers.Handlers{})

	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "pong")
}

func TestAuthenticatedRoutesRejectMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// The handlers behind the auth group are never reached without a
	// token, so a bare Handlers value is enough here.
	router := SetupRouter(&handlers.Handlers{})

	for _, route := range []struct {
		method, path string
	}{
		{http.MethodPost, "/v1/speech/generate"},
		{http.MethodPost, "/v1/voice/convert"},
		{http.MethodPost, "/v1/audio/generate"},
		{http.MethodPost, "/v1/speech/transcribe"},
		{http.MethodGet, "/v1/history/styletts2"},
		{http.MethodGet, "/v1/credits"},
		{http.MethodGet, "/v1/profile/me"},
	} {
		req := httptest.NewRequest(route.method, route.path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", route.method, route.path)
	}
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := SetupRouter(&handlers.Handlers{})

	req := httptest.NewRequest(http.MethodOptions, "/v1/login", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}
