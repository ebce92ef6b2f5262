package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(), CORS())
	r.GET("/me", JWTRequired(testSecret), func(c *gin.Context) {
		user, ok := GetUserFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, user)
	})
	return r
}

func request(r http.Handler, method, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRequired(t *testing.T) {
	r := newRouter()

	token, expiresAt, err := IssueToken(testSecret, 7, "admin", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	w := request(r, http.MethodGet, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"username":"admin"}`, w.Body.String())
}

func TestJWTRequiredRejects(t *testing.T) {
	r := newRouter()

	expired, _, err := IssueToken(testSecret, 7, "admin", -time.Hour)
	require.NoError(t, err)
	foreign, _, err := IssueToken("other-secret", 7, "admin", time.Hour)
	require.NoError(t, err)
	noUsername, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 7,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		error  string
	}{
		{"missing header", "", "Authorization header required"},
		{"wrong scheme", "Basic abc", "Invalid authorization format. Expected 'Bearer <token>'"},
		{"empty token", "Bearer ", "Token cannot be empty"},
		{"expired", "Bearer " + expired, "Invalid or expired token"},
		{"wrong secret", "Bearer " + foreign, "Invalid or expired token"},
		{"missing claim", "Bearer " + noUsername, "Invalid token claims"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(r, http.MethodGet, tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"`+tt.error+`"}`, w.Body.String())
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	w := request(newRouter(), http.MethodOptions, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
