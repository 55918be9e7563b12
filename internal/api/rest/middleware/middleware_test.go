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

	"github.com/Dhoini/fitness-billing/pkg/logger"
)

const (
	testSecret = "test-secret"
	testUserID = "5b0c1f7e-2d4a-4c3b-9e8f-1a2b3c4d5e6f"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func signed(t *testing.T, method jwt.SigningMethod, key any, subject string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(method, TokenClaims{
		UserEmail: "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	s, err := token.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer   abc "))
	assert.Equal(t, "abc", BearerToken("abc"))
}

func TestResolveUserID(t *testing.T) {
	v := &DefaultTokenValidator{Secret: []byte(testSecret)}
	hour := time.Now().Add(time.Hour)

	userID, err := ResolveUserID(v, "Bearer "+signed(t, jwt.SigningMethodHS256, []byte(testSecret), testUserID, hour))
	require.NoError(t, err)
	assert.Equal(t, testUserID, userID)

	tests := []struct {
		name   string
		header string
	}{
		{"empty", "Bearer "},
		{"garbage", "Bearer garbage"},
		{"wrong secret", "Bearer " + signed(t, jwt.SigningMethodHS256, []byte("other"), testUserID, hour)},
		{"expired", "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(testSecret), testUserID, time.Now().Add(-time.Minute))},
		{"no subject", "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(testSecret), "", hour)},
		{"subject not uuid", "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(testSecret), "user-42", hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveUserID(v, tt.header)
			assert.Error(t, err)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	m := NewJWTMiddleware(logger.NewNop(), &DefaultTokenValidator{Secret: []byte(testSecret)})
	r := gin.New()
	r.GET("/me", m.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, jwt.SigningMethodHS256, []byte(testSecret), testUserID, time.Now().Add(time.Hour)))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testUserID, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Missing authorization header")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Unauthorized")
}

func TestCORS(t *testing.T) {
	reached := false
	r := gin.New()
	r.Use(CORS("POST, OPTIONS"))
	r.POST("/x", func(c *gin.Context) {
		reached = true
		c.Status(http.StatusNoContent)
	})
	r.OPTIONS("/x", func(c *gin.Context) {
		t.Fatal("preflight must not reach the route handler")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.False(t, reached)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, reached)
}
