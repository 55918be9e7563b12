package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Dhoini/fitness-billing/pkg/logger"
	"github.com/Dhoini/fitness-billing/pkg/res"
)

// ContextKey тип для ключей контекста во избежание коллизий.
type ContextKey string

const (
	// ContextUserIDKey ключ для хранения ID пользователя в контексте gin.
	ContextUserIDKey ContextKey = "userID"
	authHeaderPrefix            = "Bearer "
)

// TokenValidator проверяет учетные данные вызывающего и возвращает их claims
type TokenValidator interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims claims токена сессии; Subject это ID пользователя
type TokenClaims struct {
	UserEmail string `json:"email"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// BearerToken извлекает токен из заголовка Authorization
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= len(authHeaderPrefix) && strings.EqualFold(header[:len(authHeaderPrefix)], authHeaderPrefix) {
		return strings.TrimSpace(header[len(authHeaderPrefix):])
	}
	return header
}

// ResolveUserID проверяет токен и возвращает ID пользователя
func ResolveUserID(validator TokenValidator, authHeader string) (string, error) {
	token := BearerToken(authHeader)
	if token == "" {
		return "", errors.New("missing token")
	}
	claims, err := validator.Validate(token)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("user ID (sub) missing in token")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("user ID (sub) is not a UUID: %w", err)
	}
	return claims.Subject, nil
}

type JWTMiddleware struct {
	log       *logger.Logger
	validator TokenValidator
}

func NewJWTMiddleware(log *logger.Logger, validator TokenValidator) *JWTMiddleware {
	return &JWTMiddleware{
		log:       log,
		validator: validator,
	}
}

// RequireAuth отклоняет запрос с 401, если токен не прошел проверку
func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			m.handleAuthError(c, "Missing authorization header", nil)
			return
		}

		userID, err := ResolveUserID(m.validator, authHeader)
		if err != nil {
			m.handleAuthError(c, "Unauthorized", err)
			return
		}

		c.Set(string(ContextUserIDKey), userID)
		m.log.Debugw("User authenticated via HTTP", "userID", userID)
		c.Next()
	}
}

// UserID возвращает ID пользователя, сохраненный RequireAuth
func UserID(c *gin.Context) string {
	return c.GetString(string(ContextUserIDKey))
}

func (m *JWTMiddleware) handleAuthError(c *gin.Context, message string, err error) {
	m.log.Warnw("HTTP Authentication failed", "path", c.Request.URL.Path, "reason", message, "error", err)
	res.JsonResponse(c, res.ErrorResponse{
		Error:     message,
		ErrorCode: http.StatusUnauthorized,
	}, http.StatusUnauthorized)
	c.Abort()
}

// DefaultTokenValidator - HMAC валидатор токенов сессии.
type DefaultTokenValidator struct {
	Secret []byte
}

func (v *DefaultTokenValidator) Validate(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.Secret, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, errors.New("malformed token")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, errors.New("invalid token signature")
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, errors.New("token expired")
		default:
			return nil, fmt.Errorf("invalid token: %w", err)
		}
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token claims")
}
