package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const ctxKeyIsAdmin = "isAdmin"

// GinZapLogger логирует запросы через zap, пропуская /health и /metrics.
func GinZapLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		c.Next()

		latency := time.Since(start)
		if rawQuery := c.Request.URL.RawQuery; rawQuery != "" {
			path = path + "?" + rawQuery
		}

		log.Info("request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", latency),
		)
	}
}

// AdminDetect разбирает админский токен, если он передан, и помечает
// запрос флагом в контексте. Не отклоняет запросы: публичные эндпоинты
// используют флаг, чтобы показать приватные записи владельцу.
func AdminDetect(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token != "" && validateAdminToken(token, secret) == nil {
			c.Set(ctxKeyIsAdmin, true)
		}
		c.Next()
	}
}

// RequireAdmin отклоняет запрос без валидного админского токена.
func RequireAdmin(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{Message: "missing admin token"})
			return
		}
		if err := validateAdminToken(token, secret); err != nil {
			logger.Warn("Отклонен запрос с невалидным админским токеном",
				zap.String("ip", c.ClientIP()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{Message: "invalid admin token"})
			return
		}
		c.Set(ctxKeyIsAdmin, true)
		c.Next()
	}
}

// bearerToken достает токен из заголовка Authorization.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// validateAdminToken проверяет подпись и срок жизни токена.
func validateAdminToken(tokenString, secret string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return fmt.Errorf("token parse error: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

// isAdmin сообщает, прошел ли запрос проверку админского токена.
func isAdmin(c *gin.Context) bool {
	return c.GetBool(ctxKeyIsAdmin)
}
