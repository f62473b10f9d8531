package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/service"
)

// ContextUserKey — ключ gin.Context с текущим пользователем.
const ContextUserKey = "currentUser"

// UserLoader загружает пользователя по идентификатору из токена.
type UserLoader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AuthMiddleware проверяет JWT access токен и кладёт пользователя в контекст.
// Пользователь загружается из базы: роль в токене могла устареть.
func AuthMiddleware(tokens *service.TokenManager, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
			return
		}

		claims, err := tokens.Parse(strings.TrimPrefix(auth, "Bearer "))
		if err != nil || claims.UserID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "токен невалиден"})
			return
		}

		user, err := users.GetUser(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "пользователь не найден"})
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}
