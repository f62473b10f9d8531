package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/samilink/backend/internal/models"
)

// TokenManager отвечает за выпуск и проверку access токенов.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// TokenClaims — клеймы access токена, достаточные для проверок доступа
// без похода в базу.
type TokenClaims struct {
	UserID  uuid.UUID
	Role    string
	IsStaff bool
}

// Generate выпускает access токен с идентичностью и ролью пользователя.
func (m *TokenManager) Generate(user *models.User) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.ttl)

	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"role":  user.Role,
		"staff": user.IsStaff || user.IsSuperuser,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Parse проверяет access токен и возвращает клеймы.
func (m *TokenManager) Parse(token string) (*TokenClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, err
	}

	role, _ := claims["role"].(string)
	staff, _ := claims["staff"].(bool)

	return &TokenClaims{UserID: userID, Role: role, IsStaff: staff}, nil
}
