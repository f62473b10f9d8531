package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/pkg/apperror"
	"github.com/samilink/backend/internal/repository"
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AuthService — регистрация и аутентификация по телефону и паролю.
type AuthService struct {
	repo   AuthRepository
	tokens *TokenManager
}

func NewAuthService(repo AuthRepository, tokens *TokenManager) *AuthService {
	return &AuthService{repo: repo, tokens: tokens}
}

// AuthResult — итог регистрации или входа.
type AuthResult struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// Register создаёт нового пользователя. Роли finance/manager/admin через
// публичную регистрацию не выдаются.
func (s *AuthService) Register(ctx context.Context, phone, name, password, role string) (*AuthResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "телефон обязателен")
	}
	if len(password) < 8 {
		return nil, apperror.New(apperror.ErrCodeValidation, "пароль должен быть не короче 8 символов")
	}
	if role == "" {
		role = models.RoleClient
	}
	if role != models.RoleClient && role != models.RoleEmployee {
		return nil, apperror.New(apperror.ErrCodeValidation, "недопустимая роль при регистрации")
	}

	if _, err := s.repo.GetByPhone(ctx, phone); err == nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "телефон уже зарегистрирован")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось захешировать пароль")
	}

	user := &models.User{
		Phone:        phone,
		Name:         name,
		Role:         role,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperror.New(apperror.ErrCodeValidation, "телефон уже зарегистрирован")
		}
		return nil, err
	}

	return s.issueToken(user)
}

// Login проверяет учётные данные и выпускает токен.
func (s *AuthService) Login(ctx context.Context, phone, password string) (*AuthResult, error) {
	user, err := s.repo.GetByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "неверный телефон или пароль")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "неверный телефон или пароль")
	}
	return s.issueToken(user)
}

// GetUser возвращает пользователя по идентификатору из токена.
func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issueToken(user *models.User) (*AuthResult, error) {
	token, exp, err := s.tokens.Generate(user)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось выпустить токен")
	}
	return &AuthResult{User: user, AccessToken: token, ExpiresAt: exp}, nil
}
