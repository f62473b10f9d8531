package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/samilink/backend/internal/logger"
	"github.com/samilink/backend/internal/models"
	"github.com/samilink/backend/internal/pkg/apperror"
	"github.com/samilink/backend/internal/repository"
)

// Notifier — интерфейс уведомлений для остальных сервисов. Доставка
// «по возможности»: сбой уведомления никогда не прерывает бизнес-операцию.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, data interface{})
}

// NotificationRepository описывает хранилище уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

// Pusher доставляет уведомление подключённому пользователю (вебсокет).
type Pusher interface {
	Push(userID uuid.UUID, payload []byte)
}

// NotificationService сохраняет уведомления и по возможности доставляет их
// через вебсокет.
type NotificationService struct {
	repo   NotificationRepository
	pusher Pusher
}

func NewNotificationService(repo NotificationRepository, pusher Pusher) *NotificationService {
	return &NotificationService{repo: repo, pusher: pusher}
}

// Notify сохраняет уведомление и пытается доставить его по вебсокету.
// Любая ошибка логируется и не возвращается вызывающему.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	if err != nil {
		logger.Log.WithError(err).WithField("event", event).Error("не удалось сериализовать уведомление")
		return
	}

	n := &models.Notification{UserID: userID, Payload: payload}
	if err := s.repo.Create(ctx, n); err != nil {
		logger.Log.WithError(err).WithField("event", event).Error("не удалось сохранить уведомление")
		return
	}

	if s.pusher != nil {
		s.pusher.Push(userID, payload)
	}
}

// List возвращает уведомления пользователя.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// MarkRead помечает уведомление прочитанным.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "уведомление не найдено")
		}
		return err
	}
	return nil
}
