package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"zestro/domain"
)

const (
	DefaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

type NotificationService struct {
	repo      NotificationRepository
	publisher EventPublisher
	now       func() time.Time
}

func NewNotificationService(repo NotificationRepository, publisher EventPublisher) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher, now: time.Now}
}

// Notify stores a notification and pushes it to the user's live channel.
// Push failures are logged; the stored row is the source of truth.
func (s *NotificationService) Notify(ctx context.Context, userID, orderID, message string) error {
	n := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		OrderID:   orderID,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return err
	}
	if s.publisher != nil {
		event := domain.Event{
			Type:         domain.EventNotification,
			OrderID:      orderID,
			Notification: n,
			Recipients:   []string{userID},
			Timestamp:    n.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			log.Printf("[order-svc] publish notification %s: %v", n.ID, err)
		}
	}
	return nil
}

func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	return s.repo.ListNotifications(ctx, userID, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (*domain.Notification, error) {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
