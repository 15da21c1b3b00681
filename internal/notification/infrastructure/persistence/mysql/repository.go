package mysql

import (
	"context"

	"github.com/wyfcoding/bookstore/internal/notification/domain"
	"gorm.io/gorm"
)

type notificationRepository struct{ db *gorm.DB }

func NewNotificationRepository(db *gorm.DB) domain.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Save(ctx context.Context, notification *domain.Notification) error {
	return r.db.WithContext(ctx).Save(notification).Error
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uint) ([]*domain.Notification, error) {
	var list []*domain.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Find(&list).Error
	return list, err
}
