package mysql

import (
	"context"

	"github.com/wyfcoding/talentmarket/internal/notification/domain"
	"gorm.io/gorm"
)

// NotificationRepository 管理端通知 MySQL 仓储
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓储
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Save 保存通知记录
func (r *NotificationRepository) Save(ctx context.Context, notification *domain.AdminNotification) error {
	return r.db.WithContext(ctx).Save(notification).Error
}

// GetByProfileID 按档案 ID 查询通知记录
func (r *NotificationRepository) GetByProfileID(ctx context.Context, profileID string) ([]*domain.AdminNotification, error) {
	var notifications []*domain.AdminNotification
	err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}
