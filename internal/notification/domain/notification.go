// Package domain 管理端通知的领域模型
package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/idgen"
	"gorm.io/gorm"
)

// NotificationStatus 通知状态
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
)

// AdminNotification 管理端通知实体
//
// 入驻完成后的旁路通知记录：投递失败只标记状态，从不反向影响入驻流程。
type AdminNotification struct {
	gorm.Model
	// NotificationID 通知 ID
	NotificationID string `gorm:"column:notification_id;type:varchar(32);uniqueIndex;not null" json:"notification_id"`
	// ProfileID 入驻档案 ID
	ProfileID string `gorm:"column:profile_id;type:varchar(32);index;not null" json:"profile_id"`
	// UserID 用户 ID
	UserID string `gorm:"column:user_id;type:varchar(64);index" json:"user_id"`
	// Subject 通知主题
	Subject string `gorm:"column:subject;type:varchar(100)" json:"subject"`
	// Content 通知内容
	Content string `gorm:"column:content;type:text" json:"content"`
	// Status 通知状态
	Status NotificationStatus `gorm:"column:status;type:varchar(20);index;not null;default:'PENDING'" json:"status"`
	// ErrorMessage 错误信息
	ErrorMessage string `gorm:"column:error_message;type:text" json:"error_message"`
	// SentAt 发送时间
	SentAt *time.Time `gorm:"column:sent_at;type:datetime" json:"sent_at"`
}

// TableName 指定表名
func (AdminNotification) TableName() string {
	return "admin_notifications"
}

// NewAdminNotification 创建待发送的管理端通知
func NewAdminNotification(profileID, userID, subject, content string) *AdminNotification {
	return &AdminNotification{
		NotificationID: fmt.Sprintf("NTF-%d", idgen.GenID()),
		ProfileID:      profileID,
		UserID:         userID,
		Subject:        subject,
		Content:        content,
		Status:         NotificationStatusPending,
	}
}

// MarkSent 标记发送成功
func (n *AdminNotification) MarkSent(at time.Time) {
	n.Status = NotificationStatusSent
	n.SentAt = &at
	n.ErrorMessage = ""
}

// MarkFailed 标记发送失败
func (n *AdminNotification) MarkFailed(reason string) {
	n.Status = NotificationStatusFailed
	n.ErrorMessage = reason
}

// NotificationRepository 通知仓储接口
type NotificationRepository interface {
	Save(ctx context.Context, notification *AdminNotification) error
	GetByProfileID(ctx context.Context, profileID string) ([]*AdminNotification, error)
}

// Sender 通知发送端口
type Sender interface {
	Send(ctx context.Context, target, subject, content string) error
}
