package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/talentmarket/internal/notification/domain"
)

// OnboardingCompletedNotice 入驻完成事件的通知视角
type OnboardingCompletedNotice struct {
	ProfileID   string `json:"profile_id"`
	UserID      string `json:"user_id"`
	Handle      string `json:"handle"`
	MFAVerified bool   `json:"mfa_verified"`
}

// NotificationService 管理端通知应用服务
type NotificationService struct {
	repo        domain.NotificationRepository
	sender      domain.Sender
	adminTarget string
}

// NewNotificationService 创建通知服务
func NewNotificationService(repo domain.NotificationRepository, sender domain.Sender, adminTarget string) *NotificationService {
	return &NotificationService{repo: repo, sender: sender, adminTarget: adminTarget}
}

// NotifyOnboardingCompleted 记录并投递入驻完成通知
//
// 先落库再发送；发送失败只标记 FAILED，不向上游返回可重试错误以外的语义。
func (s *NotificationService) NotifyOnboardingCompleted(ctx context.Context, notice OnboardingCompletedNotice) error {
	subject := fmt.Sprintf("New talent onboarded: @%s", notice.Handle)
	content := fmt.Sprintf("Profile %s (user %s) completed onboarding, mfa_verified=%t",
		notice.ProfileID, notice.UserID, notice.MFAVerified)

	notification := domain.NewAdminNotification(notice.ProfileID, notice.UserID, subject, content)
	if err := s.repo.Save(ctx, notification); err != nil {
		return err
	}

	if err := s.sender.Send(ctx, s.adminTarget, subject, content); err != nil {
		logging.Warn(ctx, "failed to deliver admin notification", "notification_id", notification.NotificationID, "error", err)
		notification.MarkFailed(err.Error())
		return s.repo.Save(ctx, notification)
	}

	notification.MarkSent(time.Now())
	return s.repo.Save(ctx, notification)
}

// ListByProfile 查询某档案的通知记录
func (s *NotificationService) ListByProfile(ctx context.Context, profileID string) ([]*domain.AdminNotification, error) {
	return s.repo.GetByProfileID(ctx, profileID)
}
