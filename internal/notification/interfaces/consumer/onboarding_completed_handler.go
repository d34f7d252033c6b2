package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/talentmarket/internal/notification/application"
	onboardingdomain "github.com/wyfcoding/talentmarket/internal/onboarding/domain"
)

// OnboardingCompletedHandler 消费入驻完成事件并触发管理端通知
type OnboardingCompletedHandler struct {
	service *application.NotificationService
	logger  *slog.Logger
}

// NewOnboardingCompletedHandler 创建消费处理器
func NewOnboardingCompletedHandler(service *application.NotificationService, logger *slog.Logger) *OnboardingCompletedHandler {
	return &OnboardingCompletedHandler{service: service, logger: logger}
}

// Handle 处理一条入驻完成消息
func (h *OnboardingCompletedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	if msg.Topic != onboardingdomain.OnboardingCompletedEventType {
		h.logger.WarnContext(ctx, "unknown onboarding event topic", "topic", msg.Topic)
		return nil
	}

	var notice application.OnboardingCompletedNotice
	if err := json.Unmarshal(msg.Value, &notice); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal onboarding completed event", "error", err)
		return err
	}
	if notice.ProfileID == "" {
		return nil
	}
	return h.service.NotifyOnboardingCompleted(ctx, notice)
}
