package sms

import (
	"context"
	"log/slog"

	"github.com/wyfcoding/talentmarket/internal/identity/domain"
)

// MockSMSSender 模拟短信发送器，开发环境使用
type MockSMSSender struct{}

func NewMockSMSSender() domain.SMSSender {
	return &MockSMSSender{}
}

func (s *MockSMSSender) Send(ctx context.Context, phoneNumber, content string) error {
	slog.Info("mock sms sent", "phone", phoneNumber, "content", content)
	return nil
}

// UnconfiguredSMSSender 未配置网关时的占位实现，所有发送返回 ErrSMSUnavailable
type UnconfiguredSMSSender struct{}

func NewUnconfiguredSMSSender() domain.SMSSender {
	return &UnconfiguredSMSSender{}
}

func (s *UnconfiguredSMSSender) Send(ctx context.Context, phoneNumber, content string) error {
	return domain.ErrSMSUnavailable
}
