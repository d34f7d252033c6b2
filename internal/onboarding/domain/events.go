package domain

import (
	"context"
	"time"
)

const (
	// StepCompletedEventType 步骤完成事件主题
	StepCompletedEventType = "onboarding.step.completed"
	// OnboardingCompletedEventType 入驻完成事件主题，供管理端通知消费
	OnboardingCompletedEventType = "onboarding.completed"
)

// StepCompletedEvent 步骤完成事件
type StepCompletedEvent struct {
	ProfileID string         `json:"profile_id"`
	UserID    string         `json:"user_id"`
	Step      OnboardingStep `json:"step"`
	Timestamp time.Time      `json:"timestamp"`
}

// OnboardingCompletedEvent 入驻完成事件
//
// 通知管理端的旁路钩子：尽力投递，失败不影响完成闸门。
type OnboardingCompletedEvent struct {
	ProfileID   string    `json:"profile_id"`
	UserID      string    `json:"user_id"`
	Handle      string    `json:"handle"`
	MFAVerified bool      `json:"mfa_verified"`
	Timestamp   time.Time `json:"timestamp"`
}

// EventPublisher 事件发布者接口，由 outbox 实现
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
	PublishInTx(ctx context.Context, tx any, eventType, key string, payload any) error
}
