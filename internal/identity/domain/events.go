package domain

import (
	"context"
	"time"
)

const (
	// AccountRegisteredEventType 账户注册事件主题
	AccountRegisteredEventType = "identity.account.registered"
	// FactorVerifiedEventType 因子验证通过事件主题
	FactorVerifiedEventType = "identity.factor.verified"
)

// AccountRegisteredEvent 账户注册事件
type AccountRegisteredEvent struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
	Confirmed bool      `json:"confirmed"`
	Timestamp time.Time `json:"timestamp"`
}

// FactorVerifiedEvent 因子验证通过事件
type FactorVerifiedEvent struct {
	UserID    string         `json:"user_id"`
	FactorID  string         `json:"factor_id"`
	Strategy  FactorStrategy `json:"strategy"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventPublisher 事件发布者接口，由 outbox 实现
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
	PublishInTx(ctx context.Context, tx any, eventType, key string, payload any) error
}
