package messaging

import (
	"context"
	"fmt"

	"github.com/wyfcoding/pkg/messagequeue/outbox"
	"github.com/wyfcoding/talentmarket/internal/onboarding/domain"
	"gorm.io/gorm"
)

// outboxPublisher 领域事件经 Outbox 表落库，由后台处理器异步推送到 Kafka
type outboxPublisher struct {
	manager *outbox.Manager
}

// NewOutboxPublisher 创建 Outbox 事件发布者
func NewOutboxPublisher(manager *outbox.Manager) domain.EventPublisher {
	return &outboxPublisher{manager: manager}
}

// Publish 事务外发布，走 Manager 自带的连接
func (p *outboxPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	return p.PublishInTx(ctx, p.manager.DB(), eventType, key, payload)
}

// PublishInTx 事件记录随业务事务一起提交，保证写库与发事件的原子性
func (p *outboxPublisher) PublishInTx(ctx context.Context, tx any, eventType, key string, payload any) error {
	gormTx, ok := tx.(*gorm.DB)
	if !ok {
		return fmt.Errorf("outbox publish expects a *gorm.DB tx, got %T", tx)
	}
	return p.manager.PublishInTx(ctx, gormTx, eventType, key, payload)
}
