package messaging

import (
	"context"
	"fmt"

	"github.com/wyfcoding/pkg/messagequeue/outbox"
	"github.com/wyfcoding/talentmarket/internal/identity/domain"
	"gorm.io/gorm"
)

// outboxPublisher 身份事件发布者；事件先落 Outbox 表再异步出站
type outboxPublisher struct {
	manager *outbox.Manager
}

// NewOutboxPublisher 创建身份事件发布者
func NewOutboxPublisher(manager *outbox.Manager) domain.EventPublisher {
	return &outboxPublisher{manager: manager}
}

// Publish 事务外发布；注册、验证等单写场景直接用 Manager 的连接
func (p *outboxPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	return p.PublishInTx(ctx, p.manager.DB(), eventType, key, payload)
}

// PublishInTx 事件随调用方事务提交
func (p *outboxPublisher) PublishInTx(ctx context.Context, tx any, eventType, key string, payload any) error {
	gormTx, ok := tx.(*gorm.DB)
	if !ok {
		return fmt.Errorf("identity events require a *gorm.DB tx, got %T", tx)
	}
	return p.manager.PublishInTx(ctx, gormTx, eventType, key, payload)
}
