package domain

import (
	"context"
	"time"
)

// TalentContact 身份的伴生元数据记录（角色与联系信息）
//
// 始终按 userId upsert，绝不按邮箱：同一邮箱经登录解析到既有 userId 时，
// 按邮箱写入会造成重复键竞争。
type TalentContact struct {
	ID          uint      `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UserID      string    `json:"user_id"`
	Role        string    `json:"role"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
}

// TalentRepository 伴生记录仓储接口
type TalentRepository interface {
	UpsertByUserID(ctx context.Context, contact *TalentContact) error
	GetByUserID(ctx context.Context, userID string) (*TalentContact, error)
}
