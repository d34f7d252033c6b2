package domain

import (
	"context"
	"errors"
)

// ErrHandleTaken 档案写入命中 handle 唯一约束
var ErrHandleTaken = errors.New("handle already taken")

// ErrProfileNotFound 档案不存在
var ErrProfileNotFound = errors.New("onboarding profile not found")

// ProfileRepository 入驻档案仓储接口
//
// Save 是按 ProfileID 幂等的 upsert；handle 唯一冲突返回 ErrHandleTaken，
// 由应用层转成 ConflictError。
type ProfileRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	Save(ctx context.Context, profile *OnboardingProfile) error
	GetByID(ctx context.Context, id string) (*OnboardingProfile, error)
	GetByUserID(ctx context.Context, userID string) (*OnboardingProfile, error)
	GetByInviteToken(ctx context.Context, token string) (*OnboardingProfile, error)
	HandleExists(ctx context.Context, handle, excludeProfileID string) (bool, error)
}

// MediaStore 介绍媒体上传端口（存储内部实现不在本子系统范围内）
type MediaStore interface {
	Upload(ctx context.Context, fileName string, content []byte, ownerID string) (string, error)
}
