package domain

import (
	"context"
	"time"
)

// ProgressSnapshot 本地续传快照
//
// 仅用于会话中断后的恢复，不是事实来源：与档案仓储不一致时以仓储为准。
type ProgressSnapshot struct {
	ProfileID     string         `json:"profile_id"`
	UserID        string         `json:"user_id,omitempty"`
	CompletedStep OnboardingStep `json:"completed_step"`
	StepData      SnapshotData   `json:"step_data"`
	SavedAt       time.Time      `json:"saved_at"`
}

// SnapshotData 快照携带的已填写步骤数据
type SnapshotData struct {
	Profile      *ProfilePayload      `json:"profile,omitempty"`
	Monetization *MonetizationPayload `json:"monetization,omitempty"`
	Media        *MediaPayload        `json:"media,omitempty"`
}

// ProgressRepository 续传快照仓储接口（仅实现 Redis 版本）
//
// key 为会话归属键：常规流程用 userID，受邀流程用 invite token。
type ProgressRepository interface {
	Save(ctx context.Context, key string, snapshot *ProgressSnapshot) error
	Load(ctx context.Context, key string) (*ProgressSnapshot, error)
	Clear(ctx context.Context, key string) error
}
