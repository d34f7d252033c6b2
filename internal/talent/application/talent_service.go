package application

import (
	"context"

	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/talentmarket/internal/talent/domain"
)

// TalentService 伴生元数据应用服务
type TalentService struct {
	repo domain.TalentRepository
}

// NewTalentService 创建伴生元数据服务
func NewTalentService(repo domain.TalentRepository) *TalentService {
	return &TalentService{repo: repo}
}

// UpsertContact 按 userId 幂等写入伴生记录
func (s *TalentService) UpsertContact(ctx context.Context, userID, role, displayName, email, phone string) error {
	contact := &domain.TalentContact{
		UserID:      userID,
		Role:        role,
		DisplayName: displayName,
		Email:       email,
		Phone:       phone,
	}
	if err := s.repo.UpsertByUserID(ctx, contact); err != nil {
		logging.Error(ctx, "failed to upsert talent contact", "user_id", userID, "error", err)
		return err
	}
	return nil
}

// GetContact 按 userId 查询伴生记录
func (s *TalentService) GetContact(ctx context.Context, userID string) (*domain.TalentContact, error) {
	return s.repo.GetByUserID(ctx, userID)
}
