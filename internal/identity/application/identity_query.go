package application

import (
	"context"

	"github.com/wyfcoding/talentmarket/internal/identity/domain"
)

// IdentityQueryService 身份查询服务
type IdentityQueryService struct {
	repo        domain.UserRepository
	factorRepo  domain.FactorRepository
	sessionRepo domain.SessionRepository
}

// NewIdentityQueryService 创建身份查询服务实例
func NewIdentityQueryService(
	repo domain.UserRepository,
	factorRepo domain.FactorRepository,
	sessionRepo domain.SessionRepository,
) *IdentityQueryService {
	return &IdentityQueryService{
		repo:        repo,
		factorRepo:  factorRepo,
		sessionRepo: sessionRepo,
	}
}

// GetUser 根据用户 ID 查询账户
func (s *IdentityQueryService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// ListFactors 列出用户的全部二次认证因子
func (s *IdentityQueryService) ListFactors(ctx context.Context, userID string) ([]*domain.Factor, error) {
	return s.factorRepo.ListByUserID(ctx, userID)
}

// GetSession 根据令牌查询会话；过期视同不存在
func (s *IdentityQueryService) GetSession(ctx context.Context, token string) (*domain.AuthSession, error) {
	session, err := s.sessionRepo.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil || session.IsExpired() {
		return nil, nil
	}
	return session, nil
}
