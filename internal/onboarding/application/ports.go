package application

import (
	"context"

	identityapp "github.com/wyfcoding/talentmarket/internal/identity/application"
	identitydomain "github.com/wyfcoding/talentmarket/internal/identity/domain"
)

// IdentityCommands 身份存储命令端口，由 identity 上下文的命令服务实现
type IdentityCommands interface {
	CreateAccount(ctx context.Context, cmd identityapp.CreateAccountCommand) (*identityapp.AccountResult, error)
	SignIn(ctx context.Context, cmd identityapp.SignInCommand) (*identityapp.AccountResult, error)
	EnrollFactor(ctx context.Context, cmd identityapp.EnrollFactorCommand) (*identityapp.EnrollResult, error)
	ChallengeFactor(ctx context.Context, factorID string) error
	VerifyFactor(ctx context.Context, factorID, code string) error
	UnenrollFactor(ctx context.Context, factorID string) error
}

// IdentityQueries 身份存储查询端口
type IdentityQueries interface {
	ListFactors(ctx context.Context, userID string) ([]*identitydomain.Factor, error)
}

// TalentRecorder 伴生元数据端口，按 userId 幂等写入
type TalentRecorder interface {
	UpsertContact(ctx context.Context, userID, role, displayName, email, phone string) error
}

// CompletionGate 完成闸门端口；登记引擎在安全步骤收口时调用
type CompletionGate interface {
	CompleteOnboarding(ctx context.Context, profileID string, mfaVerified bool) error
}
