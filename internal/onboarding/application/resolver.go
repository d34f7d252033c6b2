package application

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/logging"
	identityapp "github.com/wyfcoding/talentmarket/internal/identity/application"
	identitydomain "github.com/wyfcoding/talentmarket/internal/identity/domain"
	"github.com/wyfcoding/talentmarket/internal/onboarding/domain"
)

// ResolutionOutcome 账户解析的具名结果
//
// 每个分支都是面向用户的结果而非笼统异常：前端要能区分"去确认邮件"、
// "密码不对请登录"、"已经入驻过了"。
type ResolutionOutcome string

const (
	OutcomeCreated             ResolutionOutcome = "CREATED"              // 新建身份 + 新档案
	OutcomeLinked              ResolutionOutcome = "LINKED"               // 透明重登录，新档案
	OutcomeResumed             ResolutionOutcome = "RESUMED"              // 既有未完成档案
	OutcomeAlreadyOnboarded    ResolutionOutcome = "ALREADY_ONBOARDED"    // 已完成，去登录后台
	OutcomePendingConfirmation ResolutionOutcome = "PENDING_CONFIRMATION" // 等待邮件确认
)

// StartOnboardingCommand 入驻起始命令
type StartOnboardingCommand struct {
	Email       string
	Password    string
	DisplayName string
	InviteToken string
}

// Resolution 账户解析结果
type Resolution struct {
	Outcome      ResolutionOutcome     `json:"outcome"`
	UserID       string                `json:"user_id"`
	ProfileID    string                `json:"profile_id,omitempty"`
	EntryStep    domain.OnboardingStep `json:"entry_step"`
	SessionToken string                `json:"session_token,omitempty"`
}

// AccountResolver 账户解析器
//
// 把原始注册输入解析成绑定的 (userId, profileId)。身份创建撞上已注册
// 时用同一凭证尝试登录（透明衔接路径）。
type AccountResolver struct {
	identity IdentityCommands
	talent   TalentRecorder
	profiles domain.ProfileRepository
}

// NewAccountResolver 创建账户解析器
func NewAccountResolver(identity IdentityCommands, talent TalentRecorder, profiles domain.ProfileRepository) *AccountResolver {
	return &AccountResolver{identity: identity, talent: talent, profiles: profiles}
}

// ResolveOrCreate 解析或创建账户并绑定入驻档案
func (r *AccountResolver) ResolveOrCreate(ctx context.Context, cmd StartOnboardingCommand) (*Resolution, error) {
	account, signedIn, err := r.resolveIdentity(ctx, cmd)
	if err != nil {
		return nil, err
	}

	// 伴生记录按 userId upsert，失败不阻断入驻
	if upsertErr := r.talent.UpsertContact(ctx, account.UserID, "talent", cmd.DisplayName, cmd.Email, ""); upsertErr != nil {
		logging.Warn(ctx, "failed to upsert talent contact", "user_id", account.UserID, "error", upsertErr)
	}

	if account.Session == nil {
		// 需邮件确认：账户已建但解析暂停，身份步骤不得推进
		return &Resolution{
			Outcome:   OutcomePendingConfirmation,
			UserID:    account.UserID,
			EntryStep: domain.StepIdentity,
		}, nil
	}

	profile, existed, err := r.bindProfile(ctx, account.UserID, cmd.InviteToken)
	if err != nil {
		return nil, err
	}

	resolution := &Resolution{
		UserID:       account.UserID,
		ProfileID:    profile.ID,
		SessionToken: account.Session.Token,
	}

	switch {
	case profile.OnboardingCompleted:
		resolution.Outcome = OutcomeAlreadyOnboarded
		resolution.EntryStep = domain.FinalStep
	case existed:
		resolution.Outcome = OutcomeResumed
		resolution.EntryStep = nextEntryStep(profile.CompletedStep)
	case signedIn:
		resolution.Outcome = OutcomeLinked
		resolution.EntryStep = domain.StepProfile
	default:
		resolution.Outcome = OutcomeCreated
		resolution.EntryStep = domain.StepProfile
	}
	return resolution, nil
}

// resolveIdentity 身份创建；已注册则用同一凭证透明登录
func (r *AccountResolver) resolveIdentity(ctx context.Context, cmd StartOnboardingCommand) (account *identityapp.AccountResult, signedIn bool, err error) {
	account, err = r.identity.CreateAccount(ctx, identityapp.CreateAccountCommand{
		Email:    cmd.Email,
		Password: cmd.Password,
	})
	switch {
	case err == nil:
		return account, false, nil

	case errors.Is(err, identitydomain.ErrConfirmationPending):
		return account, false, nil

	case errors.Is(err, identitydomain.ErrAlreadyRegistered):
		account, err = r.identity.SignIn(ctx, identityapp.SignInCommand{
			Email:    cmd.Email,
			Password: cmd.Password,
		})
		if err != nil {
			// 密码不对或邮箱未确认：原样透出，前端提示"改为登录"
			if errors.Is(err, identitydomain.ErrInvalidCredentials) || errors.Is(err, identitydomain.ErrConfirmationPending) {
				return nil, false, err
			}
			return nil, false, &domain.TransientRemoteError{Op: "identity sign-in", Err: err}
		}
		return account, true, nil

	default:
		return nil, false, &domain.TransientRemoteError{Op: "identity create", Err: err}
	}
}

// bindProfile 定位或创建档案并绑定 userId；existed 表示复用了既有档案
func (r *AccountResolver) bindProfile(ctx context.Context, userID, inviteToken string) (*domain.OnboardingProfile, bool, error) {
	if inviteToken != "" {
		return r.claimInvitedProfile(ctx, userID, inviteToken)
	}

	profile, err := r.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, false, &domain.TransientRemoteError{Op: "profile lookup", Err: err}
	}
	if profile != nil {
		if profile.UserID != userID {
			return nil, false, &domain.FatalBindingError{UserID: userID, ProfileID: profile.ID, Reason: "profile is bound to a different identity"}
		}
		return profile, true, nil
	}

	profile = domain.NewProfile(userID)
	profile.MarkStepCompleted(domain.StepIdentity)
	if err := r.profiles.Save(ctx, profile); err != nil {
		return nil, false, translateBindError(err, userID, profile.ID)
	}
	return profile, false, nil
}

// claimInvitedProfile 受邀流程：凭 token 认领管理端预创建的档案
func (r *AccountResolver) claimInvitedProfile(ctx context.Context, userID, inviteToken string) (*domain.OnboardingProfile, bool, error) {
	profile, err := r.profiles.GetByInviteToken(ctx, inviteToken)
	if err != nil {
		return nil, false, &domain.TransientRemoteError{Op: "invite lookup", Err: err}
	}
	if profile == nil {
		return nil, false, &domain.ValidationError{Field: "invite_token", Reason: "unknown or revoked invite"}
	}
	if profile.UserID != "" && profile.UserID != userID {
		return nil, false, &domain.FatalBindingError{UserID: userID, ProfileID: profile.ID, Reason: "invite already claimed by a different identity"}
	}

	if profile.UserID == userID {
		return profile, true, nil
	}

	profile.UserID = userID
	profile.MarkStepCompleted(domain.StepIdentity)
	if err := r.profiles.Save(ctx, profile); err != nil {
		return nil, false, translateBindError(err, userID, profile.ID)
	}
	return profile, false, nil
}

func translateBindError(err error, userID, profileID string) error {
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		// user_id 唯一约束命中：同一身份并发绑定了另一份档案
		return &domain.FatalBindingError{UserID: userID, ProfileID: profileID, Reason: conflict.Reason}
	}
	return &domain.TransientRemoteError{Op: "profile store", Err: err}
}
