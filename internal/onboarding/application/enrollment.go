package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wyfcoding/pkg/logging"
	identityapp "github.com/wyfcoding/talentmarket/internal/identity/application"
	identitydomain "github.com/wyfcoding/talentmarket/internal/identity/domain"
	"github.com/wyfcoding/talentmarket/internal/onboarding/domain"
)

// EnrollmentView 登记状态视图
//
// Secret 与二维码负载只在 qr-display/verify 阶段透出，除此之外不外泄。
type EnrollmentView struct {
	Phase             domain.EnrollmentPhase    `json:"phase"`
	Strategy          domain.EnrollmentStrategy `json:"strategy,omitempty"`
	FactorID          string                    `json:"factor_id,omitempty"`
	Secret            string                    `json:"secret,omitempty"`
	QRPayload         string                    `json:"qr_payload,omitempty"`
	ResendAvailableAt time.Time                 `json:"resend_available_at"`
}

// EnrollmentEngine MFA 登记引擎
//
// 登记状态只存在于内存（敏感种子材料永不落盘）；进程重启后安全步骤从
// intro 重新开始，已验证因子的预检会直接短路到完成。
// 同一档案的并发请求（多标签页）在会话级互斥上串行执行。
type EnrollmentEngine struct {
	identity   IdentityCommands
	identityQ  IdentityQueries
	profiles   domain.ProfileRepository
	gate       CompletionGate
	requireMFA bool

	mu       sync.Mutex
	sessions map[string]*enrollmentSession
}

// enrollmentSession 单个档案的登记会话
//
// mu 覆盖状态机转换与视图构造的全程，保证两个标签页同时操作时
// 阶段与材料字段不会交错写入。
type enrollmentSession struct {
	mu         sync.Mutex
	enrollment *domain.MFAEnrollment
}

// NewEnrollmentEngine 创建登记引擎
func NewEnrollmentEngine(
	identity IdentityCommands,
	identityQ IdentityQueries,
	profiles domain.ProfileRepository,
	gate CompletionGate,
	requireMFA bool,
) *EnrollmentEngine {
	return &EnrollmentEngine{
		identity:   identity,
		identityQ:  identityQ,
		profiles:   profiles,
		gate:       gate,
		requireMFA: requireMFA,
		sessions:   make(map[string]*enrollmentSession),
	}
}

// Start 进入安全步骤
//
// 预检既有因子：已有可用因子则零次登记调用直达完成并触发闸门。
func (e *EnrollmentEngine) Start(ctx context.Context, profileID string) (*EnrollmentView, error) {
	profile, err := e.loadProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !profile.CanSubmit(domain.StepSecurity) {
		return nil, &domain.ConflictError{Resource: "step", Reason: "security step not yet reachable"}
	}

	factors, err := e.identityQ.ListFactors(ctx, profile.UserID)
	if err != nil {
		return nil, &domain.TransientRemoteError{Op: "factor listing", Err: err}
	}

	enrollment := domain.NewEnrollment()
	if hasVerifiedFactor(factors) {
		if err := enrollment.Skip(ctx); err != nil {
			return nil, translateEnrollmentError(err)
		}
		if err := e.gate.CompleteOnboarding(ctx, profileID, true); err != nil {
			return nil, err
		}
		return viewOf(enrollment), nil
	}

	e.mu.Lock()
	e.sessions[profileID] = &enrollmentSession{enrollment: enrollment}
	e.mu.Unlock()
	return viewOf(enrollment), nil
}

// Begin intro → method-select
func (e *EnrollmentEngine) Begin(ctx context.Context, profileID string) (*EnrollmentView, error) {
	sess, err := e.session(profileID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	enrollment := sess.enrollment
	if err := enrollment.Begin(ctx); err != nil {
		return nil, translateEnrollmentError(err)
	}
	return viewOf(enrollment), nil
}

// ChooseTOTP 认证器路径：一次远程调用拿到种子并展示二维码
func (e *EnrollmentEngine) ChooseTOTP(ctx context.Context, profileID string) (*EnrollmentView, error) {
	sess, err := e.session(profileID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	enrollment := sess.enrollment
	profile, err := e.loadProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	result, err := e.identity.EnrollFactor(ctx, identityapp.EnrollFactorCommand{
		UserID:   profile.UserID,
		Strategy: identitydomain.StrategyTOTP,
	})
	if err != nil {
		return nil, &domain.TransientRemoteError{Op: "totp enrollment", Err: err}
	}
	if err := enrollment.SelectTOTP(ctx, result.FactorID, result.Secret, result.QRPayload); err != nil {
		return nil, translateEnrollmentError(err)
	}
	return viewOf(enrollment), nil
}

// ChoosePhone method-select → phone-entry
func (e *EnrollmentEngine) ChoosePhone(ctx context.Context, profileID string) (*EnrollmentView, error) {
	sess, err := e.session(profileID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	enrollment := sess.enrollment
	if err := enrollment.SelectPhone(ctx, ""); err != nil {
		return nil, translateEnrollmentError(err)
	}
	return viewOf(enrollment), nil
}

// SubmitPhone 短信路径两次调用：先登记因子，再下发验证码
//
// 短信网关未配置时自动回退到策略选择，登记的因子保持不可用并被清理。
func (e *EnrollmentEngine) SubmitPhone(ctx context.Context, profileID, phoneNumber string) (*EnrollmentView, error) {
	sess, err := e.session(profileID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	enrollment := sess.enrollment
	if enrollment.Phase != domain.PhasePhoneEntry {
		return nil, &domain.ConflictError{Resource: "enrollment", Reason: "not awaiting phone entry"}
	}
	profile, err := e.loadProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	result, err := e.identity.EnrollFactor(ctx, identityapp.EnrollFactorCommand{
		UserID:      profile.UserID,
		Strategy:    identitydomain.StrategyPhone,
		PhoneNumber: phoneNumber,
	})
	if err != nil {
		return nil, &domain.TransientRemoteError{Op: "phone enrollment", Err: err}
	}

	if err := e.identity.ChallengeFactor(ctx, result.FactorID); err != nil {
		if errors.Is(err, identitydomain.ErrSMSUnavailable) {
			e.discardFactor(ctx, result.FactorID)
			if fbErr := enrollment.Fallback(ctx); fbErr != nil {
				return nil, translateEnrollmentError(fbErr)
			}
			return viewOf(enrollment), &domain.ConfigurationError{Component: "sms gateway", Reason: "sms delivery is not configured"}
		}
		return nil, &domain.TransientRemoteError{Op: "sms challenge", Err: err}
	}

	if err := enrollment.Challenged(ctx, result.FactorID, time.Now()); err != nil {
		return nil, translateEnrollmentError(err)
	}
	enrollment.PhoneNumber = phoneNumber
	return viewOf(enrollment), nil
}

// Proceed qr-display → verify，用户确认已扫码
func (e *EnrollmentEngine) Proceed(ctx context.Context, profileID string) (*EnrollmentView, error) {
	sess, err := e.session(profileID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	enrollment := sess.enrollment
	if err := enrollment.Proceed(ctx); err != nil {
		return nil, translateEnrollmentError(err)
	}
	return viewOf(enrollment), nil
}

// Resend 重发短信验证码；冷却是建议性的，只拦重复点击
func (e *EnrollmentEngine) Resend(ctx context.Context, profileID string) (*EnrollmentView, error) {
	sess, err := e.session(profileID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	enrollment := sess.enrollment
	if enrollment.Strategy != domain.StrategyPhone || enrollment.FactorID == "" {
		return nil, &domain.ConflictError{Resource: "enrollment", Reason: "no sms challenge to resend"}
	}
	now := time.Now()
	if !enrollment.CanResend(now) {
		return nil, &domain.ConflictError{Resource: "enrollment", Reason: "resend cooldown is active"}
	}

	if err := e.identity.ChallengeFactor(ctx, enrollment.FactorID); err != nil {
		if errors.Is(err, identitydomain.ErrSMSUnavailable) {
			return nil, &domain.ConfigurationError{Component: "sms gateway", Reason: "sms delivery is not configured"}
		}
		return nil, &domain.TransientRemoteError{Op: "sms challenge", Err: err}
	}
	enrollment.MarkResent(now)
	return viewOf(enrollment), nil
}

// Verify 校验验证码；只有成功才触发完成闸门
func (e *EnrollmentEngine) Verify(ctx context.Context, profileID, code string) (*EnrollmentView, error) {
	sess, err := e.session(profileID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	enrollment := sess.enrollment
	if enrollment.Phase != domain.PhaseVerify {
		return nil, &domain.ConflictError{Resource: "enrollment", Reason: "not awaiting verification"}
	}

	if err := e.identity.VerifyFactor(ctx, enrollment.FactorID, code); err != nil {
		if errors.Is(err, identitydomain.ErrInvalidCode) {
			return nil, &domain.ValidationError{Field: "code", Reason: "verification code is invalid or expired"}
		}
		return nil, &domain.TransientRemoteError{Op: "factor verification", Err: err}
	}

	if err := enrollment.Verified(ctx); err != nil {
		return nil, translateEnrollmentError(err)
	}
	if err := e.gate.CompleteOnboarding(ctx, profileID, true); err != nil {
		return nil, err
	}
	e.drop(profileID)
	return viewOf(enrollment), nil
}

// Switch 换一种策略重来；未验证的半成品因子一并清理
func (e *EnrollmentEngine) Switch(ctx context.Context, profileID string) (*EnrollmentView, error) {
	return e.backToMethodSelect(ctx, profileID, func(en *domain.MFAEnrollment) error {
		return en.Switch(ctx)
	})
}

// Cancel 放弃当前录入回到策略选择
func (e *EnrollmentEngine) Cancel(ctx context.Context, profileID string) (*EnrollmentView, error) {
	return e.backToMethodSelect(ctx, profileID, func(en *domain.MFAEnrollment) error {
		return en.Cancel(ctx)
	})
}

// Skip 显式跳过安全步骤；策略要求 MFA 时拒绝
func (e *EnrollmentEngine) Skip(ctx context.Context, profileID string) (*EnrollmentView, error) {
	if e.requireMFA {
		return nil, &domain.ConflictError{Resource: "mfa", Reason: "two-factor enrollment is required by policy"}
	}
	sess, err := e.session(profileID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	enrollment := sess.enrollment
	if enrollment.FactorID != "" {
		e.discardFactor(ctx, enrollment.FactorID)
	}
	if err := enrollment.Skip(ctx); err != nil {
		return nil, translateEnrollmentError(err)
	}
	if err := e.gate.CompleteOnboarding(ctx, profileID, false); err != nil {
		return nil, err
	}
	e.drop(profileID)
	return viewOf(enrollment), nil
}

// State 当前登记状态视图
func (e *EnrollmentEngine) State(ctx context.Context, profileID string) (*EnrollmentView, error) {
	sess, err := e.session(profileID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	enrollment := sess.enrollment
	return viewOf(enrollment), nil
}

func (e *EnrollmentEngine) backToMethodSelect(ctx context.Context, profileID string, transition func(*domain.MFAEnrollment) error) (*EnrollmentView, error) {
	sess, err := e.session(profileID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	enrollment := sess.enrollment
	if enrollment.FactorID != "" {
		// 放弃即清理：不留下半验证状态的因子
		e.discardFactor(ctx, enrollment.FactorID)
	}
	if err := transition(enrollment); err != nil {
		return nil, translateEnrollmentError(err)
	}
	return viewOf(enrollment), nil
}

func (e *EnrollmentEngine) session(profileID string) (*enrollmentSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.sessions[profileID]
	if !ok {
		return nil, &domain.ConflictError{Resource: "enrollment", Reason: "security step not started"}
	}
	return sess, nil
}

func (e *EnrollmentEngine) drop(profileID string) {
	e.mu.Lock()
	delete(e.sessions, profileID)
	e.mu.Unlock()
}

func (e *EnrollmentEngine) discardFactor(ctx context.Context, factorID string) {
	if err := e.identity.UnenrollFactor(ctx, factorID); err != nil {
		logging.Warn(ctx, "failed to discard pending factor", "factor_id", factorID, "error", err)
	}
}

func (e *EnrollmentEngine) loadProfile(ctx context.Context, profileID string) (*domain.OnboardingProfile, error) {
	profile, err := e.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, &domain.TransientRemoteError{Op: "profile lookup", Err: err}
	}
	if profile == nil {
		return nil, domain.ErrProfileNotFound
	}
	if profile.UserID == "" {
		return nil, &domain.ConflictError{Resource: "enrollment", Reason: "profile has no bound identity"}
	}
	return profile, nil
}

func hasVerifiedFactor(factors []*identitydomain.Factor) bool {
	for _, f := range factors {
		if f.Verified {
			return true
		}
	}
	return false
}

func viewOf(e *domain.MFAEnrollment) *EnrollmentView {
	view := &EnrollmentView{
		Phase:             e.Phase,
		Strategy:          e.Strategy,
		FactorID:          e.FactorID,
		ResendAvailableAt: e.ResendAvailableAt,
	}
	if e.Phase == domain.PhaseQRDisplay || (e.Phase == domain.PhaseVerify && e.Strategy == domain.StrategyTOTP) {
		view.Secret = e.Secret
		view.QRPayload = e.QRPayload
	}
	return view
}

func translateEnrollmentError(err error) error {
	return &domain.ConflictError{Resource: "enrollment", Reason: err.Error()}
}
