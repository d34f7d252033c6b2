package application

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/talentmarket/internal/onboarding/domain"
)

// SubmitStepCommand 步骤提交命令
type SubmitStepCommand struct {
	ProfileID string
	Step      domain.OnboardingStep
	Payload   domain.StepPayload
}

// SubmitResult 步骤提交结果
type SubmitResult struct {
	ProfileID     string                `json:"profile_id"`
	CompletedStep domain.OnboardingStep `json:"completed_step"`
	NextStep      domain.OnboardingStep `json:"next_step"`
}

// StepView 回退导航返回的已持久化步骤数据
type StepView struct {
	Step          domain.OnboardingStep       `json:"step"`
	CompletedStep domain.OnboardingStep       `json:"completed_step"`
	Profile       *domain.ProfilePayload      `json:"profile,omitempty"`
	Monetization  *domain.MonetizationPayload `json:"monetization,omitempty"`
	Media         *domain.MediaPayload        `json:"media,omitempty"`
}

// ResumeResult 恢复结果；EntryStep 为恢复后应展示的步骤
type ResumeResult struct {
	ProfileID     string                `json:"profile_id"`
	UserID        string                `json:"user_id,omitempty"`
	CompletedStep domain.OnboardingStep `json:"completed_step"`
	EntryStep     domain.OnboardingStep `json:"entry_step"`
	Completed     bool                  `json:"completed"`
	Hydration     *domain.SnapshotData  `json:"hydration,omitempty"`
}

// StepOrchestrator 步骤编排器
//
// 持有进度标记的唯一事实来源（档案仓储），进度缓存只是续传提示。
type StepOrchestrator struct {
	profiles  domain.ProfileRepository
	progress  domain.ProgressRepository
	media     domain.MediaStore
	checker   *HandleChecker
	publisher domain.EventPublisher

	minPrice decimal.Decimal
}

// NewStepOrchestrator 创建步骤编排器
func NewStepOrchestrator(
	profiles domain.ProfileRepository,
	progress domain.ProgressRepository,
	media domain.MediaStore,
	checker *HandleChecker,
	publisher domain.EventPublisher,
	minPrice decimal.Decimal,
) *StepOrchestrator {
	return &StepOrchestrator{
		profiles:  profiles,
		progress:  progress,
		media:     media,
		checker:   checker,
		publisher: publisher,
		minPrice:  minPrice,
	}
}

// SubmitStep 校验并持久化一个步骤的提交
//
// 守卫顺序：负载校验 → 步序守卫 → handle 可用性 → 落库。handle 的写时
// 唯一冲突转为用户可修正的 ConflictError，不是致命错误。
func (o *StepOrchestrator) SubmitStep(ctx context.Context, cmd SubmitStepCommand) (*SubmitResult, error) {
	profile, err := o.loadProfile(ctx, cmd.ProfileID)
	if err != nil {
		return nil, err
	}
	if profile.OnboardingCompleted {
		return nil, &domain.ConflictError{Resource: "onboarding", Reason: "already completed"}
	}
	if !profile.CanSubmit(cmd.Step) {
		return nil, &domain.ConflictError{Resource: "step", Reason: "submitted out of order"}
	}

	switch cmd.Step {
	case domain.StepIdentity:
		// 身份步骤由账户解析器处理，不走步骤提交
		return nil, &domain.ValidationError{Field: "step", Reason: "identity step is completed through account resolution"}
	case domain.StepProfile:
		if err := o.applyProfileStep(ctx, profile, cmd.Payload.Profile); err != nil {
			return nil, err
		}
	case domain.StepMonetization:
		if err := applyMonetizationStep(profile, cmd.Payload.Monetization, o.minPrice); err != nil {
			return nil, err
		}
	case domain.StepMedia:
		if err := applyMediaStep(profile, cmd.Payload.Media); err != nil {
			return nil, err
		}
	case domain.StepSecurity:
		// 安全步骤经登记引擎收口，完成闸门负责落库
		return nil, &domain.ValidationError{Field: "step", Reason: "security step is completed through mfa enrollment"}
	default:
		return nil, &domain.ValidationError{Field: "step", Reason: "unknown step"}
	}

	profile.MarkStepCompleted(cmd.Step)
	if err := o.persistProfile(ctx, profile, cmd.Step); err != nil {
		return nil, err
	}

	// 快照只在落库成功后写入；失败不影响已确认的提交
	o.saveSnapshot(ctx, profile)

	next := cmd.Step + 1
	if next > domain.FinalStep {
		next = domain.FinalStep
	}
	return &SubmitResult{ProfileID: profile.ID, CompletedStep: profile.CompletedStep, NextStep: next}, nil
}

// GetStep 回退导航：返回任一 step ≤ completedStep+1 的已持久化数据
func (o *StepOrchestrator) GetStep(ctx context.Context, profileID string, step domain.OnboardingStep) (*StepView, error) {
	profile, err := o.loadProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !profile.CanView(step) {
		return nil, &domain.ConflictError{Resource: "step", Reason: "step not yet reachable"}
	}

	view := &StepView{Step: step, CompletedStep: profile.CompletedStep}
	switch step {
	case domain.StepProfile:
		view.Profile = &domain.ProfilePayload{
			Handle:      profile.Handle,
			DisplayName: profile.DisplayName,
			Bio:         profile.Bio,
			Categories:  profile.Categories,
		}
	case domain.StepMonetization:
		view.Monetization = &domain.MonetizationPayload{
			Enabled:  profile.MonetizationEnabled,
			Price:    profile.Price,
			Currency: profile.Currency,
		}
	case domain.StepMedia:
		view.Media = &domain.MediaPayload{URL: profile.IntroMediaURL}
	}
	return view, nil
}

// Resume 恢复中断的入驻会话
//
// key 为 userID 或受邀 token。快照只提示表单水合；进度以档案仓储为准，
// 仓储更靠前时覆盖缓存。
func (o *StepOrchestrator) Resume(ctx context.Context, key string) (*ResumeResult, error) {
	snapshot, err := o.progress.Load(ctx, key)
	if err != nil {
		logging.Warn(ctx, "failed to load progress snapshot", "key", key, "error", err)
		snapshot = nil
	}

	profile, err := o.profiles.GetByUserID(ctx, key)
	if err != nil {
		return nil, &domain.TransientRemoteError{Op: "profile lookup", Err: err}
	}
	if profile == nil {
		profile, err = o.profiles.GetByInviteToken(ctx, key)
		if err != nil {
			return nil, &domain.TransientRemoteError{Op: "profile lookup", Err: err}
		}
	}
	if profile == nil {
		return nil, domain.ErrProfileNotFound
	}

	if profile.OnboardingCompleted {
		return &ResumeResult{
			ProfileID:     profile.ID,
			UserID:        profile.UserID,
			CompletedStep: profile.CompletedStep,
			EntryStep:     domain.FinalStep,
			Completed:     true,
		}, nil
	}

	result := &ResumeResult{
		ProfileID:     profile.ID,
		UserID:        profile.UserID,
		CompletedStep: profile.CompletedStep,
		EntryStep:     nextEntryStep(profile.CompletedStep),
	}

	if snapshot != nil && snapshot.ProfileID == profile.ID {
		if profile.CompletedStep > snapshot.CompletedStep {
			// 另一端推进得更远：仓储获胜，覆盖过期缓存
			o.saveSnapshot(ctx, profile)
		} else {
			result.Hydration = &snapshot.StepData
		}
	}
	return result, nil
}

// UploadIntroMedia 上传介绍媒体并返回公开地址；地址随媒体步骤提交落库
func (o *StepOrchestrator) UploadIntroMedia(ctx context.Context, profileID, fileName string, content []byte) (string, error) {
	profile, err := o.loadProfile(ctx, profileID)
	if err != nil {
		return "", err
	}
	if profile.OnboardingCompleted {
		return "", &domain.ConflictError{Resource: "onboarding", Reason: "already completed"}
	}
	if !profile.CanView(domain.StepMedia) {
		return "", &domain.ConflictError{Resource: "step", Reason: "media step not yet reachable"}
	}

	url, err := o.media.Upload(ctx, fileName, content, profile.ID)
	if err != nil {
		return "", &domain.TransientRemoteError{Op: "media upload", Err: err}
	}
	return url, nil
}

// CompleteOnboarding 完成闸门
//
// onboardingCompleted 单向翻转，isActive 不写；快照清理与管理端通知均为
// 旁路动作，失败不回滚闸门。
func (o *StepOrchestrator) CompleteOnboarding(ctx context.Context, profileID string, mfaVerified bool) error {
	profile, err := o.loadProfile(ctx, profileID)
	if err != nil {
		return err
	}
	if profile.OnboardingCompleted {
		return nil
	}
	if profile.CompletedStep < domain.StepMedia {
		return &domain.ConflictError{Resource: "onboarding", Reason: "earlier steps are not complete"}
	}

	profile.Complete()
	if err := o.profiles.Save(ctx, profile); err != nil {
		return &domain.TransientRemoteError{Op: "profile store", Err: err}
	}

	if key := snapshotKey(profile); key != "" {
		if err := o.progress.Clear(ctx, key); err != nil {
			logging.Warn(ctx, "failed to clear progress snapshot", "profile_id", profile.ID, "error", err)
		}
	}

	if o.publisher != nil {
		event := domain.OnboardingCompletedEvent{
			ProfileID:   profile.ID,
			UserID:      profile.UserID,
			Handle:      profile.Handle,
			MFAVerified: mfaVerified,
			Timestamp:   time.Now(),
		}
		if err := o.publisher.Publish(ctx, domain.OnboardingCompletedEventType, profile.ID, event); err != nil {
			// 尽力通知，失败不影响完成闸门
			logging.Warn(ctx, "failed to publish onboarding completed event", "profile_id", profile.ID, "error", err)
		}
	}
	return nil
}

func (o *StepOrchestrator) applyProfileStep(ctx context.Context, profile *domain.OnboardingProfile, payload *domain.ProfilePayload) error {
	if payload == nil {
		return &domain.ValidationError{Field: "profile", Reason: "payload is required"}
	}
	if err := payload.Validate(); err != nil {
		return err
	}

	handle := domain.CanonicalHandle(payload.Handle)
	if handle != profile.Handle {
		status, err := o.checker.Check(ctx, handle, profile.ID)
		if err != nil {
			return err
		}
		if status == HandleTaken {
			return &domain.ConflictError{Resource: "handle", Reason: "already taken"}
		}
	}

	profile.Handle = handle
	profile.DisplayName = payload.DisplayName
	profile.Bio = payload.Bio
	profile.Categories = payload.Categories
	return nil
}

func applyMonetizationStep(profile *domain.OnboardingProfile, payload *domain.MonetizationPayload, minPrice decimal.Decimal) error {
	if payload == nil {
		return &domain.ValidationError{Field: "monetization", Reason: "payload is required"}
	}
	if err := payload.Validate(minPrice); err != nil {
		return err
	}

	profile.MonetizationEnabled = payload.Enabled
	if payload.Enabled {
		profile.Price = payload.Price
		profile.Currency = payload.Currency
	}
	return nil
}

func applyMediaStep(profile *domain.OnboardingProfile, payload *domain.MediaPayload) error {
	if payload == nil {
		return &domain.ValidationError{Field: "media", Reason: "payload is required"}
	}
	if err := payload.Validate(); err != nil {
		return err
	}
	profile.IntroMediaURL = payload.URL
	return nil
}

func (o *StepOrchestrator) loadProfile(ctx context.Context, profileID string) (*domain.OnboardingProfile, error) {
	profile, err := o.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, &domain.TransientRemoteError{Op: "profile lookup", Err: err}
	}
	if profile == nil {
		return nil, domain.ErrProfileNotFound
	}
	return profile, nil
}

func (o *StepOrchestrator) persistProfile(ctx context.Context, profile *domain.OnboardingProfile, step domain.OnboardingStep) error {
	err := o.profiles.WithTx(ctx, func(txCtx context.Context) error {
		if err := o.profiles.Save(txCtx, profile); err != nil {
			return err
		}
		if o.publisher == nil {
			return nil
		}
		event := domain.StepCompletedEvent{
			ProfileID: profile.ID,
			UserID:    profile.UserID,
			Step:      step,
			Timestamp: time.Now(),
		}
		return o.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.StepCompletedEventType, profile.ID, event)
	})
	if err != nil {
		if errors.Is(err, domain.ErrHandleTaken) {
			// 与并发注册竞争：写时唯一约束命中，用户可换个 handle 重试
			return &domain.ConflictError{Resource: "handle", Reason: "already taken"}
		}
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			return conflict
		}
		return &domain.TransientRemoteError{Op: "profile store", Err: err}
	}
	return nil
}

func (o *StepOrchestrator) saveSnapshot(ctx context.Context, profile *domain.OnboardingProfile) {
	key := snapshotKey(profile)
	if key == "" {
		return
	}
	snapshot := &domain.ProgressSnapshot{
		ProfileID:     profile.ID,
		UserID:        profile.UserID,
		CompletedStep: profile.CompletedStep,
		StepData: domain.SnapshotData{
			Profile: &domain.ProfilePayload{
				Handle:      profile.Handle,
				DisplayName: profile.DisplayName,
				Bio:         profile.Bio,
				Categories:  profile.Categories,
			},
			Monetization: &domain.MonetizationPayload{
				Enabled:  profile.MonetizationEnabled,
				Price:    profile.Price,
				Currency: profile.Currency,
			},
			Media: &domain.MediaPayload{URL: profile.IntroMediaURL},
		},
		SavedAt: time.Now(),
	}
	if err := o.progress.Save(ctx, key, snapshot); err != nil {
		logging.Warn(ctx, "failed to save progress snapshot", "profile_id", profile.ID, "error", err)
	}
}

func snapshotKey(profile *domain.OnboardingProfile) string {
	if profile.UserID != "" {
		return profile.UserID
	}
	return profile.InviteToken
}

func nextEntryStep(completed domain.OnboardingStep) domain.OnboardingStep {
	next := completed + 1
	if next > domain.FinalStep {
		next = domain.FinalStep
	}
	if next < domain.StepIdentity {
		next = domain.StepIdentity
	}
	return next
}
