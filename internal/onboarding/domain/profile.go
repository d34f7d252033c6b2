package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/idgen"
)

// OnboardingStep 入驻步骤编号，顺序固定
type OnboardingStep int

const (
	StepIdentity     OnboardingStep = 1 // 身份创建/绑定
	StepProfile      OnboardingStep = 2 // 公开资料
	StepMonetization OnboardingStep = 3 // 收费策略（可选开关）
	StepMedia        OnboardingStep = 4 // 介绍视频/音频
	StepSecurity     OnboardingStep = 5 // 二次认证登记
)

// FinalStep 最后一个步骤
const FinalStep = StepSecurity

// OnboardingProfile 入驻档案聚合根
//
// ProfileID 由仓储创建后不再变化；UserID 由账户解析器绑定，一个身份至多
// 绑定一个档案；IsActive 只归管理端控制，本子系统永不写入。
type OnboardingProfile struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID      string `json:"user_id,omitempty"`
	InviteToken string `json:"-"`

	Handle      string   `json:"handle"`
	DisplayName string   `json:"display_name"`
	Bio         string   `json:"bio"`
	Categories  []string `json:"categories"`

	MonetizationEnabled bool            `json:"monetization_enabled"`
	Price               decimal.Decimal `json:"price"`
	Currency            string          `json:"currency"`

	IntroMediaURL string `json:"intro_media_url"`

	CompletedStep       OnboardingStep `json:"completed_step"`
	OnboardingCompleted bool           `json:"onboarding_completed"`
	IsActive            bool           `json:"is_active"`
}

// NewProfile 为已绑定身份创建新档案
func NewProfile(userID string) *OnboardingProfile {
	return &OnboardingProfile{
		ID:       fmt.Sprintf("TPRO-%d", idgen.GenID()),
		UserID:   userID,
		Currency: "USD",
		Price:    decimal.Zero,
	}
}

// NewInvitedProfile 管理端预创建的受邀档案，凭 token 而非会话认领
func NewInvitedProfile(inviteToken string) *OnboardingProfile {
	return &OnboardingProfile{
		ID:          fmt.Sprintf("TPRO-%d", idgen.GenID()),
		InviteToken: inviteToken,
		Currency:    "USD",
		Price:       decimal.Zero,
	}
}

// MarkStepCompleted 推进进度标记；completedStep 单调不减
func (p *OnboardingProfile) MarkStepCompleted(step OnboardingStep) {
	if step > p.CompletedStep {
		p.CompletedStep = step
	}
}

// CanSubmit 步骤提交守卫：只允许下一步或对刚完成步骤的幂等重交
func (p *OnboardingProfile) CanSubmit(step OnboardingStep) bool {
	if step < StepIdentity || step > FinalStep {
		return false
	}
	return step == p.CompletedStep+1 || step == p.CompletedStep
}

// CanView 回退导航守卫：允许查看任何不超过 completedStep+1 的步骤
func (p *OnboardingProfile) CanView(step OnboardingStep) bool {
	if step < StepIdentity || step > FinalStep {
		return false
	}
	return step <= p.CompletedStep+1
}

// Complete 完成闸门：onboardingCompleted 单向翻转，IsActive 不变
func (p *OnboardingProfile) Complete() {
	p.OnboardingCompleted = true
	p.MarkStepCompleted(FinalStep)
}
