package domain

import (
	"context"
	"time"

	"github.com/wyfcoding/pkg/fsm"
)

// EnrollmentPhase MFA 登记子状态机阶段
type EnrollmentPhase string

const (
	PhaseIntro        EnrollmentPhase = "INTRO"
	PhaseMethodSelect EnrollmentPhase = "METHOD_SELECT"
	PhasePhoneEntry   EnrollmentPhase = "PHONE_ENTRY"
	PhaseQRDisplay    EnrollmentPhase = "QR_DISPLAY"
	PhaseVerify       EnrollmentPhase = "VERIFY"
	PhaseComplete     EnrollmentPhase = "COMPLETE"
)

// EnrollmentStrategy 登记策略
type EnrollmentStrategy string

const (
	StrategyUnset EnrollmentStrategy = ""
	StrategyTOTP  EnrollmentStrategy = "TOTP"
	StrategyPhone EnrollmentStrategy = "PHONE"
)

// resendCooldown 重发验证码的建议冷却时间；仅用于抑制重复点击，非权威限流
const resendCooldown = 30 * time.Second

// MFAEnrollment 安全步骤的瞬态登记状态
//
// SecretMaterial 只在 qr-display/phone-entry/verify 阶段存在，永不落盘。
type MFAEnrollment struct {
	Phase             EnrollmentPhase    `json:"phase"`
	Strategy          EnrollmentStrategy `json:"strategy"`
	FactorID          string             `json:"factor_id,omitempty"`
	PhoneNumber       string             `json:"-"`
	Secret            string             `json:"-"`
	QRPayload         string             `json:"-"`
	ResendAvailableAt time.Time          `json:"resend_available_at"`

	machine *fsm.Machine[string, string]
}

// NewEnrollment 创建处于 intro 阶段的登记状态
func NewEnrollment() *MFAEnrollment {
	e := &MFAEnrollment{Phase: PhaseIntro}
	e.initFSM()
	return e
}

func (e *MFAEnrollment) initFSM() {
	m := fsm.NewMachine[string, string](string(e.Phase))
	m.AddTransition(string(PhaseIntro), "NEXT", string(PhaseMethodSelect))
	m.AddTransition(string(PhaseMethodSelect), "SELECT_PHONE", string(PhasePhoneEntry))
	m.AddTransition(string(PhaseMethodSelect), "SELECT_TOTP", string(PhaseQRDisplay))
	m.AddTransition(string(PhasePhoneEntry), "CHALLENGED", string(PhaseVerify))
	m.AddTransition(string(PhaseQRDisplay), "PROCEED", string(PhaseVerify))
	m.AddTransition(string(PhasePhoneEntry), "CANCEL", string(PhaseMethodSelect))
	m.AddTransition(string(PhaseQRDisplay), "CANCEL", string(PhaseMethodSelect))
	m.AddTransition(string(PhaseVerify), "SWITCH", string(PhaseMethodSelect))
	m.AddTransition(string(PhasePhoneEntry), "FALLBACK", string(PhaseMethodSelect))
	m.AddTransition(string(PhaseVerify), "FALLBACK", string(PhaseMethodSelect))
	m.AddTransition(string(PhaseVerify), "VERIFIED", string(PhaseComplete))
	// 跳过与预检直达完成：无因子也允许（可选流程 / 已有可用因子）
	m.AddTransition(string(PhaseIntro), "SKIP", string(PhaseComplete))
	m.AddTransition(string(PhaseMethodSelect), "SKIP", string(PhaseComplete))
	m.AddTransition(string(PhasePhoneEntry), "SKIP", string(PhaseComplete))
	m.AddTransition(string(PhaseQRDisplay), "SKIP", string(PhaseComplete))
	m.AddTransition(string(PhaseVerify), "SKIP", string(PhaseComplete))
	e.machine = m
}

// InitFSM 确保状态机已初始化
func (e *MFAEnrollment) InitFSM() {
	if e.machine == nil {
		e.initFSM()
	}
}

func (e *MFAEnrollment) trigger(ctx context.Context, event string, next EnrollmentPhase) error {
	e.InitFSM()
	if err := e.machine.Trigger(ctx, event); err != nil {
		return err
	}
	e.Phase = next
	return nil
}

// Begin intro → method-select
func (e *MFAEnrollment) Begin(ctx context.Context) error {
	return e.trigger(ctx, "NEXT", PhaseMethodSelect)
}

// SelectPhone 选择短信策略并记录手机号
func (e *MFAEnrollment) SelectPhone(ctx context.Context, phoneNumber string) error {
	if err := e.trigger(ctx, "SELECT_PHONE", PhasePhoneEntry); err != nil {
		return err
	}
	e.Strategy = StrategyPhone
	e.PhoneNumber = phoneNumber
	return nil
}

// SelectTOTP 选择认证器策略并携带种子材料
func (e *MFAEnrollment) SelectTOTP(ctx context.Context, factorID, secret, qrPayload string) error {
	if err := e.trigger(ctx, "SELECT_TOTP", PhaseQRDisplay); err != nil {
		return err
	}
	e.Strategy = StrategyTOTP
	e.FactorID = factorID
	e.Secret = secret
	e.QRPayload = qrPayload
	return nil
}

// Challenged 短信验证码已下发，进入校验阶段并开启重发冷却
func (e *MFAEnrollment) Challenged(ctx context.Context, factorID string, now time.Time) error {
	if err := e.trigger(ctx, "CHALLENGED", PhaseVerify); err != nil {
		return err
	}
	e.FactorID = factorID
	e.ResendAvailableAt = now.Add(resendCooldown)
	return nil
}

// Proceed qr-display → verify
func (e *MFAEnrollment) Proceed(ctx context.Context) error {
	return e.trigger(ctx, "PROCEED", PhaseVerify)
}

// Cancel 放弃当前录入，回到策略选择；清除未验证因子的敏感材料
func (e *MFAEnrollment) Cancel(ctx context.Context) error {
	if err := e.trigger(ctx, "CANCEL", PhaseMethodSelect); err != nil {
		return err
	}
	e.reset()
	return nil
}

// Switch verify → method-select，允许换一种策略重来
func (e *MFAEnrollment) Switch(ctx context.Context) error {
	if err := e.trigger(ctx, "SWITCH", PhaseMethodSelect); err != nil {
		return err
	}
	e.reset()
	return nil
}

// Fallback 短信网关不可用时的自动回退，不留下可用因子
func (e *MFAEnrollment) Fallback(ctx context.Context) error {
	if err := e.trigger(ctx, "FALLBACK", PhaseMethodSelect); err != nil {
		return err
	}
	e.reset()
	return nil
}

// Verified 校验成功，登记完成
func (e *MFAEnrollment) Verified(ctx context.Context) error {
	if err := e.trigger(ctx, "VERIFIED", PhaseComplete); err != nil {
		return err
	}
	e.Secret = ""
	e.QRPayload = ""
	return nil
}

// Skip 从任意子状态直达完成；仅在策略允许跳过或已有可用因子时由引擎调用
func (e *MFAEnrollment) Skip(ctx context.Context) error {
	if e.Phase == PhaseComplete {
		return nil
	}
	if err := e.trigger(ctx, "SKIP", PhaseComplete); err != nil {
		return err
	}
	e.reset()
	return nil
}

// CanResend 重发冷却是否已过；纯建议性
func (e *MFAEnrollment) CanResend(now time.Time) bool {
	return !now.Before(e.ResendAvailableAt)
}

// MarkResent 重新下发验证码后刷新冷却
func (e *MFAEnrollment) MarkResent(now time.Time) {
	e.ResendAvailableAt = now.Add(resendCooldown)
}

func (e *MFAEnrollment) reset() {
	e.Strategy = StrategyUnset
	e.FactorID = ""
	e.PhoneNumber = ""
	e.Secret = ""
	e.QRPayload = ""
	e.ResendAvailableAt = time.Time{}
}
