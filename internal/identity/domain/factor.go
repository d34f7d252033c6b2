package domain

import (
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/idgen"
)

// FactorStrategy 二次认证因子类型
type FactorStrategy string

const (
	StrategyTOTP  FactorStrategy = "TOTP"  // 认证器应用
	StrategyPhone FactorStrategy = "PHONE" // 短信验证码
)

// challengeTTL 短信验证码有效期
const challengeTTL = 5 * time.Minute

// Factor 二次认证因子实体
//
// 只有 Verify 成功才会将 Verified 置位；中途放弃的因子保持不可用状态。
type Factor struct {
	ID                 string         `json:"id"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	UserID             string         `json:"user_id"`
	Strategy           FactorStrategy `json:"strategy"`
	Secret             string         `json:"-"`
	PhoneNumber        string         `json:"phone_number,omitempty"`
	Verified           bool           `json:"verified"`
	ChallengeCode      string         `json:"-"`
	ChallengeExpiresAt *time.Time     `json:"-"`
	LastChallengedAt   *time.Time     `json:"last_challenged_at,omitempty"`
	VerifiedAt         *time.Time     `json:"verified_at,omitempty"`
}

// NewTOTPFactor 创建 TOTP 因子，secret 为 base32 种子
func NewTOTPFactor(userID, secret string) *Factor {
	return &Factor{
		ID:       fmt.Sprintf("FAC-%d", idgen.GenID()),
		UserID:   userID,
		Strategy: StrategyTOTP,
		Secret:   secret,
	}
}

// NewPhoneFactor 创建短信因子
func NewPhoneFactor(userID, phoneNumber string) *Factor {
	return &Factor{
		ID:          fmt.Sprintf("FAC-%d", idgen.GenID()),
		UserID:      userID,
		Strategy:    StrategyPhone,
		PhoneNumber: phoneNumber,
	}
}

// SetChallenge 记录一次已下发的短信验证码
func (f *Factor) SetChallenge(code string, now time.Time) {
	expires := now.Add(challengeTTL)
	f.ChallengeCode = code
	f.ChallengeExpiresAt = &expires
	f.LastChallengedAt = &now
}

// ChallengeValid 判断验证码是否匹配且未过期
func (f *Factor) ChallengeValid(code string, now time.Time) bool {
	if f.ChallengeCode == "" || f.ChallengeExpiresAt == nil {
		return false
	}
	if now.After(*f.ChallengeExpiresAt) {
		return false
	}
	return f.ChallengeCode == code
}

// MarkVerified 标记因子可用，并清除一次性验证码
func (f *Factor) MarkVerified(now time.Time) {
	f.Verified = true
	f.VerifiedAt = &now
	f.ChallengeCode = ""
	f.ChallengeExpiresAt = nil
}
