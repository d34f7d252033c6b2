package domain

import "errors"

var (
	// ErrAlreadyRegistered 邮箱已注册
	ErrAlreadyRegistered = errors.New("email already registered")
	// ErrInvalidCredentials 凭证无效（密码错误或账户不存在）
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrConfirmationPending 账户已创建但需要邮件确认，尚未发放会话
	ErrConfirmationPending = errors.New("email confirmation pending")
	// ErrInvalidCode 验证码错误或已过期
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrSMSUnavailable 短信网关未配置或不可用
	ErrSMSUnavailable = errors.New("sms delivery unavailable")
	// ErrFactorNotFound 因子不存在
	ErrFactorNotFound = errors.New("factor not found")
	// ErrChallengeRequired 短信因子必须先下发验证码才能校验
	ErrChallengeRequired = errors.New("challenge must be issued before verify")
)
