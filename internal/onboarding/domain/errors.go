package domain

import "fmt"

// 错误分类：校验错误与冲突错误原样透给步骤 UI；瞬时错误可安全重试；
// 配置错误触发自动回退；绑定错误终止整个流程。

// ValidationError 用户可修正的字段校验错误，未发生任何远端写入
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ConflictError 唯一性冲突（handle 已占用、邮箱已注册、已完成入驻）
type ConflictError struct {
	Resource string
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Reason)
}

// TransientRemoteError 网络或远端临时故障；所有写入均为幂等 upsert，可重试
type TransientRemoteError struct {
	Op  string
	Err error
}

func (e *TransientRemoteError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientRemoteError) Unwrap() error { return e.Err }

// ConfigurationError 非用户可修复的配置缺失（如短信网关未配置），
// 调用方应切换到备选登记策略而不是重试
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Reason)
}

// FatalBindingError userId 与 profileId 绑定不一致，必须终止入驻流程
type FatalBindingError struct {
	UserID    string
	ProfileID string
	Reason    string
}

func (e *FatalBindingError) Error() string {
	return fmt.Sprintf("fatal binding error for user %s / profile %s: %s", e.UserID, e.ProfileID, e.Reason)
}
