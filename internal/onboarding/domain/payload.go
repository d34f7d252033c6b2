package domain

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// minBioLength 公开简介最小长度
const minBioLength = 50

var handlePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_]{2,29}$`)

// StepPayload 步骤提交负载的标签联合，按步骤各取一个分支
type StepPayload struct {
	Profile      *ProfilePayload
	Monetization *MonetizationPayload
	Media        *MediaPayload
}

// ProfilePayload 公开资料步骤负载
type ProfilePayload struct {
	Handle      string   `json:"handle"`
	DisplayName string   `json:"display_name"`
	Bio         string   `json:"bio"`
	Categories  []string `json:"categories"`
}

// MonetizationPayload 收费策略步骤负载；Enabled 为 false 时价格字段忽略
type MonetizationPayload struct {
	Enabled  bool            `json:"enabled"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

// MediaPayload 介绍媒体步骤负载，只保存已上传媒体的公开地址
type MediaPayload struct {
	URL string `json:"url"`
}

// CanonicalHandle 把 handle 规整为小写形式；唯一性按此形式比较
func CanonicalHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// ValidHandle 规整后的 handle 是否满足格式要求
func ValidHandle(handle string) bool {
	return handlePattern.MatchString(handle)
}

// Validate 校验公开资料负载
func (p *ProfilePayload) Validate() error {
	handle := CanonicalHandle(p.Handle)
	if !handlePattern.MatchString(handle) {
		return &ValidationError{Field: "handle", Reason: "must be 3-30 lowercase letters, digits or underscores"}
	}
	if strings.TrimSpace(p.DisplayName) == "" {
		return &ValidationError{Field: "display_name", Reason: "is required"}
	}
	if len(strings.TrimSpace(p.Bio)) < minBioLength {
		return &ValidationError{Field: "bio", Reason: "must be at least 50 characters"}
	}
	if len(p.Categories) == 0 {
		return &ValidationError{Field: "categories", Reason: "select at least one category"}
	}
	return nil
}

// Validate 校验收费策略负载；minPrice 为平台最低价
func (p *MonetizationPayload) Validate(minPrice decimal.Decimal) error {
	if !p.Enabled {
		return nil
	}
	if p.Price.LessThan(minPrice) {
		return &ValidationError{Field: "price", Reason: "below platform minimum"}
	}
	if p.Currency == "" {
		return &ValidationError{Field: "currency", Reason: "is required"}
	}
	return nil
}

// Validate 校验介绍媒体负载
func (p *MediaPayload) Validate() error {
	if strings.TrimSpace(p.URL) == "" {
		return &ValidationError{Field: "url", Reason: "media upload is required"}
	}
	return nil
}
