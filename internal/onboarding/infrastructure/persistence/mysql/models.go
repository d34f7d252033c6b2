package mysql

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/talentmarket/internal/onboarding/domain"
)

// ProfileModel MySQL 入驻档案表映射
//
// handle 存储规整后的小写形式，大小写不敏感的唯一性由唯一索引保证。
type ProfileModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`

	ProfileID   string  `gorm:"column:profile_id;type:varchar(32);uniqueIndex;not null"`
	UserID      *string `gorm:"column:user_id;type:varchar(32);uniqueIndex"`
	InviteToken string  `gorm:"column:invite_token;type:varchar(64);index"`

	Handle      *string `gorm:"column:handle;type:varchar(30);uniqueIndex"`
	DisplayName string  `gorm:"column:display_name;type:varchar(100)"`
	Bio         string  `gorm:"column:bio;type:text"`
	Categories  string  `gorm:"column:categories;type:text"`

	MonetizationEnabled bool            `gorm:"column:monetization_enabled;default:false"`
	Price               decimal.Decimal `gorm:"column:price;type:decimal(18,2)"`
	Currency            string          `gorm:"column:currency;type:varchar(8)"`

	IntroMediaURL string `gorm:"column:intro_media_url;type:varchar(512)"`

	CompletedStep       int  `gorm:"column:completed_step;default:0;not null"`
	OnboardingCompleted bool `gorm:"column:onboarding_completed;default:false;not null"`
	IsActive            bool `gorm:"column:is_active;default:false;not null"`
}

func (ProfileModel) TableName() string {
	return "onboarding_profiles"
}

func toProfileModel(profile *domain.OnboardingProfile) *ProfileModel {
	if profile == nil {
		return nil
	}
	categories, _ := json.Marshal(profile.Categories)
	model := &ProfileModel{
		CreatedAt:           profile.CreatedAt,
		UpdatedAt:           profile.UpdatedAt,
		ProfileID:           profile.ID,
		InviteToken:         profile.InviteToken,
		DisplayName:         profile.DisplayName,
		Bio:                 profile.Bio,
		Categories:          string(categories),
		MonetizationEnabled: profile.MonetizationEnabled,
		Price:               profile.Price,
		Currency:            profile.Currency,
		IntroMediaURL:       profile.IntroMediaURL,
		CompletedStep:       int(profile.CompletedStep),
		OnboardingCompleted: profile.OnboardingCompleted,
		IsActive:            profile.IsActive,
	}
	if profile.UserID != "" {
		userID := profile.UserID
		model.UserID = &userID
	}
	if handle := domain.CanonicalHandle(profile.Handle); handle != "" {
		model.Handle = &handle
	}
	return model
}

func toProfile(model *ProfileModel) *domain.OnboardingProfile {
	if model == nil {
		return nil
	}
	var categories []string
	if model.Categories != "" {
		_ = json.Unmarshal([]byte(model.Categories), &categories)
	}
	profile := &domain.OnboardingProfile{
		ID:                  model.ProfileID,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
		InviteToken:         model.InviteToken,
		DisplayName:         model.DisplayName,
		Bio:                 model.Bio,
		Categories:          categories,
		MonetizationEnabled: model.MonetizationEnabled,
		Price:               model.Price,
		Currency:            model.Currency,
		IntroMediaURL:       model.IntroMediaURL,
		CompletedStep:       domain.OnboardingStep(model.CompletedStep),
		OnboardingCompleted: model.OnboardingCompleted,
		IsActive:            model.IsActive,
	}
	if model.UserID != nil {
		profile.UserID = *model.UserID
	}
	if model.Handle != nil {
		profile.Handle = *model.Handle
	}
	return profile
}
