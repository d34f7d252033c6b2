package mysql

import (
	"time"

	"github.com/wyfcoding/talentmarket/internal/identity/domain"
)

// UserModel MySQL 用户表映射
type UserModel struct {
	ID             uint       `gorm:"primaryKey;autoIncrement"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
	UserID         string     `gorm:"column:user_id;type:varchar(32);uniqueIndex;not null"`
	Email          string     `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash   string     `gorm:"column:password_hash;type:varchar(255);not null"`
	Role           string     `gorm:"column:role;type:varchar(20);default:'TALENT';not null"`
	EmailConfirmed bool       `gorm:"column:email_confirmed;default:false"`
	ConfirmedAt    *time.Time `gorm:"column:confirmed_at"`
}

func (UserModel) TableName() string {
	return "identity_users"
}

// FactorModel MySQL 二次认证因子表映射
type FactorModel struct {
	ID                 uint       `gorm:"primaryKey;autoIncrement"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
	FactorID           string     `gorm:"column:factor_id;type:varchar(32);uniqueIndex;not null"`
	UserID             string     `gorm:"column:user_id;type:varchar(32);index;not null"`
	Strategy           string     `gorm:"column:strategy;type:varchar(10);not null"`
	Secret             string     `gorm:"column:secret;type:varchar(128)"`
	PhoneNumber        string     `gorm:"column:phone_number;type:varchar(32)"`
	Verified           bool       `gorm:"column:verified;default:false"`
	ChallengeCode      string     `gorm:"column:challenge_code;type:varchar(10)"`
	ChallengeExpiresAt *time.Time `gorm:"column:challenge_expires_at"`
	LastChallengedAt   *time.Time `gorm:"column:last_challenged_at"`
	VerifiedAt         *time.Time `gorm:"column:verified_at"`
}

func (FactorModel) TableName() string {
	return "identity_factors"
}

func toUserModel(user *domain.User) *UserModel {
	if user == nil {
		return nil
	}
	return &UserModel{
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
		UserID:         user.ID,
		Email:          user.Email,
		PasswordHash:   user.PasswordHash,
		Role:           string(user.Role),
		EmailConfirmed: user.EmailConfirmed,
		ConfirmedAt:    user.ConfirmedAt,
	}
}

func toUser(model *UserModel) *domain.User {
	if model == nil {
		return nil
	}
	return &domain.User{
		ID:             model.UserID,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
		Email:          model.Email,
		PasswordHash:   model.PasswordHash,
		Role:           domain.UserRole(model.Role),
		EmailConfirmed: model.EmailConfirmed,
		ConfirmedAt:    model.ConfirmedAt,
	}
}

func toFactorModel(factor *domain.Factor) *FactorModel {
	if factor == nil {
		return nil
	}
	return &FactorModel{
		CreatedAt:          factor.CreatedAt,
		UpdatedAt:          factor.UpdatedAt,
		FactorID:           factor.ID,
		UserID:             factor.UserID,
		Strategy:           string(factor.Strategy),
		Secret:             factor.Secret,
		PhoneNumber:        factor.PhoneNumber,
		Verified:           factor.Verified,
		ChallengeCode:      factor.ChallengeCode,
		ChallengeExpiresAt: factor.ChallengeExpiresAt,
		LastChallengedAt:   factor.LastChallengedAt,
		VerifiedAt:         factor.VerifiedAt,
	}
}

func toFactor(model *FactorModel) *domain.Factor {
	if model == nil {
		return nil
	}
	return &domain.Factor{
		ID:                 model.FactorID,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
		UserID:             model.UserID,
		Strategy:           domain.FactorStrategy(model.Strategy),
		Secret:             model.Secret,
		PhoneNumber:        model.PhoneNumber,
		Verified:           model.Verified,
		ChallengeCode:      model.ChallengeCode,
		ChallengeExpiresAt: model.ChallengeExpiresAt,
		LastChallengedAt:   model.LastChallengedAt,
		VerifiedAt:         model.VerifiedAt,
	}
}
