package mysql

import (
	"context"
	"errors"
	"strings"

	driver "github.com/go-sql-driver/mysql"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/talentmarket/internal/onboarding/domain"
	"gorm.io/gorm"
)

// mysqlDuplicateEntry MySQL 唯一约束冲突错误码
const mysqlDuplicateEntry = 1062

type profileRepository struct{ db *gorm.DB }

func NewProfileRepository(db *gorm.DB) domain.ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)
		return fn(txCtx)
	})
}

// Save 按 ProfileID 幂等 upsert；handle 唯一冲突翻译为 ErrHandleTaken
func (r *profileRepository) Save(ctx context.Context, profile *domain.OnboardingProfile) error {
	db := r.getDB(ctx)
	model := toProfileModel(profile)

	var existing ProfileModel
	err := db.WithContext(ctx).Where("profile_id = ?", model.ProfileID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := db.WithContext(ctx).Create(model).Error; err != nil {
			return translateConflict(err)
		}
		profile.CreatedAt = model.CreatedAt
		profile.UpdatedAt = model.UpdatedAt
		return nil
	}
	if err != nil {
		return err
	}

	// is_active 只归管理端控制，更新集里刻意不含该列
	err = db.WithContext(ctx).
		Model(&ProfileModel{}).
		Where("profile_id = ?", model.ProfileID).
		Updates(map[string]any{
			"user_id":              model.UserID,
			"invite_token":         model.InviteToken,
			"handle":               model.Handle,
			"display_name":         model.DisplayName,
			"bio":                  model.Bio,
			"categories":           model.Categories,
			"monetization_enabled": model.MonetizationEnabled,
			"price":                model.Price,
			"currency":             model.Currency,
			"intro_media_url":      model.IntroMediaURL,
			"completed_step":       model.CompletedStep,
			"onboarding_completed": model.OnboardingCompleted,
		}).Error
	return translateConflict(err)
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.OnboardingProfile, error) {
	var model ProfileModel
	err := r.getDB(ctx).WithContext(ctx).Where("profile_id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toProfile(&model), nil
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*domain.OnboardingProfile, error) {
	var model ProfileModel
	err := r.getDB(ctx).WithContext(ctx).Where("user_id = ?", userID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toProfile(&model), nil
}

func (r *profileRepository) GetByInviteToken(ctx context.Context, token string) (*domain.OnboardingProfile, error) {
	var model ProfileModel
	err := r.getDB(ctx).WithContext(ctx).Where("invite_token = ?", token).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toProfile(&model), nil
}

func (r *profileRepository) HandleExists(ctx context.Context, handle, excludeProfileID string) (bool, error) {
	var count int64
	query := r.getDB(ctx).WithContext(ctx).
		Model(&ProfileModel{}).
		Where("handle = ?", domain.CanonicalHandle(handle))
	if excludeProfileID != "" {
		query = query.Where("profile_id <> ?", excludeProfileID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *profileRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

func translateConflict(err error) error {
	if err == nil {
		return nil
	}
	var mysqlErr *driver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		if strings.Contains(mysqlErr.Message, "user_id") {
			return &domain.ConflictError{Resource: "user_id", Reason: "identity already bound to a profile"}
		}
		return domain.ErrHandleTaken
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrHandleTaken
	}
	return err
}
