package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/talentmarket/internal/identity/domain"
	"gorm.io/gorm"
)

type factorRepository struct{ db *gorm.DB }

func NewFactorRepository(db *gorm.DB) domain.FactorRepository {
	return &factorRepository{db: db}
}

func (r *factorRepository) Save(ctx context.Context, factor *domain.Factor) error {
	db := r.getDB(ctx)
	model := toFactorModel(factor)

	var existing FactorModel
	err := db.WithContext(ctx).Where("factor_id = ?", model.FactorID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := db.WithContext(ctx).Create(model).Error; err != nil {
			return err
		}
		factor.CreatedAt = model.CreatedAt
		factor.UpdatedAt = model.UpdatedAt
		return nil
	}
	if err != nil {
		return err
	}

	return db.WithContext(ctx).
		Model(&FactorModel{}).
		Where("factor_id = ?", model.FactorID).
		Updates(map[string]any{
			"strategy":             model.Strategy,
			"secret":               model.Secret,
			"phone_number":         model.PhoneNumber,
			"verified":             model.Verified,
			"challenge_code":       model.ChallengeCode,
			"challenge_expires_at": model.ChallengeExpiresAt,
			"last_challenged_at":   model.LastChallengedAt,
			"verified_at":          model.VerifiedAt,
		}).Error
}

func (r *factorRepository) GetByID(ctx context.Context, id string) (*domain.Factor, error) {
	var model FactorModel
	err := r.getDB(ctx).WithContext(ctx).Where("factor_id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toFactor(&model), nil
}

func (r *factorRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Factor, error) {
	var models []FactorModel
	err := r.getDB(ctx).WithContext(ctx).Where("user_id = ?", userID).Find(&models).Error
	if err != nil {
		return nil, err
	}
	factors := make([]*domain.Factor, 0, len(models))
	for i := range models {
		factors = append(factors, toFactor(&models[i]))
	}
	return factors, nil
}

func (r *factorRepository) Delete(ctx context.Context, id string) error {
	return r.getDB(ctx).WithContext(ctx).Where("factor_id = ?", id).Delete(&FactorModel{}).Error
}

func (r *factorRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}
