package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/talentmarket/internal/talent/domain"
	"gorm.io/gorm"
)

// TalentContactModel 伴生联系记录数据库模型
type TalentContactModel struct {
	ID          uint `gorm:"primarykey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	UserID      string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Role        string `gorm:"type:varchar(32);not null"`
	DisplayName string `gorm:"type:varchar(128)"`
	Email       string `gorm:"type:varchar(255);not null"`
	Phone       string `gorm:"type:varchar(32)"`
}

func (TalentContactModel) TableName() string {
	return "talent_contacts"
}

// TalentRepository 伴生记录 MySQL 仓储
type TalentRepository struct {
	db *gorm.DB
}

// NewTalentRepository 创建伴生记录仓储
func NewTalentRepository(db *gorm.DB) *TalentRepository {
	return &TalentRepository{db: db}
}

func (r *TalentRepository) getDB(ctx context.Context) *gorm.DB {
	if tx := contextx.GetTx(ctx); tx != nil {
		if gormTx, ok := tx.(*gorm.DB); ok {
			return gormTx
		}
	}
	return r.db.WithContext(ctx)
}

// UpsertByUserID 按 userId 幂等写入伴生记录
func (r *TalentRepository) UpsertByUserID(ctx context.Context, contact *domain.TalentContact) error {
	db := r.getDB(ctx)

	var existing TalentContactModel
	err := db.Where("user_id = ?", contact.UserID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			model := toTalentContactModel(contact)
			return db.Create(model).Error
		}
		return err
	}

	return db.Model(&TalentContactModel{}).Where("user_id = ?", contact.UserID).Updates(map[string]any{
		"role":         contact.Role,
		"display_name": contact.DisplayName,
		"email":        contact.Email,
		"phone":        contact.Phone,
	}).Error
}

// GetByUserID 按 userId 查询伴生记录
func (r *TalentRepository) GetByUserID(ctx context.Context, userID string) (*domain.TalentContact, error) {
	db := r.getDB(ctx)

	var model TalentContactModel
	if err := db.Where("user_id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toTalentContact(&model), nil
}

func toTalentContactModel(c *domain.TalentContact) *TalentContactModel {
	return &TalentContactModel{
		ID:          c.ID,
		UserID:      c.UserID,
		Role:        c.Role,
		DisplayName: c.DisplayName,
		Email:       c.Email,
		Phone:       c.Phone,
	}
}

func toTalentContact(m *TalentContactModel) *domain.TalentContact {
	return &domain.TalentContact{
		ID:          m.ID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		UserID:      m.UserID,
		Role:        m.Role,
		DisplayName: m.DisplayName,
		Email:       m.Email,
		Phone:       m.Phone,
	}
}
