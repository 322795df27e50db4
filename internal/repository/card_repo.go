package repository

import (
	"greenpay/internal/models"

	"gorm.io/gorm"
)

type CardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{db: db}
}

func (r *CardRepository) WithTx(tx *gorm.DB) *CardRepository {
	return &CardRepository{db: tx}
}

func (r *CardRepository) Create(c *models.VirtualCard) error {
	return r.db.Create(c).Error
}

func (r *CardRepository) GetByUserID(userID uint) (*models.VirtualCard, error) {
	var c models.VirtualCard
	if err := r.db.Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CardRepository) CountByUserID(userID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.VirtualCard{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *CardRepository) UpdateStatus(userID uint, status string) error {
	res := r.db.Model(&models.VirtualCard{}).Where("user_id = ?", userID).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
