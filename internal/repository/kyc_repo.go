package repository

import (
	"greenpay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KYCRepository struct {
	db *gorm.DB
}

func NewKYCRepository(db *gorm.DB) *KYCRepository {
	return &KYCRepository{db: db}
}

func (r *KYCRepository) WithTx(tx *gorm.DB) *KYCRepository {
	return &KYCRepository{db: tx}
}

func (r *KYCRepository) Create(d *models.KYCDocument) error {
	return r.db.Create(d).Error
}

func (r *KYCRepository) GetByIDForUpdate(id uint) (*models.KYCDocument, error) {
	var d models.KYCDocument
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *KYCRepository) ListByUserID(userID uint) ([]models.KYCDocument, error) {
	var list []models.KYCDocument
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *KYCRepository) ListByStatus(status string, page, limit int) ([]models.KYCDocument, int64, error) {
	q := r.db.Model(&models.KYCDocument{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.KYCDocument
	err := q.Preload("User").Order("created_at ASC").Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}

func (r *KYCRepository) Update(d *models.KYCDocument) error {
	return r.db.Save(d).Error
}
