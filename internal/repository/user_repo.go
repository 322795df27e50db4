package repository

import (
	"strings"

	"greenpay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(u *models.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var u models.User
	err := r.db.First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var u models.User
	err := r.db.Where("email = ?", strings.ToLower(email)).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	var u models.User
	err := r.db.Where("username = ?", username).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByPhone(phone string) (*models.User, error) {
	var u models.User
	err := r.db.Where("phone = ?", phone).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByIdentifier resolves an email, phone or username to a user.
func (r *UserRepository) FindByIdentifier(identifier, normalizedPhone string) (*models.User, error) {
	var u models.User
	q := r.db.Where("email = ? OR username = ?", strings.ToLower(identifier), identifier)
	if normalizedPhone != "" {
		q = q.Or("phone = ?", normalizedPhone)
	}
	if err := q.First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// LockByIDs loads users with row locks, always in ascending id order so two
// transfers in opposite directions cannot deadlock.
func (r *UserRepository) LockByIDs(ids ...uint) (map[uint]*models.User, error) {
	var list []models.User
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]*models.User, len(list))
	for i := range list {
		out[list[i].ID] = &list[i]
	}
	return out, nil
}

func (r *UserRepository) Update(u *models.User) error {
	return r.db.Save(u).Error
}

func (r *UserRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

// Delete removes the user and everything they own: ledger rows, card, KYC documents
// and notifications. Must run inside a transaction.
func (r *UserRepository) Delete(id uint) error {
	for _, m := range []interface{}{
		&models.Transaction{},
		&models.VirtualCard{},
		&models.KYCDocument{},
		&models.Notification{},
	} {
		if err := r.db.Where("user_id = ?", id).Delete(m).Error; err != nil {
			return err
		}
	}
	res := r.db.Delete(&models.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
