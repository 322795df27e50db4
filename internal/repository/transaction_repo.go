package repository

import (
	"fmt"
	"strings"

	"greenpay/internal/domain"
	"greenpay/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransactionRepository is the append-only ledger store.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) WithTx(tx *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

// NewReference returns a unique internal reference such as "TXN-9F3A...".
func NewReference(prefix string) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("%s-%s", prefix, id[:20])
}

// Create persists t, assigning a reference when none was given.
func (r *TransactionRepository) Create(t *models.Transaction) error {
	if t.Reference == "" {
		t.Reference = NewReference("TXN")
	}
	return r.db.Create(t).Error
}

func (r *TransactionRepository) GetByID(id uint) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.db.First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByIDForUpdate loads the row with a lock so status transitions are serialized.
func (r *TransactionRepository) GetByIDForUpdate(id uint) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) GetByReference(ref string) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.db.Where("reference = ?", ref).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) GetByReferenceForUpdate(ref string) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("reference = ?", ref).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByUserID returns the user's rows newest first. limit <= 0 returns everything.
func (r *TransactionRepository) ListByUserID(userID uint, limit, offset int) ([]models.Transaction, error) {
	var list []models.Transaction
	q := r.db.Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	err := q.Find(&list).Error
	return list, err
}

func (r *TransactionRepository) CountByUserID(userID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// ListCompletedByUserID feeds the balance fold.
func (r *TransactionRepository) ListCompletedByUserID(userID uint) ([]models.Transaction, error) {
	var list []models.Transaction
	err := r.db.Where("user_id = ? AND status = ?", userID, domain.TxStatusCompleted).
		Order("id ASC").Find(&list).Error
	return list, err
}

// ListByTransferID returns both legs of a transfer, send first.
func (r *TransactionRepository) ListByTransferID(transferID string) ([]models.Transaction, error) {
	var list []models.Transaction
	err := r.db.Where("transfer_id = ?", transferID).Order("id ASC").Find(&list).Error
	return list, err
}

// SumPending totals amount+fee of a user's pending rows of txType in currency.
func (r *TransactionRepository) SumPending(userID uint, txType, currency string) (int64, error) {
	var out struct{ Total int64 }
	err := r.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount_cents + fee_cents), 0) AS total").
		Where("user_id = ? AND type = ? AND currency = ? AND status = ?", userID, txType, currency, domain.TxStatusPending).
		Scan(&out).Error
	return out.Total, err
}

// UpdateFields changes mutable columns only (status, completed_at, admin_notes, metadata).
func (r *TransactionRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	for k := range fields {
		switch k {
		case "status", "completed_at", "admin_notes", "metadata", "updated_at":
		default:
			return fmt.Errorf("transaction column %q is immutable", k)
		}
	}
	return r.db.Model(&models.Transaction{}).Where("id = ?", id).Updates(fields).Error
}

type TransactionFilter struct {
	UserID uint
	Type   string
	Status string
}

// List is the admin view across all users.
func (r *TransactionRepository) List(f TransactionFilter, page, limit int) ([]models.Transaction, int64, error) {
	q := r.db.Model(&models.Transaction{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Transaction
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}
