package repository

import (
	"time"

	"greenpay/internal/domain"
	"greenpay/internal/models"

	"gorm.io/gorm"
)

type DashboardStats struct {
	TotalUsers          int64 `json:"total_users"`
	CardHolders         int64 `json:"card_holders"`
	PendingKYC          int64 `json:"pending_kyc"`
	TotalTransactions   int64 `json:"total_transactions"`
	PendingWithdrawals  int64 `json:"pending_withdrawals"`
	TotalUSDCents       int64 `json:"total_usd_cents"`
	TotalKESCents       int64 `json:"total_kes_cents"`
	ExchangeFeesCents   int64 `json:"exchange_fees_cents"`
	WithdrawalFeesCents int64 `json:"withdrawal_fees_cents"`
}

type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type VolumePoint struct {
	Date        string `json:"date"`
	Currency    string `json:"currency"`
	AmountCents int64  `json:"amount_cents"`
}

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) GetDashboardStats() (*DashboardStats, error) {
	var s DashboardStats
	if err := r.db.Model(&models.User{}).Count(&s.TotalUsers).Error; err != nil {
		return nil, err
	}
	r.db.Model(&models.User{}).Where("has_virtual_card = ?", true).Count(&s.CardHolders)
	r.db.Model(&models.KYCDocument{}).Where("status = ?", domain.KYCDocPending).Count(&s.PendingKYC)
	r.db.Model(&models.Transaction{}).Count(&s.TotalTransactions)
	r.db.Model(&models.Transaction{}).
		Where("type = ? AND status = ?", domain.TxTypeWithdraw, domain.TxStatusPending).
		Count(&s.PendingWithdrawals)

	var bal struct {
		USD int64
		KES int64
	}
	r.db.Model(&models.User{}).
		Select("COALESCE(SUM(balance_cents), 0) AS usd, COALESCE(SUM(kes_balance_cents), 0) AS kes").
		Scan(&bal)
	s.TotalUSDCents, s.TotalKESCents = bal.USD, bal.KES

	var fee struct{ Total int64 }
	r.db.Model(&models.Transaction{}).Select("COALESCE(SUM(fee_cents), 0) AS total").
		Where("type = ? AND status = ?", domain.TxTypeExchange, domain.TxStatusCompleted).Scan(&fee)
	s.ExchangeFeesCents = fee.Total
	fee.Total = 0
	r.db.Model(&models.Transaction{}).Select("COALESCE(SUM(fee_cents), 0) AS total").
		Where("type = ? AND status = ?", domain.TxTypeWithdraw, domain.TxStatusCompleted).Scan(&fee)
	s.WithdrawalFeesCents = fee.Total

	return &s, nil
}

// ListUsers returns users with search, role filter, and pagination.
func (r *AdminRepository) ListUsers(search, role string, page, limit int) ([]models.User, int64, error) {
	q := r.db.Model(&models.User{})
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("username LIKE ? OR email LIKE ? OR phone LIKE ?", like, like, like)
	}
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := q.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&users).Error
	return users, total, err
}

// GetUserByID returns a user with the issued card, if any.
func (r *AdminRepository) GetUserByID(id uint) (*models.User, error) {
	var u models.User
	if err := r.db.Preload("VirtualCard").First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UserSignupsByDay returns daily signup counts for the last N days.
func (r *AdminRepository) UserSignupsByDay(days int) ([]TimeSeriesPoint, error) {
	since := time.Now().AddDate(0, 0, -days)
	var points []TimeSeriesPoint
	err := r.db.Model(&models.User{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&points).Error
	return points, err
}

// VolumeByDay sums completed rows of txType per day and currency for the last N days.
func (r *AdminRepository) VolumeByDay(txType string, days int) ([]VolumePoint, error) {
	since := time.Now().AddDate(0, 0, -days)
	var points []VolumePoint
	err := r.db.Model(&models.Transaction{}).
		Select("DATE(created_at) as date, currency, COALESCE(SUM(amount_cents), 0) as amount_cents").
		Where("type = ? AND status = ? AND created_at >= ?", txType, domain.TxStatusCompleted, since).
		Group("DATE(created_at), currency").
		Order("date ASC").
		Scan(&points).Error
	return points, err
}

// SetRole updates a user's role.
func (r *AdminRepository) SetRole(id uint, role string) error {
	res := r.db.Model(&models.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
