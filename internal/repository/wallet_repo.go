package repository

import (
	"errors"
	"time"

	"greenpay/internal/domain"
	"greenpay/internal/models"

	"gorm.io/gorm"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

// WalletRepository moves the balance projection on the users table. Every method is
// a single conditional UPDATE, so a stale read can never drive a balance negative.
// Callers run these inside the DB transaction that writes the matching ledger row.
type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) WithTx(tx *gorm.DB) *WalletRepository {
	return &WalletRepository{db: tx}
}

func columns(currency string) (balance, held string) {
	if currency == domain.CurrencyKES {
		return "kes_balance_cents", "kes_held_cents"
	}
	return "balance_cents", "held_cents"
}

// Debit subtracts amountCents if the unreserved balance covers it.
func (r *WalletRepository) Debit(userID uint, currency string, amountCents int64) error {
	bal, held := columns(currency)
	res := r.db.Model(&models.User{}).
		Where("id = ? AND "+bal+" - "+held+" >= ?", userID, amountCents).
		Updates(map[string]interface{}{
			bal:          gorm.Expr(bal+" - ?", amountCents),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func (r *WalletRepository) Credit(userID uint, currency string, amountCents int64) error {
	bal, _ := columns(currency)
	res := r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			bal:          gorm.Expr(bal+" + ?", amountCents),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Hold reserves amountCents for a pending withdrawal.
func (r *WalletRepository) Hold(userID uint, currency string, amountCents int64) error {
	bal, held := columns(currency)
	res := r.db.Model(&models.User{}).
		Where("id = ? AND "+bal+" - "+held+" >= ?", userID, amountCents).
		Updates(map[string]interface{}{
			held:         gorm.Expr(held+" + ?", amountCents),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// ReleaseHold returns reserved funds to the available balance (withdrawal rejected).
func (r *WalletRepository) ReleaseHold(userID uint, currency string, amountCents int64) error {
	_, held := columns(currency)
	res := r.db.Model(&models.User{}).
		Where("id = ? AND "+held+" >= ?", userID, amountCents).
		Updates(map[string]interface{}{
			held:         gorm.Expr(held+" - ?", amountCents),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// SettleHold turns a reservation into a debit (withdrawal approved).
func (r *WalletRepository) SettleHold(userID uint, currency string, amountCents int64) error {
	bal, held := columns(currency)
	res := r.db.Model(&models.User{}).
		Where("id = ? AND "+held+" >= ? AND "+bal+" >= ?", userID, amountCents, amountCents).
		Updates(map[string]interface{}{
			bal:          gorm.Expr(bal+" - ?", amountCents),
			held:         gorm.Expr(held+" - ?", amountCents),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}
