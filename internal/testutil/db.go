// Package testutil provides an in-memory database and fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"

	"greenpay/config"
	"greenpay/internal/database"
	"greenpay/internal/domain"
	"greenpay/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultFees mirrors the production defaults.
var DefaultFees = config.FeeConfig{
	ExchangeFeeBps:      150,
	WithdrawalFeeBps:    200,
	VirtualCardPriceKES: 1000,
}

// NewDB opens a private in-memory SQLite database with all models migrated and
// default settings seeded. A single connection serializes transactions, which
// stands in for the row locks MySQL takes in production.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.SeedSettings(db, DefaultFees); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	return db
}

// UserOpt tweaks a fixture user before insert.
type UserOpt func(*models.User)

func WithUSD(cents int64) UserOpt { return func(u *models.User) { u.BalanceCents = cents } }
func WithKES(cents int64) UserOpt { return func(u *models.User) { u.KesBalanceCents = cents } }
func WithCard() UserOpt           { return func(u *models.User) { u.HasVirtualCard = true } }
func WithPhone(p string) UserOpt  { return func(u *models.User) { u.Phone = p } }
func AsAdmin() UserOpt            { return func(u *models.User) { u.Role = domain.RoleAdmin } }

var phoneSeq int

// CreateUser inserts a user. Balances set here bypass the ledger, so tests that
// check fold equivalence should seed money with SeedDeposit instead.
func CreateUser(t *testing.T, db *gorm.DB, name string, opts ...UserOpt) *models.User {
	t.Helper()
	phoneSeq++
	u := &models.User{
		Email:     name + "@example.com",
		Username:  name,
		Phone:     fmt.Sprintf("2547%08d", phoneSeq),
		FullName:  name,
		Role:      domain.RoleUser,
		KYCStatus: domain.KYCStatusNone,
	}
	for _, o := range opts {
		o(u)
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

// SeedDeposit writes a completed deposit row and the matching balance in one step so
// that ledger and projection agree.
func SeedDeposit(t *testing.T, db *gorm.DB, userID uint, currency string, cents int64) {
	t.Helper()
	err := db.Transaction(func(tx *gorm.DB) error {
		tx1 := &models.Transaction{
			UserID:      userID,
			Type:        domain.TxTypeDeposit,
			AmountCents: cents,
			Currency:    currency,
			Status:      domain.TxStatusCompleted,
			Description: "seed",
			Reference:   "SEED-" + uuid.NewString(),
		}
		if err := tx.Create(tx1).Error; err != nil {
			return err
		}
		col := "balance_cents"
		if currency == domain.CurrencyKES {
			col = "kes_balance_cents"
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn(col, gorm.Expr(col+" + ?", cents)).Error
	})
	if err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
}

// ReloadUser re-reads a user row.
func ReloadUser(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()
	var u models.User
	if err := db.First(&u, id).Error; err != nil {
		t.Fatalf("reload user %d: %v", id, err)
	}
	return &u
}
