package models

import (
	"time"

	"greenpay/internal/domain"
)

// User carries the two wallet balances in minor units. The balance columns are a
// projection of completed ledger rows and are only written inside the same DB
// transaction as the ledger insert that moves them. Held columns reserve funds for
// pending withdrawals.
type User struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Email           string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Username        string     `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Phone           string     `gorm:"uniqueIndex;size:20;not null" json:"phone"` // 2547XXXXXXXX
	FullName        string     `gorm:"size:255" json:"full_name"`
	PasswordHash    string     `gorm:"size:255" json:"-"`
	Role            string     `gorm:"size:20;not null;default:'USER';index" json:"role"`
	BalanceCents    int64      `gorm:"not null;default:0" json:"balance_cents"`
	KesBalanceCents int64      `gorm:"not null;default:0" json:"kes_balance_cents"`
	HeldCents       int64      `gorm:"not null;default:0" json:"held_cents"`
	KesHeldCents    int64      `gorm:"not null;default:0" json:"kes_held_cents"`
	HasVirtualCard  bool       `gorm:"not null;default:false" json:"has_virtual_card"`
	KYCStatus       string     `gorm:"size:20;not null;default:'none'" json:"kyc_status"`
	FCMToken        string     `gorm:"size:512" json:"-"`
	LastLoginAt     *time.Time `json:"last_login_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	VirtualCard *VirtualCard `gorm:"foreignKey:UserID" json:"virtual_card,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool { return u.Role == domain.RoleAdmin }

// Balance returns the stored balance for currency.
func (u *User) Balance(currency string) int64 {
	if currency == domain.CurrencyKES {
		return u.KesBalanceCents
	}
	return u.BalanceCents
}

// Held returns funds reserved by pending withdrawals for currency.
func (u *User) Held(currency string) int64 {
	if currency == domain.CurrencyKES {
		return u.KesHeldCents
	}
	return u.HeldCents
}

// Available is the stored balance less holds: what a new debit may spend.
func (u *User) Available(currency string) int64 {
	return u.Balance(currency) - u.Held(currency)
}
