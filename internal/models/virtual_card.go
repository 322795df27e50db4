package models

import (
	"time"
)

// VirtualCard is issued once per user after a successful card purchase. BalanceCents is
// not fed by the purchase; app-level spending uses the user's wallet balances.
type VirtualCard struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Last4        string    `gorm:"size:4;not null" json:"last4"`
	MaskedNumber string    `gorm:"size:19;not null" json:"masked_number"`
	Brand        string    `gorm:"size:20;not null;default:'VISA'" json:"brand"`
	ExpiryMonth  int       `gorm:"not null" json:"expiry_month"`
	ExpiryYear   int       `gorm:"not null" json:"expiry_year"`
	Status       string    `gorm:"size:20;not null;index" json:"status"`
	BalanceCents int64     `gorm:"not null;default:0" json:"balance_cents"`
	Reference    string    `gorm:"size:128;uniqueIndex;not null" json:"reference"` // purchase reference
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (VirtualCard) TableName() string {
	return "virtual_cards"
}
