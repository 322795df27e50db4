package models

import (
	"time"
)

// Transaction is one ledger line owned by UserID. Rows are append-only: after
// insert only Status, CompletedAt, AdminNotes and Metadata change.
type Transaction struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserID      uint   `gorm:"not null;index" json:"user_id"`
	Type        string `gorm:"size:20;not null;index" json:"type"`
	AmountCents int64  `gorm:"not null" json:"amount_cents"` // always positive
	Currency    string `gorm:"size:3;not null" json:"currency"`
	Status      string `gorm:"size:20;not null;index" json:"status"`
	FeeCents    int64  `gorm:"not null;default:0" json:"fee_cents"`
	RecipientID *uint  `gorm:"index" json:"recipient_id"`
	// TransferID ties the send and receive rows of one transfer together.
	TransferID string `gorm:"size:64;index" json:"transfer_id,omitempty"`
	// Exchange only: rate applied and the credited leg.
	ExchangeRate         string     `gorm:"size:32" json:"exchange_rate,omitempty"`
	ConvertedAmountCents int64      `gorm:"not null;default:0" json:"converted_amount_cents,omitempty"`
	TargetCurrency       string     `gorm:"size:3" json:"target_currency,omitempty"`
	Description          string     `gorm:"size:255" json:"description"`
	Metadata             string     `gorm:"type:text" json:"metadata"` // JSON
	Reference            string     `gorm:"size:128;uniqueIndex;not null" json:"reference"`
	AdminNotes           string     `gorm:"type:text" json:"admin_notes,omitempty"`
	CreatedAt            time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	CompletedAt          *time.Time `json:"completed_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Transaction) TableName() string {
	return "transactions"
}
