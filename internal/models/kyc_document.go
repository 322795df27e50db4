package models

import "time"

type KYCDocument struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;index" json:"user_id"`
	DocumentType string     `gorm:"size:30;not null" json:"document_type"` // NATIONAL_ID, PASSPORT, SELFIE
	URL          string     `gorm:"size:512;not null" json:"url"`
	Status       string     `gorm:"size:20;not null;index" json:"status"`
	ReviewNotes  string     `gorm:"type:text" json:"review_notes,omitempty"`
	ReviewedBy   *uint      `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (KYCDocument) TableName() string {
	return "kyc_documents"
}
