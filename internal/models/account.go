package models

import "time"

// Account represents a billable identity that owns API keys and a token balance.
type Account struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name  string `gorm:"type:text;not null"` // Display name.
	Email string `gorm:"type:text;index"`    // Contact email, optional.

	Active bool `gorm:"not null;default:true"` // Whether the account may moderate images.

	TokenBalance int64 `gorm:"not null;default:0"` // Remaining moderation tokens, never negative.

	APIKeys []APIKey `gorm:"foreignKey:AccountID"` // Keys issued to this account.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
