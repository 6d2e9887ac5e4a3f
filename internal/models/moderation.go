package models

import (
	"time"

	"gorm.io/datatypes"
)

// Moderation records the audit trail for a single moderation request.
// Rows are append-only; nothing in the service updates or deletes them.
type Moderation struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	RequestID string `gorm:"type:text;not null;index"` // Per-invocation request ID.

	AccountID uint64   `gorm:"not null;index"`       // Billed account ID.
	Account   *Account `gorm:"foreignKey:AccountID"` // Associated account record.

	MediaID *string `gorm:"type:text;index"` // Upstream media identifier, when provided.

	Status          string  `gorm:"type:text;not null;index"` // Upstream status, e.g. "success".
	FinalDecision   string  `gorm:"type:text"`                // Upstream final decision.
	ConfidenceScore float64 `gorm:"not null;default:0"`       // Upstream decision confidence.
	TaskCall        string  `gorm:"type:text"`                // Tasks the upstream actually evaluated.

	ImageURL string `gorm:"type:text;not null"` // Image locator from the request.

	Debited bool `gorm:"not null;default:false"` // Whether a token was charged for this request.

	RawResponse datatypes.JSON `gorm:"type:jsonb"` // Full upstream payload.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}
