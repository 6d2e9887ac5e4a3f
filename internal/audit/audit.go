package audit

import (
	"context"
	"strings"
	"time"

	"github.com/novamoderation/novamod/internal/models"
	"github.com/novamoderation/novamod/internal/upstream"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry captures everything the audit trail stores about one invocation.
type Entry struct {
	RequestID string
	AccountID uint64
	ImageURL  string
	Debited   bool
	Result    *upstream.Result
}

// GormLogger persists one moderation record per processed request.
type GormLogger struct {
	db *gorm.DB
}

// NewGormLogger constructs a GormLogger backed by GORM.
func NewGormLogger(db *gorm.DB) *GormLogger {
	return &GormLogger{db: db}
}

// Record appends an audit row. It is best-effort: a persistence failure is
// logged and never surfaces to the caller, and it never reverses a debit.
// A detached timeout context is used so a cancelled request cannot drop the
// audit write.
func (l *GormLogger) Record(ctx context.Context, entry Entry) {
	if l == nil || l.db == nil {
		return
	}

	dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	row := models.Moderation{
		RequestID: entry.RequestID,
		AccountID: entry.AccountID,
		ImageURL:  entry.ImageURL,
		Debited:   entry.Debited,
		CreatedAt: time.Now().UTC(),
	}
	if entry.Result != nil {
		row.Status = entry.Result.Status
		row.FinalDecision = entry.Result.FinalDecision
		row.ConfidenceScore = entry.Result.ConfidenceScore
		row.TaskCall = entry.Result.TaskCall
		if mediaID := strings.TrimSpace(entry.Result.MediaID); mediaID != "" {
			row.MediaID = &mediaID
		}
		if len(entry.Result.Raw) > 0 {
			row.RawResponse = datatypes.JSON(entry.Result.Raw)
		}
	}

	if errCreate := l.db.WithContext(dbCtx).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).WithFields(log.Fields{
			"request_id": entry.RequestID,
			"account_id": entry.AccountID,
		}).Error("audit record write failed")
	}
}
