package http

import (
	"net/http"
	"time"

	"github.com/novamoderation/novamod/internal/cache"
	"github.com/novamoderation/novamod/internal/models"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AccountHandler serves the authenticated caller's own account snapshot.
type AccountHandler struct {
	db        *gorm.DB
	snapshots *cache.SnapshotCache
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(db *gorm.DB, snapshots *cache.SnapshotCache) *AccountHandler {
	return &AccountHandler{db: db, snapshots: snapshots}
}

// Get handles GET /v1/account. The snapshot is cached with a bounded TTL
// when Redis is configured; the moderation pipeline never reads it.
func (h *AccountHandler) Get(c *gin.Context) {
	result := AccessResult(c)
	if result == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	if snapshot, ok := h.snapshots.Get(ctx, result.AccountID); ok {
		c.JSON(http.StatusOK, snapshot)
		return
	}

	var account models.Account
	if errFind := h.db.WithContext(ctx).Preload("APIKeys").First(&account, result.AccountID).Error; errFind != nil {
		log.WithError(errFind).Error("load account failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load account failed"})
		return
	}

	var moderations int64
	if errCount := h.db.WithContext(ctx).Model(&models.Moderation{}).
		Where("account_id = ?", account.ID).
		Count(&moderations).Error; errCount != nil {
		log.WithError(errCount).Error("count moderations failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count moderations failed"})
		return
	}

	keys := make([]cache.KeySnapshot, 0, len(account.APIKeys))
	for _, row := range account.APIKeys {
		keys = append(keys, cache.KeySnapshot{
			Name:       row.Name,
			Status:     row.Status(),
			LastUsedAt: row.LastUsedAt,
			CreatedAt:  row.CreatedAt,
		})
	}

	snapshot := &cache.AccountSnapshot{
		AccountID:        account.ID,
		Name:             account.Name,
		Active:           account.Active,
		TokenBalance:     account.TokenBalance,
		ModerationsTotal: moderations,
		Keys:             keys,
		FetchedAt:        time.Now().UTC(),
	}
	h.snapshots.Set(ctx, snapshot)

	c.JSON(http.StatusOK, snapshot)
}
