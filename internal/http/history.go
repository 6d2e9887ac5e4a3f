package http

import (
	"net/http"

	"github.com/novamoderation/novamod/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HistoryHandler lists the authenticated caller's own moderation history.
type HistoryHandler struct {
	db *gorm.DB
}

// NewHistoryHandler constructs a HistoryHandler.
func NewHistoryHandler(db *gorm.DB) *HistoryHandler {
	return &HistoryHandler{db: db}
}

// listHistoryQuery defines query parameters for listing moderation history.
type listHistoryQuery struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`
}

// List handles GET /v1/history, newest first.
func (h *HistoryHandler) List(c *gin.Context) {
	result := AccessResult(c)
	if result == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var q listHistoryQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}

	query := h.db.WithContext(c.Request.Context()).
		Model(&models.Moderation{}).
		Where("account_id = ?", result.AccountID)

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	var rows []models.Moderation
	offset := (q.Page - 1) * q.Limit
	if errFind := query.Order("created_at DESC").Offset(offset).Limit(q.Limit).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list history failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, serializeModeration(&row))
	}

	c.JSON(http.StatusOK, gin.H{
		"moderations": out,
		"total":       total,
		"page":        q.Page,
		"limit":       q.Limit,
	})
}

// serializeModeration converts a model to an API response payload.
func serializeModeration(row *models.Moderation) gin.H {
	return gin.H{
		"id":               row.ID,
		"request_id":       row.RequestID,
		"media_id":         row.MediaID,
		"status":           row.Status,
		"final_decision":   row.FinalDecision,
		"confidence_score": row.ConfidenceScore,
		"task_call":        row.TaskCall,
		"image_url":        row.ImageURL,
		"debited":          row.Debited,
		"created_at":       row.CreatedAt,
	}
}
