package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/novamoderation/novamod/internal/access"
	"github.com/novamoderation/novamod/internal/audit"
	"github.com/novamoderation/novamod/internal/cache"
	"github.com/novamoderation/novamod/internal/metrics"
	"github.com/novamoderation/novamod/internal/quota"
	"github.com/novamoderation/novamod/internal/upstream"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// moderateRequest is the inbound payload for a moderation call.
type moderateRequest struct {
	ImageURL string `json:"imageUrl"`
	Tasks    string `json:"tasks"`
}

// ModerateHandler brokers one classification request through validation,
// authentication, the quota check, the upstream call, the conditional debit,
// and the audit write.
type ModerateHandler struct {
	provider     *access.Provider
	ledger       *quota.Ledger
	classifier   *upstream.Client
	auditor      *audit.GormLogger
	snapshots    *cache.SnapshotCache
	defaultTasks string
}

// NewModerateHandler constructs a ModerateHandler.
func NewModerateHandler(provider *access.Provider, ledger *quota.Ledger, classifier *upstream.Client, auditor *audit.GormLogger, snapshots *cache.SnapshotCache, defaultTasks string) *ModerateHandler {
	return &ModerateHandler{
		provider:     provider,
		ledger:       ledger,
		classifier:   classifier,
		auditor:      auditor,
		snapshots:    snapshots,
		defaultTasks: defaultTasks,
	}
}

// Moderate handles POST /v1/moderate.
//
// Validation runs before the credential lookup so malformed input never
// triggers quota work. A decode failure degrades to an empty payload, which
// then fails the imageUrl check deterministically.
func (h *ModerateHandler) Moderate(c *gin.Context) {
	var req moderateRequest
	_ = c.ShouldBindJSON(&req)

	if strings.TrimSpace(req.ImageURL) == "" {
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomeInvalidRequest).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "imageUrl is required"})
		return
	}

	result, errAuth := h.provider.Authenticate(c.Request.Context(), c.Request)
	if errAuth != nil {
		switch {
		case errors.Is(errAuth, access.ErrNoCredentials):
			metrics.RequestsTotal.WithLabelValues(metrics.OutcomeAuthMissing).Inc()
		case errors.Is(errAuth, access.ErrQuotaExhausted):
			metrics.RequestsTotal.WithLabelValues(metrics.OutcomeQuotaExhausted).Inc()
		default:
			metrics.RequestsTotal.WithLabelValues(metrics.OutcomeAuthDenied).Inc()
		}
		AbortWithAuthError(c, errAuth)
		return
	}

	tasks := strings.TrimSpace(req.Tasks)
	if tasks == "" {
		tasks = h.defaultTasks
	}

	requestID := uuid.NewString()
	logger := log.WithFields(log.Fields{
		"request_id": requestID,
		"account_id": result.AccountID,
	})

	started := time.Now()
	classification, errClassify := h.classifier.Classify(c.Request.Context(), req.ImageURL, tasks)
	metrics.UpstreamLatency.Observe(time.Since(started).Seconds())
	if errClassify != nil {
		logger.WithError(errClassify).Error("upstream classification failed")
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomeUpstreamFailure).Inc()
		h.auditor.Record(c.Request.Context(), audit.Entry{
			RequestID: requestID,
			AccountID: result.AccountID,
			ImageURL:  req.ImageURL,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": errClassify.Error()})
		return
	}

	// A token is charged only when the classifier reports success. A failed
	// debit after a delivered result is logged, never surfaced: the caller
	// already received value from the upstream call.
	debited := false
	if classification.Success() {
		if errDebit := h.ledger.Debit(c.Request.Context(), result.AccountID); errDebit != nil {
			logger.WithError(errDebit).Error("token debit failed after successful classification")
			metrics.DebitFailures.Inc()
		} else {
			debited = true
			h.snapshots.Invalidate(c.Request.Context(), result.AccountID)
		}
	}

	h.auditor.Record(c.Request.Context(), audit.Entry{
		RequestID: requestID,
		AccountID: result.AccountID,
		ImageURL:  req.ImageURL,
		Debited:   debited,
		Result:    classification,
	})

	if classification.Success() {
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	} else {
		metrics.RequestsTotal.WithLabelValues(metrics.OutcomeUpstreamRejected).Inc()
	}
	c.Data(http.StatusOK, "application/json", classification.Raw)
}
