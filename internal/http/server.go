package http

import (
	"github.com/novamoderation/novamod/internal/access"
	"github.com/novamoderation/novamod/internal/audit"
	"github.com/novamoderation/novamod/internal/cache"
	"github.com/novamoderation/novamod/internal/config"
	"github.com/novamoderation/novamod/internal/quota"
	"github.com/novamoderation/novamod/internal/upstream"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// NewRouter wires the gateway routes onto a gin engine. All dependencies are
// constructed by the caller and injected; nothing here reads configuration
// ambiently.
func NewRouter(cfg *config.Config, conn *gorm.DB, classifier *upstream.Client, snapshots *cache.SnapshotCache) *gin.Engine {
	provider := access.NewProvider(conn)
	ledger := quota.NewLedger(conn)
	auditor := audit.NewGormLogger(conn)

	moderate := NewModerateHandler(provider, ledger, classifier, auditor, snapshots, cfg.Upstream.DefaultTasks)
	account := NewAccountHandler(conn, snapshots)
	history := NewHistoryHandler(conn)
	health := NewHealthHandler(conn)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(CORSMiddleware(cfg.CORS.AllowedOrigins))

	engine.GET("/healthz", health.Check)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Validation precedes authentication on the moderation path, so the
	// handler authenticates itself instead of using the middleware.
	engine.POST("/v1/moderate", moderate.Moderate)

	authed := engine.Group("/v1", AccessAuthMiddleware(provider))
	authed.GET("/account", account.Get)
	authed.GET("/history", history.List)

	return engine
}
