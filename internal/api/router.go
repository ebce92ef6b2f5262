package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/sykell/metabear/internal/middleware"
	"github.com/sykell/metabear/internal/tabs"
)

// Dependencies are the services the HTTP API is built on.
type Dependencies struct {
	DB      *gorm.DB
	Manager *tabs.Manager
	Queue   *tabs.Queue
	Auth    *AuthConfig
}

// NewRouter wires every route. /health, /metrics and /auth/login are public.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestLogger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"service":   "metabear",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/auth/login", LoginHandler(deps.DB, deps.Auth))

	authorized := r.Group("/")
	authorized.Use(middleware.JWTRequired(deps.Auth.JWTSecret))
	{
		authorized.POST("/tabs", OpenTabHandler(deps.Manager))
		authorized.GET("/tabs", ListTabsHandler(deps.Manager))
		authorized.POST("/tabs/bulk", BulkTabsHandler(deps.Manager, deps.Queue))
		authorized.GET("/tabs/:id", GetTabHandler(deps.Manager))
		authorized.DELETE("/tabs/:id", CloseTabHandler(deps.Manager))
		authorized.POST("/tabs/:id/events", TabEventHandler(deps.Manager))
		authorized.POST("/tabs/:id/audit", AuditTabHandler(deps.Manager))
		authorized.POST("/tabs/:id/messages", MessageHandler(deps.Manager))
		authorized.GET("/tabs/:id/export", ExportHandler(deps.Manager))

		authorized.GET("/audits", ListAuditsHandler(deps.DB))
		authorized.GET("/audits/:id", GetAuditHandler(deps.DB))
	}

	return r
}
