package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shiftdrop/backend/config"
	"shiftdrop/backend/internal/api/handler"
	"shiftdrop/backend/internal/api/middleware"
	"shiftdrop/backend/pkg/jwt"
	"shiftdrop/backend/pkg/redis"
)

// 公开令牌端点的限流参数：64 位随机令牌配合该限速足以阻止在线枚举
const (
	tokenRateLimit  = 30
	tokenRateWindow = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(1 << 20))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── 短信链接入口（公开，限流） ──
	tokenLimited := middleware.RateLimit(rdb, tokenRateLimit, tokenRateWindow)

	// 认领令牌：落地页 / 一键认领 / 释放
	claim := r.Group("/c", tokenLimited)
	{
		claim.GET("/:token", h.Claim.PreviewToken)
		claim.POST("/:token", h.Claim.ClaimByToken)
		claim.POST("/:token/bail", h.Claim.Bail)
	}

	// 邀请令牌：确认入池 / 退订
	verify := r.Group("/v", tokenLimited)
	{
		verify.POST("/:token", h.Casual.VerifyInvite)
		verify.POST("/:token/opt-out", h.Casual.OptOut)
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentManager)

			// 用工池模块
			pools := authorized.Group("/pools")
			{
				pools.POST("", h.Pool.CreatePool)
				pools.GET("", h.Pool.ListPools)
				pools.GET("/:id", h.Pool.GetPool)
				pools.POST("/:id/admins", h.Pool.InviteAdmin)
				pools.GET("/:id/admins", h.Pool.ListAdmins)
				pools.POST("/admin-invites/:token/accept", h.Pool.AcceptAdminInvite)

				// 零工模块
				pools.POST("/:id/casuals", h.Casual.InviteCasual)
				pools.GET("/:id/casuals", h.Casual.ListCasuals)
				pools.POST("/:id/casuals/:casual_id/resend-invite", h.Casual.ResendInvite)
				pools.DELETE("/:id/casuals/:casual_id", h.Casual.RemoveCasual)
				pools.PUT("/:id/casuals/:casual_id/availability", h.Casual.UpdateAvailability)

				// 班次模块
				pools.POST("/:id/shifts", h.Shift.PostShift)
				pools.GET("/:id/shifts", h.Shift.ListShifts)
				pools.GET("/:id/shifts/:shift_id", h.Shift.GetShift)
				pools.POST("/:id/shifts/:shift_id/cancel", h.Shift.CancelShift)
				pools.POST("/:id/shifts/:shift_id/notify", h.Shift.ResendNotifications)

				// 认领模块（经理侧）
				pools.POST("/:id/shifts/:shift_id/claims", h.Claim.WebClaim)
				pools.POST("/:id/shifts/:shift_id/release", h.Claim.ManagerRelease)

				// 导出模块
				pools.GET("/:id/export/claims", h.Export.ExportClaims)
				pools.GET("/:id/export/calendar", h.Export.ExportCalendar)
			}
		}
	}

	return r
}
