package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	approvalHandler "github.com/fisker/salesflow/internal/api/handler/approval"
	"github.com/fisker/salesflow/internal/api/middleware"
	"github.com/fisker/salesflow/internal/approval"
	"github.com/fisker/salesflow/pkg/config"
)

const serviceName = "salesflow"

func Setup(
	approvalH *approvalHandler.ApprovalHandler,
	registry *approval.Registry,
	tokens middleware.TokenValidator,
	cfg *config.ServerConfig,
) *gin.Engine {
	r := gin.New()

	// 使用自定义的 recovery 中间件（打印详细错误信息）
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.RequestIDMiddleware())
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}

	api := r.Group("/api")
	api.Use(
		middleware.TracingMiddleware(serviceName),
		middleware.MetricsMiddleware(),
		middleware.TimeoutMiddleware(cfg.Timeout()),
		middleware.AuthMiddleware(tokens),
	)
	{
		// 五种单据的审批路由，结构一致
		for _, kind := range registry.Kinds() {
			docs := api.Group("/" + kind.Route)
			docs.POST("/approve", approvalH.Approve(kind))                   // 审批
			docs.GET("/:id/approval-status", approvalH.ApprovalStatus(kind)) // 审批进度
			docs.GET("/:id/approvals", approvalH.History(kind))              // 审批记录
		}

		api.GET("/approvals/pending", approvalH.Pending) // 待我审批
	}

	// Prometheus Metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check (支持 GET 和 HEAD 方法)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"type":   "api-server",
		})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "The requested resource was not found.",
		})
	})

	return r
}
