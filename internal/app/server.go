package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fisker/salesflow/internal/api/router"
	"github.com/fisker/salesflow/pkg/config"
	"github.com/fisker/salesflow/pkg/database"
	"github.com/fisker/salesflow/pkg/logger"
	pkgredis "github.com/fisker/salesflow/pkg/redis"
)

// Router 构建 HTTP 路由
func (a *App) Router() *gin.Engine {
	gin.SetMode(a.Config.Server.Mode)
	return router.Setup(a.Handlers.Approval, a.Repos.Registry, a.Services.Tokens, &a.Config.Server)
}

// Run 启动 HTTP 服务器，收到退出信号或 ctx 取消后优雅关闭
func (a *App) Run(ctx context.Context, cfgPath string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", a.Config.Server.APIPort)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 配置文件变更时热更新日志级别，其余配置需要重启生效
	watcher, err := config.Watch(ResolveConfigPath(cfgPath), func(cfg *config.Config) {
		logger.SetLevel(cfg.Logging.Level)
		logger.Infof("Config reloaded, log level: %s", cfg.Logging.Level)
	}, func(err error) {
		logger.Warnf("Config reload failed: %v", err)
	})
	if err != nil {
		logger.Warnf("Config watcher disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	printStartupBanner(a.Config)

	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			a.Close()
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Infof("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("  → Stopping HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("  HTTP server shutdown error: %v", err)
	} else {
		logger.Infof("  ✓ HTTP server stopped")
	}

	a.Close()
	logger.Infof("Shutdown complete")
	return nil
}

// Close 释放数据库、Redis 与链路追踪资源
func (a *App) Close() {
	logger.Infof("  → Closing database...")
	if err := database.Close(); err != nil {
		logger.Warnf("  Database close error: %v", err)
	}

	if pkgredis.IsEnabled() {
		logger.Infof("  → Closing Redis...")
		pkgredis.Close()
	}

	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			logger.Warnf("  Tracing shutdown error: %v", err)
		}
	}
	logger.Sync()
}

// printStartupBanner 打印启动横幅
func printStartupBanner(cfg *config.Config) {
	logger.Infof("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Infof("SalesFlow Approval Server")
	logger.Infof("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Infof("   • API         - :%d/api", cfg.Server.APIPort)
	logger.Infof("   • Metrics     - :%d/metrics", cfg.Server.APIPort)
	logger.Infof("   • Database    - %s", cfg.Database.Driver)
	logger.Infof("   • Form cache  - redis=%t ttl=%ds", cfg.Redis.Enabled, cfg.Approval.FormCacheTTL)
	logger.Infof("   • Tracing     - %t", cfg.Tracing.Enabled)
	logger.Infof("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}
