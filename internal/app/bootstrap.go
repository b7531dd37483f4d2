package app

import (
	"fmt"
	"os"

	"github.com/fisker/salesflow/pkg/config"
	"github.com/fisker/salesflow/pkg/database"
	"github.com/fisker/salesflow/pkg/logger"
	pkgredis "github.com/fisker/salesflow/pkg/redis"
	"github.com/fisker/salesflow/pkg/tracing"
)

const (
	serviceName    = "salesflow"
	serviceVersion = "1.0.0"
)

// ResolveConfigPath 命令行参数优先，其次环境变量 SALESFLOW_CONFIG，最后默认路径
func ResolveConfigPath(cfgPath string) string {
	if cfgPath != "" {
		return cfgPath
	}
	if env := os.Getenv("SALESFLOW_CONFIG"); env != "" {
		return env
	}
	return "config/config.yaml"
}

// LoadConfig 读取配置并初始化日志
func LoadConfig(cfgPath string) (*config.Config, error) {
	cfg, err := config.Load(ResolveConfigPath(cfgPath))
	if err != nil {
		return nil, err
	}
	if err := logger.Init(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// Bootstrap 初始化基础设施（logger, database, redis, tracing）
func Bootstrap(cfgPath string) (*config.Config, tracing.ShutdownFunc, error) {
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	shutdownTracing, err := tracing.Init(&cfg.Tracing, serviceName, serviceVersion)
	if err != nil {
		// 链路追踪不影响主流程
		logger.Warnf("Tracing initialization failed: %v", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Redis 可选，仅用于表单ID缓存
	if err := pkgredis.Init(&cfg.Redis); err != nil {
		logger.Warnf("Redis initialization failed: %v", err)
		logger.Info("   → Form lookups will go to the database")
	} else if cfg.Redis.Enabled {
		logger.Infof("Redis initialized successfully - form cache enabled")
	}

	return cfg, shutdownTracing, nil
}
