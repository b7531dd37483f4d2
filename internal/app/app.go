package app

import (
	"github.com/fisker/salesflow/pkg/config"
	"github.com/fisker/salesflow/pkg/database"
	"github.com/fisker/salesflow/pkg/logger"
	pkgredis "github.com/fisker/salesflow/pkg/redis"
	"github.com/fisker/salesflow/pkg/tracing"
)

// App 应用程序上下文
type App struct {
	Config   *config.Config
	Repos    *Repositories
	Services *Services
	Handlers *Handlers

	shutdownTracing tracing.ShutdownFunc
}

// Initialize 初始化应用程序
func Initialize(cfgPath string) (app *App, err error) {
	// 1. Bootstrap (logger, database, redis, tracing)
	cfg, shutdownTracing, err := Bootstrap(cfgPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			database.Close()
			pkgredis.Close()
		}
	}()

	// 2. Initialize repositories
	repos := InitializeRepositories(database.DB, pkgredis.Client, cfg)
	logger.Infof("Repositories initialized")

	// 3. Initialize services
	services := InitializeServices(repos, cfg)
	logger.Infof("Services initialized")

	// 4. Initialize handlers
	handlers := InitializeHandlers(services, cfg)
	logger.Infof("Handlers initialized")

	return &App{
		Config:          cfg,
		Repos:           repos,
		Services:        services,
		Handlers:        handlers,
		shutdownTracing: shutdownTracing,
	}, nil
}
