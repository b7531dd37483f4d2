package app

import (
	"database/sql"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/fisker/salesflow/internal/approval"
	"github.com/fisker/salesflow/internal/repository"
	"github.com/fisker/salesflow/pkg/config"
)

// Repositories 所有仓储
type Repositories struct {
	Registry   *approval.Registry
	FormCache  repository.FormCache
	UnitOfWork *repository.UnitOfWork
	User       *repository.UserRepository
}

// InitializeRepositories 初始化所有仓储，redisClient 为 nil 时不使用缓存
func InitializeRepositories(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Repositories {
	registry := approval.NewRegistry(cfg.Approval.FormNames)
	cache := repository.NewFormCache(redisClient, cfg.Approval.CacheTTL())

	return &Repositories{
		Registry:   registry,
		FormCache:  cache,
		UnitOfWork: repository.NewUnitOfWork(db, cache, registry, unitOfWorkOptions(cfg.Database.Driver)...),
		User:       repository.NewUserRepository(db),
	}
}

// unitOfWorkOptions MySQL 审批事务使用读已提交：等锁结束后的读取必须看到已提交的审批记录
func unitOfWorkOptions(driver string) []repository.UnitOfWorkOption {
	switch driver {
	case "mysql", "":
		return []repository.UnitOfWorkOption{repository.WithIsolation(sql.LevelReadCommitted)}
	default:
		return nil
	}
}
