package app

import (
	"time"

	"github.com/fisker/salesflow/internal/approval"
	"github.com/fisker/salesflow/internal/service/auth"
	"github.com/fisker/salesflow/pkg/config"
)

// Services 所有服务
type Services struct {
	Tokens      *auth.TokenService
	Coordinator *approval.Coordinator
}

// InitializeServices 初始化所有服务
func InitializeServices(repos *Repositories, cfg *config.Config) *Services {
	return &Services{
		Tokens:      NewTokenService(&cfg.Security),
		Coordinator: approval.NewCoordinator(repos.UnitOfWork, repos.Registry),
	}
}

// NewTokenService 按安全配置创建令牌服务
func NewTokenService(cfg *config.SecurityConfig) *auth.TokenService {
	return auth.NewTokenService(cfg.JWTSecret, time.Duration(cfg.TokenTTL)*time.Second)
}
