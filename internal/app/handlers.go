package app

import (
	approvalHandler "github.com/fisker/salesflow/internal/api/handler/approval"
	"github.com/fisker/salesflow/pkg/config"
)

// Handlers 所有处理器
type Handlers struct {
	Approval *approvalHandler.ApprovalHandler
}

// InitializeHandlers 初始化所有处理器
func InitializeHandlers(services *Services, cfg *config.Config) *Handlers {
	return &Handlers{
		Approval: approvalHandler.NewApprovalHandler(services.Coordinator, cfg.Approval.PendingLimit),
	}
}
