package approval

import (
	"context"

	"github.com/fisker/salesflow/internal/model"
)

// Directory 角色审批人目录（只读参考数据）
type Directory interface {
	// RequiredApprovers 返回表单当前的必需审批人（去重），表单不存在时返回 ErrFormNotFound
	RequiredApprovers(ctx context.Context, formName string) ([]model.Approver, error)
	// HasApprovalPermission 用户是否属于表单的有效审批角色
	HasApprovalPermission(ctx context.Context, userID int64, formName string) (bool, error)
	// FormAccess 用户对表单的读写权限
	FormAccess(ctx context.Context, userID int64, formName string) (model.FormAccess, error)
}

// Ledger 审批记录账本（只追加）
type Ledger interface {
	Exists(ctx context.Context, kind model.DocumentKind, documentID, approverID int64) (bool, error)
	// Record 写入审批记录，违反唯一约束时返回 ErrDuplicateApproval
	Record(ctx context.Context, record *model.ApprovalRecord) error
	// CompletedApprovals 返回审批人属于 requiredIDs 的有效审批记录
	CompletedApprovals(ctx context.Context, kind model.DocumentKind, documentID int64, requiredIDs []int64) ([]model.ApprovalRecord, error)
	AllApprovals(ctx context.Context, kind model.DocumentKind, documentID int64) ([]model.ApprovalRecord, error)
}

// DocumentStore 单据状态存储
type DocumentStore interface {
	// LockForApproval 在当前事务中锁定并读取单据，不存在时返回 ErrDocumentNotFound
	LockForApproval(ctx context.Context, kind model.DocumentKind, id int64) (*model.DocumentState, error)
	Load(ctx context.Context, kind model.DocumentKind, id int64) (*model.DocumentState, error)
	// TransitionToApproved 仅允许 Pending -> Approved，否则返回 ErrInvalidTransition
	TransitionToApproved(ctx context.Context, kind model.DocumentKind, id int64) error
	// ListAwaiting 列出审批人尚未审批的 Pending 单据
	ListAwaiting(ctx context.Context, kind model.DocumentKind, approverID int64, limit int) ([]model.DocumentState, error)
}

// Stores 绑定到同一事务（或只读连接）的存储集合
type Stores struct {
	Directory Directory
	Ledger    Ledger
	Documents DocumentStore
}

// UnitOfWork 事务边界
type UnitOfWork interface {
	// Transaction 在一个事务中执行 fn，fn 返回错误或 ctx 取消时整体回滚
	Transaction(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
	// Reader 返回不开启事务的只读存储
	Reader() Stores
}
