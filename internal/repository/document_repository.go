package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fisker/salesflow/internal/approval"
	"github.com/fisker/salesflow/internal/model"
)

// DocumentRepository 五种单据共用的状态读写，按单据类型路由到对应表
type DocumentRepository struct {
	db       *gorm.DB
	registry *approval.Registry
}

func NewDocumentRepository(db *gorm.DB, registry *approval.Registry) *DocumentRepository {
	return &DocumentRepository{db: db, registry: registry}
}

func (r *DocumentRepository) table(ctx context.Context, kind model.DocumentKind) (*gorm.DB, error) {
	table, err := r.registry.TableFor(kind)
	if err != nil {
		return nil, err
	}
	return r.db.WithContext(ctx).Table(table), nil
}

func (r *DocumentRepository) load(ctx context.Context, kind model.DocumentKind, id int64, lock bool) (*model.DocumentState, error) {
	q, err := r.table(ctx, kind)
	if err != nil {
		return nil, err
	}
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var doc model.DocumentState
	err = q.Select("id, status, is_deleted").Where("id = ?", id).Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, approval.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.Kind = kind
	return &doc, nil
}

// LockForApproval SELECT ... FOR UPDATE，必须在事务中调用
func (r *DocumentRepository) LockForApproval(ctx context.Context, kind model.DocumentKind, id int64) (*model.DocumentState, error) {
	return r.load(ctx, kind, id, true)
}

func (r *DocumentRepository) Load(ctx context.Context, kind model.DocumentKind, id int64) (*model.DocumentState, error) {
	return r.load(ctx, kind, id, false)
}

// TransitionToApproved 条件更新：只有未删除的 Pending 单据才会被更新
func (r *DocumentRepository) TransitionToApproved(ctx context.Context, kind model.DocumentKind, id int64) error {
	q, err := r.table(ctx, kind)
	if err != nil {
		return err
	}
	res := q.Where("id = ? AND status = ? AND is_deleted = ?", id, model.DocumentStatusPending, false).
		Updates(map[string]interface{}{"status": model.DocumentStatusApproved, "updated_at": gorm.Expr("CURRENT_TIMESTAMP")})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return approval.ErrInvalidTransition
	}
	return nil
}

// ListAwaiting 审批人尚未审批的 Pending 单据，按ID升序
func (r *DocumentRepository) ListAwaiting(ctx context.Context, kind model.DocumentKind, approverID int64, limit int) ([]model.DocumentState, error) {
	q, err := r.table(ctx, kind)
	if err != nil {
		return nil, err
	}

	approved := r.db.WithContext(ctx).
		Model(&model.ApprovalRecord{}).
		Select("document_id").
		Where("document_kind = ? AND approver_id = ? AND is_deleted = ?", kind, approverID, false)

	q = q.Select("id, status, is_deleted").
		Where("status = ? AND is_deleted = ?", model.DocumentStatusPending, false).
		Where("id NOT IN (?)", approved).
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var docs []model.DocumentState
	if err := q.Find(&docs).Error; err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].Kind = kind
	}
	return docs, nil
}
