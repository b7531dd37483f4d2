package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/fisker/salesflow/internal/approval"
	"github.com/fisker/salesflow/internal/model"
)

// LedgerRepository 审批记录（document_approvals）
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) live(ctx context.Context, kind model.DocumentKind, documentID int64) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.ApprovalRecord{}).
		Where("document_kind = ? AND document_id = ? AND is_deleted = ?", kind, documentID, false)
}

// Exists 审批人是否已有有效审批记录
func (r *LedgerRepository) Exists(ctx context.Context, kind model.DocumentKind, documentID, approverID int64) (bool, error) {
	var count int64
	err := r.live(ctx, kind, documentID).
		Where("approver_id = ?", approverID).
		Count(&count).Error
	return count > 0, err
}

// Record 写入审批记录，唯一索引冲突转换为 ErrDuplicateApproval
func (r *LedgerRepository) Record(ctx context.Context, record *model.ApprovalRecord) error {
	err := r.db.WithContext(ctx).Create(record).Error
	if isDuplicateKey(err) {
		return approval.ErrDuplicateApproval
	}
	return err
}

// CompletedApprovals 必需审批人中已审批的记录
func (r *LedgerRepository) CompletedApprovals(ctx context.Context, kind model.DocumentKind, documentID int64, requiredIDs []int64) ([]model.ApprovalRecord, error) {
	if len(requiredIDs) == 0 {
		return nil, nil
	}
	var records []model.ApprovalRecord
	err := r.live(ctx, kind, documentID).
		Where("approved = ? AND approver_id IN ?", true, requiredIDs).
		Order("decision_at, id").
		Find(&records).Error
	return records, err
}

// AllApprovals 单据的全部有效审批记录
func (r *LedgerRepository) AllApprovals(ctx context.Context, kind model.DocumentKind, documentID int64) ([]model.ApprovalRecord, error) {
	var records []model.ApprovalRecord
	err := r.live(ctx, kind, documentID).
		Order("decision_at, id").
		Find(&records).Error
	return records, err
}

// isDuplicateKey 依赖 gorm 的 TranslateError 将驱动的唯一约束错误转换为 ErrDuplicatedKey
func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
