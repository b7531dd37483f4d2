package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/fisker/salesflow/internal/approval"
	"github.com/fisker/salesflow/internal/model"
)

// DirectoryRepository 角色/表单参考数据查询
type DirectoryRepository struct {
	db    *gorm.DB
	cache FormCache
}

func NewDirectoryRepository(db *gorm.DB, cache FormCache) *DirectoryRepository {
	if cache == nil {
		cache = NoopFormCache{}
	}
	return &DirectoryRepository{db: db, cache: cache}
}

// formID 根据表单名查找有效表单ID（优先读缓存）
// cached 为 true 表示ID来自缓存，未重新校验表单状态
func (r *DirectoryRepository) formID(ctx context.Context, formName string) (id int64, cached bool, err error) {
	if id, ok := r.cache.Get(ctx, formName); ok {
		return id, true, nil
	}

	var form model.Form
	err = r.db.WithContext(ctx).
		Where("form_name = ? AND is_active = ? AND is_deleted = ?", formName, true, false).
		First(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, approval.ErrFormNotFound
	}
	if err != nil {
		return 0, false, err
	}

	r.cache.Set(ctx, formName, form.FormID)
	return form.FormID, false, nil
}

// approverQuery 表单有效审批角色下的有效用户
// 表单ID可能来自缓存，这里重新校验表单仍然有效
func (r *DirectoryRepository) approverQuery(ctx context.Context, formID int64) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("form_role_approvers AS fra").
		Joins("INNER JOIN forms ON forms.form_id = fra.form_id AND forms.is_active = ? AND forms.is_deleted = ?", true, false).
		Joins("INNER JOIN roles ON roles.role_id = fra.role_id AND roles.is_deleted = ?", false).
		Joins("INNER JOIN user_roles ON user_roles.role_id = fra.role_id AND user_roles.is_deleted = ?", false).
		Joins("INNER JOIN users ON users.user_id = user_roles.user_id AND users.is_deleted = ?", false).
		Where("fra.form_id = ? AND fra.active_yn = ? AND fra.is_deleted = ?", formID, true, false)
}

// RequiredApprovers 表单当前的必需审批人（按用户去重）
func (r *DirectoryRepository) RequiredApprovers(ctx context.Context, formName string) ([]model.Approver, error) {
	formID, cached, err := r.formID(ctx, formName)
	if err != nil {
		return nil, err
	}

	var approvers []model.Approver
	err = r.approverQuery(ctx, formID).
		Select("DISTINCT users.user_id, COALESCE(NULLIF(users.full_name, ''), users.username) AS name").
		Order("users.user_id").
		Scan(&approvers).Error
	if err != nil {
		return nil, err
	}

	// 缓存中的表单可能已停用或删除，清掉缓存后重新确认
	if len(approvers) == 0 && cached {
		if err := r.cache.Invalidate(ctx, formName); err != nil {
			return nil, err
		}
		if _, _, err := r.formID(ctx, formName); err != nil {
			return nil, err
		}
	}
	return approvers, nil
}

// HasApprovalPermission 用户是否属于表单的有效审批角色
func (r *DirectoryRepository) HasApprovalPermission(ctx context.Context, userID int64, formName string) (bool, error) {
	formID, _, err := r.formID(ctx, formName)
	if errors.Is(err, approval.ErrFormNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var count int64
	err = r.approverQuery(ctx, formID).
		Where("users.user_id = ?", userID).
		Count(&count).Error
	return count > 0, err
}

// FormAccess 用户通过所属角色获得的表单读写权限（多个角色取并集）
func (r *DirectoryRepository) FormAccess(ctx context.Context, userID int64, formName string) (model.FormAccess, error) {
	formID, _, err := r.formID(ctx, formName)
	if err != nil {
		return model.FormAccess{}, err
	}

	var grants []model.FormAccess
	err = r.db.WithContext(ctx).
		Table("form_roles").
		Select("form_roles.read_only, form_roles.read_write").
		Joins("INNER JOIN user_roles ON user_roles.role_id = form_roles.role_id AND user_roles.is_deleted = ?", false).
		Joins("INNER JOIN roles ON roles.role_id = form_roles.role_id AND roles.is_deleted = ?", false).
		Joins("INNER JOIN forms ON forms.form_id = form_roles.form_id AND forms.is_active = ? AND forms.is_deleted = ?", true, false).
		Where("form_roles.form_id = ? AND form_roles.is_deleted = ? AND user_roles.user_id = ?", formID, false, userID).
		Scan(&grants).Error
	if err != nil {
		return model.FormAccess{}, err
	}

	var access model.FormAccess
	for _, g := range grants {
		access.ReadOnly = access.ReadOnly || g.ReadOnly
		access.ReadWrite = access.ReadWrite || g.ReadWrite
	}
	return access, nil
}
