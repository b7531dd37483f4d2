package repository

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fisker/salesflow/internal/model"
	"github.com/fisker/salesflow/pkg/database"
)

// newTestDB 内存 SQLite，单连接保证所有查询看到同一个库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

type seed struct {
	db *gorm.DB
	t  *testing.T
}

func (s seed) user(id int64, username, fullName string) {
	require.NoError(s.t, s.db.Create(&model.User{UserID: id, Username: username, FullName: fullName}).Error)
}

func (s seed) role(id int64, name string) {
	require.NoError(s.t, s.db.Create(&model.Role{RoleID: id, RoleName: name}).Error)
}

func (s seed) member(userID, roleID int64) *model.UserRole {
	ur := &model.UserRole{UserID: userID, RoleID: roleID}
	require.NoError(s.t, s.db.Create(ur).Error)
	return ur
}

func (s seed) form(id int64, name string) {
	require.NoError(s.t, s.db.Create(&model.Form{FormID: id, FormName: name, IsActive: true}).Error)
}

func (s seed) approverRole(formID, roleID int64) *model.FormRoleApprover {
	fra := &model.FormRoleApprover{FormID: formID, RoleID: roleID, ActiveYN: true}
	require.NoError(s.t, s.db.Create(fra).Error)
	return fra
}

func (s seed) grant(formID, roleID int64, readOnly, readWrite bool) {
	require.NoError(s.t, s.db.Create(&model.FormRole{FormID: formID, RoleID: roleID, ReadOnly: readOnly, ReadWrite: readWrite}).Error)
}

func (s seed) salesOrder(id int64, status model.DocumentStatus) {
	doc := &model.SalesOrder{DocumentBase: model.DocumentBase{ID: id, Status: status}, OrderNumber: "SO-1"}
	require.NoError(s.t, s.db.Create(doc).Error)
}

// salesOrderForm 表单 "Sales Order"：角色 10(alice,bob) 与角色 11(bob,carol) 为审批角色
func salesOrderForm(t *testing.T, db *gorm.DB) seed {
	s := seed{db: db, t: t}
	s.user(1, "alice", "Alice Chen")
	s.user(2, "bob", "")
	s.user(3, "carol", "Carol Wu")
	s.user(4, "dave", "Dave Li")
	s.role(10, "Sales Manager")
	s.role(11, "Finance")
	s.role(12, "Sales Clerk")
	s.member(1, 10)
	s.member(2, 10)
	s.member(2, 11)
	s.member(3, 11)
	s.member(4, 12)
	s.form(100, "Sales Order")
	s.approverRole(100, 10)
	s.approverRole(100, 11)
	s.grant(100, 12, true, false)
	s.salesOrder(1, model.DocumentStatusPending)
	return s
}

// softDeleteApproval 模拟外部流程软删除审批记录，写入 deleted_marker 释放唯一索引
func softDeleteApproval(t *testing.T, db *gorm.DB, id int64) {
	t.Helper()
	require.NoError(t, db.Model(&model.ApprovalRecord{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_marker": id}).Error)
}
