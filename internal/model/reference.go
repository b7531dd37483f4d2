package model

import (
	"time"
)

// 以下为只读参考数据：用户、角色、表单及其关联关系
// 由主数据维护流程写入，审批流程只做查询

// User 系统用户
type User struct {
	UserID    int64     `json:"userId" gorm:"column:user_id;primaryKey;autoIncrement"`
	Username  string    `json:"username" gorm:"type:varchar(50);uniqueIndex;not null"`
	FullName  string    `json:"fullName" gorm:"type:varchar(100)"`
	IsDeleted bool      `json:"isDeleted" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}

// Role 角色
type Role struct {
	RoleID    int64     `json:"roleId" gorm:"column:role_id;primaryKey;autoIncrement"`
	RoleName  string    `json:"roleName" gorm:"type:varchar(100);uniqueIndex;not null"`
	IsDeleted bool      `json:"isDeleted" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

func (Role) TableName() string {
	return "roles"
}

// UserRole 用户-角色关系（一个用户可以属于多个角色）
type UserRole struct {
	ID        int64 `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    int64 `json:"userId" gorm:"not null;index"`
	RoleID    int64 `json:"roleId" gorm:"not null;index"`
	IsDeleted bool  `json:"isDeleted" gorm:"not null;default:false"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

// Form 表单（单据类型对应的可授权资源）
type Form struct {
	FormID    int64  `json:"formId" gorm:"column:form_id;primaryKey;autoIncrement"`
	FormName  string `json:"formName" gorm:"type:varchar(100);uniqueIndex;not null"`
	IsActive  bool   `json:"isActive" gorm:"not null;default:true"`
	IsDeleted bool   `json:"isDeleted" gorm:"not null;default:false"`
}

func (Form) TableName() string {
	return "forms"
}

// FormRole 角色-表单授权（只读/读写）
type FormRole struct {
	FormRoleID int64 `json:"formRoleId" gorm:"column:form_role_id;primaryKey;autoIncrement"`
	FormID     int64 `json:"formId" gorm:"not null;index"`
	RoleID     int64 `json:"roleId" gorm:"not null;index"`
	ReadOnly   bool  `json:"readOnly" gorm:"not null;default:false"`
	ReadWrite  bool  `json:"readWrite" gorm:"not null;default:false"`
	IsDeleted  bool  `json:"isDeleted" gorm:"not null;default:false"`
}

func (FormRole) TableName() string {
	return "form_roles"
}

// FormRoleApprover 角色作为表单审批人的配置
type FormRoleApprover struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	FormID    int64     `json:"formId" gorm:"not null;index"`
	RoleID    int64     `json:"roleId" gorm:"not null;index"`
	ActiveYN  bool      `json:"activeYN" gorm:"column:active_yn;not null;default:true"`
	IsDeleted bool      `json:"isDeleted" gorm:"not null;default:false"`
	CreatedBy int64     `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

func (FormRoleApprover) TableName() string {
	return "form_role_approvers"
}

// Approver 必需审批人（由角色配置推导，不单独存储）
type Approver struct {
	UserID int64  `json:"userID"`
	Name   string `json:"name"`
}

// FormAccess 用户对表单的访问权限
type FormAccess struct {
	ReadOnly  bool `json:"readOnly"`
	ReadWrite bool `json:"readWrite"`
}

// CanRead 是否可以查看表单数据
func (a FormAccess) CanRead() bool {
	return a.ReadOnly || a.ReadWrite
}
