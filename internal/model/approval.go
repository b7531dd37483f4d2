package model

import (
	"time"
)

// ApprovalRecord 单个审批人对单据的审批记录
// 同一 (单据类型, 单据ID, 审批人) 只允许存在一条有效记录：
// 有效记录的 DeletedMarker 为 0，软删除时写入自身 ID，唯一索引因此只约束有效记录
type ApprovalRecord struct {
	ID            int64        `json:"approvalId" gorm:"primaryKey;autoIncrement"`
	DocumentKind  DocumentKind `json:"documentKind" gorm:"type:varchar(30);not null;uniqueIndex:ux_document_approvals_live,priority:1;index:idx_document_approvals_doc,priority:1"`
	DocumentID    int64        `json:"documentId" gorm:"not null;uniqueIndex:ux_document_approvals_live,priority:2;index:idx_document_approvals_doc,priority:2"`
	ApproverID    int64        `json:"approverId" gorm:"not null;uniqueIndex:ux_document_approvals_live,priority:3;index"`
	DeletedMarker int64        `json:"-" gorm:"not null;default:0;uniqueIndex:ux_document_approvals_live,priority:4"`
	Approved      bool         `json:"approved" gorm:"not null;default:false"`
	DecisionAt    time.Time    `json:"decisionTimestamp" gorm:"not null"`
	CreatedBy     int64        `json:"createdBy"`
	CreatedAt     time.Time    `json:"createdAt" gorm:"autoCreateTime"`
	IsDeleted     bool         `json:"isDeleted" gorm:"not null;default:false"`
}

func (ApprovalRecord) TableName() string {
	return "document_approvals"
}

// ApproverIDs 提取审批人ID列表
func ApproverIDs(records []ApprovalRecord) []int64 {
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ApproverID)
	}
	return ids
}
