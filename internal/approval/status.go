package approval

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fisker/salesflow/internal/model"
	"github.com/fisker/salesflow/pkg/logger"
)

// ApproverStatus 单个必需审批人的审批情况
type ApproverStatus struct {
	UserID            int64      `json:"userID"`
	Name              string     `json:"name"`
	Approved          bool       `json:"approved"`
	DecisionTimestamp *time.Time `json:"decisionTimestamp"`
}

// MismatchedApproval 不在当前必需集合中的审批人留下的记录
type MismatchedApproval struct {
	UserID            int64     `json:"userID"`
	DecisionTimestamp time.Time `json:"decisionTimestamp"`
}

// ApprovalStatus 单据审批进度
type ApprovalStatus struct {
	Kind               model.DocumentKind   `json:"documentKind"`
	DocumentID         int64                `json:"documentId"`
	Status             model.DocumentStatus `json:"status"`
	RequiredApprovers  int                  `json:"requiredApprovers"`
	CompletedApprovals int                  `json:"completedApprovals"`
	Approvals          []ApproverStatus     `json:"approvalStatus"`
	Mismatched         []MismatchedApproval `json:"mismatchedApprovals"`
}

// PendingDocument 等待某个审批人处理的单据
type PendingDocument struct {
	Kind        model.DocumentKind   `json:"documentKind"`
	DisplayName string               `json:"documentName"`
	DocumentID  int64                `json:"documentId"`
	Status      model.DocumentStatus `json:"status"`
}

// Status 查询单据审批进度，查看者需要是审批人或拥有表单读权限
func (c *Coordinator) Status(ctx context.Context, kind Kind, documentID, viewerID int64) (*ApprovalStatus, error) {
	ctx, span := c.tracer.Start(ctx, "approval.Status", trace.WithAttributes(
		attribute.String("document.kind", string(kind.Code)),
		attribute.Int64("document.id", documentID),
	))
	defer span.End()

	s := c.uow.Reader()
	doc, err := c.viewable(ctx, s, kind, documentID, viewerID)
	if err != nil {
		return nil, err
	}

	required, err := s.Directory.RequiredApprovers(ctx, kind.FormName)
	if err != nil {
		return nil, classify(err, "failed to resolve required approvers")
	}
	all, err := s.Ledger.AllApprovals(ctx, kind.Code, documentID)
	if err != nil {
		return nil, newError(KindPersistence, err, "failed to list approvals")
	}

	byApprover := make(map[int64]model.ApprovalRecord, len(all))
	for _, r := range all {
		if r.Approved {
			byApprover[r.ApproverID] = r
		}
	}

	status := &ApprovalStatus{
		Kind:              kind.Code,
		DocumentID:        documentID,
		Status:            doc.Status,
		RequiredApprovers: len(required),
		Approvals:         make([]ApproverStatus, 0, len(required)),
		Mismatched:        []MismatchedApproval{},
	}

	requiredSet := make(map[int64]struct{}, len(required))
	for _, a := range required {
		requiredSet[a.UserID] = struct{}{}
		item := ApproverStatus{UserID: a.UserID, Name: a.Name}
		if r, ok := byApprover[a.UserID]; ok {
			at := r.DecisionAt
			item.Approved = true
			item.DecisionTimestamp = &at
			status.CompletedApprovals++
		}
		status.Approvals = append(status.Approvals, item)
	}
	for _, r := range all {
		if _, ok := requiredSet[r.ApproverID]; !ok {
			status.Mismatched = append(status.Mismatched, MismatchedApproval{
				UserID:            r.ApproverID,
				DecisionTimestamp: r.DecisionAt,
			})
		}
	}
	return status, nil
}

// History 返回单据全部有效审批记录（含不匹配的审批人），用于审计
func (c *Coordinator) History(ctx context.Context, kind Kind, documentID, viewerID int64) ([]model.ApprovalRecord, error) {
	s := c.uow.Reader()
	if _, err := c.viewable(ctx, s, kind, documentID, viewerID); err != nil {
		return nil, err
	}
	records, err := s.Ledger.AllApprovals(ctx, kind.Code, documentID)
	if err != nil {
		return nil, newError(KindPersistence, err, "failed to list approvals")
	}
	return records, nil
}

// Pending 返回用户有审批权限、且尚未审批的 Pending 单据
func (c *Coordinator) Pending(ctx context.Context, userID int64, limit int) ([]PendingDocument, error) {
	if userID <= 0 {
		return nil, newError(KindValidation, nil, "ApproverID is required")
	}

	s := c.uow.Reader()
	out := []PendingDocument{}
	for _, kind := range c.registry.Kinds() {
		allowed, err := s.Directory.HasApprovalPermission(ctx, userID, kind.FormName)
		if err != nil {
			return nil, newError(KindPersistence, err, "failed to check approval permission")
		}
		if !allowed {
			continue
		}
		docs, err := s.Documents.ListAwaiting(ctx, kind.Code, userID, limit)
		if err != nil {
			return nil, newError(KindPersistence, err, "failed to list pending %s", kind.DisplayName)
		}
		for _, d := range docs {
			out = append(out, PendingDocument{
				Kind:        kind.Code,
				DisplayName: kind.DisplayName,
				DocumentID:  d.ID,
				Status:      d.Status,
			})
		}
	}
	return out, nil
}

// viewable 校验查看权限并读取单据
func (c *Coordinator) viewable(ctx context.Context, s Stores, kind Kind, documentID, viewerID int64) (*model.DocumentState, error) {
	if documentID <= 0 {
		return nil, newError(KindValidation, nil, "%s is required", kind.IDField)
	}

	allowed, err := s.Directory.HasApprovalPermission(ctx, viewerID, kind.FormName)
	if err != nil {
		return nil, newError(KindPersistence, err, "failed to check approval permission")
	}
	if !allowed {
		access, err := s.Directory.FormAccess(ctx, viewerID, kind.FormName)
		if errors.Is(err, ErrFormNotFound) {
			return nil, newError(KindConfiguration, err, "Form %q is not configured", kind.FormName)
		}
		if err != nil {
			return nil, newError(KindPersistence, err, "failed to check form access")
		}
		if !access.CanRead() {
			logger.Debugf("user %d denied read access to %s %d", viewerID, kind.DisplayName, documentID)
			return nil, newError(KindPermission, nil, "User does not have permission to view this form")
		}
	}

	doc, err := s.Documents.Load(ctx, kind.Code, documentID)
	if errors.Is(err, ErrDocumentNotFound) || (err == nil && !doc.Live()) {
		return nil, newError(KindPrecondition, nil, "%s does not exist or has been deleted", kind.DisplayName)
	}
	if err != nil {
		return nil, newError(KindPersistence, err, "failed to load %s", kind.DisplayName)
	}
	return doc, nil
}
