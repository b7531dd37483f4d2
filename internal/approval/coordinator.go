package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fisker/salesflow/internal/model"
	"github.com/fisker/salesflow/pkg/logger"
	"github.com/fisker/salesflow/pkg/metrics"
)

const tracerName = "github.com/fisker/salesflow/internal/approval"

// State 一次审批请求的终态
type State string

const (
	StatePartiallyApproved State = "PartiallyApproved"
	StateFullyApproved     State = "FullyApproved"
	StateFailed            State = "Failed"
)

// Request 一次审批请求，审批人ID来自已认证的调用方
type Request struct {
	DocumentID int64
	ApproverID int64
}

// Result 审批成功后的结果
type Result struct {
	Kind       Kind                  `json:"-"`
	DocumentID int64                 `json:"documentId"`
	ApproverID int64                 `json:"approverId"`
	State      State                 `json:"state"`
	Quorum     Quorum                `json:"quorum"`
	Record     *model.ApprovalRecord `json:"record"`
	Mismatched []int64               `json:"mismatched,omitempty"`
	Message    string                `json:"message"`
}

// FullyApproved 单据是否已完成审批
func (r *Result) FullyApproved() bool {
	return r != nil && r.State == StateFullyApproved
}

// Option Coordinator 可选项
type Option func(*Coordinator)

// WithClock 替换时间来源（测试使用）
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// Coordinator 审批协调器：权限校验、状态校验、防重复、记账、法定人数计算、状态流转
// 所有步骤在同一事务中执行，任一步骤失败整体回滚
type Coordinator struct {
	uow      UnitOfWork
	registry *Registry
	now      func() time.Time
	tracer   trace.Tracer
}

// NewCoordinator 创建审批协调器
func NewCoordinator(uow UnitOfWork, registry *Registry, opts ...Option) *Coordinator {
	c := &Coordinator{
		uow:      uow,
		registry: registry,
		now:      time.Now,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry 返回单据类型注册表
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// Approve 记录一次审批，所有必需审批人都审批后将单据置为 Approved
func (c *Coordinator) Approve(ctx context.Context, kind Kind, req Request) (result *Result, err error) {
	ctx, span := c.tracer.Start(ctx, "approval.Approve", trace.WithAttributes(
		attribute.String("document.kind", string(kind.Code)),
		attribute.Int64("document.id", req.DocumentID),
		attribute.Int64("approver.id", req.ApproverID),
	))
	start := time.Now()
	defer func() {
		c.observe(kind, req, result, err, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, MessageOf(err))
		} else {
			span.SetAttributes(attribute.String("approval.state", string(result.State)))
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	if err := validate(kind, req); err != nil {
		return nil, err
	}

	var out *Result
	err = c.uow.Transaction(ctx, func(ctx context.Context, s Stores) error {
		r, err := c.approve(ctx, s, kind, req)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, classify(err, "failed to record approval")
	}
	return out, nil
}

func (c *Coordinator) approve(ctx context.Context, s Stores, kind Kind, req Request) (*Result, error) {
	// 行锁必须是事务内第一条语句：MySQL 可重复读在第一次普通读时建立快照，
	// 锁在前才能读到等锁期间已提交的审批记录。错误仍按 权限 -> 状态 的顺序返回
	doc, lockErr := s.Documents.LockForApproval(ctx, kind.Code, req.DocumentID)

	// PermissionChecking
	required, err := c.requiredApprovers(ctx, s, kind)
	if err != nil {
		return nil, err
	}
	allowed, err := s.Directory.HasApprovalPermission(ctx, req.ApproverID, kind.FormName)
	if err != nil {
		return nil, newError(KindPersistence, err, "failed to check approval permission")
	}
	if !allowed {
		return nil, newError(KindPermission, nil, "Approver does not have permission to approve this form")
	}

	// StatusChecking
	if errors.Is(lockErr, ErrDocumentNotFound) || (lockErr == nil && !doc.Live()) {
		return nil, newError(KindPrecondition, nil, "%s does not exist or has been deleted", kind.DisplayName)
	}
	if lockErr != nil {
		return nil, newError(KindPersistence, lockErr, "failed to load %s", kind.DisplayName)
	}
	if doc.Status != model.DocumentStatusPending {
		return nil, newError(KindPrecondition, nil, "status must be Pending to approve, current status: %s", doc.Status)
	}

	// DuplicateChecking
	exists, err := s.Ledger.Exists(ctx, kind.Code, req.DocumentID, req.ApproverID)
	if err != nil {
		return nil, newError(KindPersistence, err, "failed to check existing approval")
	}
	if exists {
		return nil, alreadyApproved(kind)
	}

	// Recording
	record := &model.ApprovalRecord{
		DocumentKind: kind.Code,
		DocumentID:   req.DocumentID,
		ApproverID:   req.ApproverID,
		Approved:     true,
		DecisionAt:   c.now(),
		CreatedBy:    req.ApproverID,
	}
	if err := s.Ledger.Record(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicateApproval) {
			return nil, alreadyApproved(kind)
		}
		return nil, newError(KindPersistence, err, "failed to record approval")
	}

	// QuorumEvaluating
	requiredIDs := approverIDs(required)
	completed, err := s.Ledger.CompletedApprovals(ctx, kind.Code, req.DocumentID, requiredIDs)
	if err != nil {
		return nil, newError(KindPersistence, err, "failed to count approvals")
	}
	all, err := s.Ledger.AllApprovals(ctx, kind.Code, req.DocumentID)
	if err != nil {
		return nil, newError(KindPersistence, err, "failed to list approvals")
	}
	mismatched := Mismatched(requiredIDs, model.ApproverIDs(all))
	if len(mismatched) > 0 {
		metrics.MismatchedApprovalsTotal.WithLabelValues(string(kind.Code)).Add(float64(len(mismatched)))
		logger.Warnf("%s %d has approvals from users outside the required approver set: %v",
			kind.DisplayName, req.DocumentID, mismatched)
	}

	quorum := Evaluate(requiredIDs, model.ApproverIDs(completed))
	result := &Result{
		Kind:       kind,
		DocumentID: req.DocumentID,
		ApproverID: req.ApproverID,
		Quorum:     quorum,
		Record:     record,
		Mismatched: mismatched,
	}

	if !quorum.IsQuorumMet {
		result.State = StatePartiallyApproved
		result.Message = fmt.Sprintf("Approval recorded. Awaiting %d more approval(s).", quorum.Remaining)
		return result, nil
	}

	if err := s.Documents.TransitionToApproved(ctx, kind.Code, req.DocumentID); err != nil {
		return nil, newError(KindPersistence, err, "failed to update %s status", kind.DisplayName)
	}
	result.State = StateFullyApproved
	result.Message = fmt.Sprintf("%s fully approved.", kind.DisplayName)
	return result, nil
}

// requiredApprovers 查询必需审批人，表单缺失或没有配置审批人都视为配置错误
func (c *Coordinator) requiredApprovers(ctx context.Context, s Stores, kind Kind) ([]model.Approver, error) {
	required, err := s.Directory.RequiredApprovers(ctx, kind.FormName)
	if errors.Is(err, ErrFormNotFound) {
		return nil, newError(KindConfiguration, err, "Form %q is not configured", kind.FormName)
	}
	if err != nil {
		return nil, newError(KindPersistence, err, "failed to resolve required approvers")
	}
	if len(required) == 0 {
		return nil, newError(KindConfiguration, nil, "No active approvers are configured for form %q", kind.FormName)
	}
	return required, nil
}

func (c *Coordinator) observe(kind Kind, req Request, result *Result, err error, elapsed time.Duration) {
	outcome := string(StateFailed)
	switch {
	case err != nil:
		outcome = KindOf(err).String()
	case result != nil:
		outcome = string(result.State)
	}
	metrics.ApprovalAttemptsTotal.WithLabelValues(string(kind.Code), outcome).Inc()
	metrics.ApprovalDuration.WithLabelValues(string(kind.Code)).Observe(elapsed.Seconds())

	switch {
	case err == nil:
		logger.Infof("%s %d approved by user %d: %s (%d/%d)", kind.DisplayName, req.DocumentID,
			req.ApproverID, result.State, result.Quorum.ApprovedCount, result.Quorum.RequiredCount)
	case KindOf(err) == KindPersistence || KindOf(err) == KindUnknown:
		logger.Errorf("%s %d approval by user %d failed: %v", kind.DisplayName, req.DocumentID, req.ApproverID, err)
	default:
		logger.Warnf("%s %d approval by user %d rejected (%s): %s", kind.DisplayName, req.DocumentID,
			req.ApproverID, KindOf(err), MessageOf(err))
	}
}

// validate 校验请求，错误信息只列出缺失的字段
func validate(kind Kind, req Request) *Error {
	var missing []string
	if req.DocumentID <= 0 {
		missing = append(missing, kind.IDField)
	}
	if req.ApproverID <= 0 {
		missing = append(missing, "ApproverID")
	}
	switch len(missing) {
	case 0:
		return nil
	case 1:
		return newError(KindValidation, nil, "%s is required", missing[0])
	default:
		return newError(KindValidation, nil, "%s are required", strings.Join(missing, " and "))
	}
}

func alreadyApproved(kind Kind) *Error {
	return newError(KindPrecondition, nil, "Approver has already approved this %s", kind.DisplayName)
}

// classify 事务返回的非 *Error 错误（提交失败、ctx 取消等）统一视为持久化错误
func classify(err error, message string) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(KindPersistence, err, message)
}

func approverIDs(approvers []model.Approver) []int64 {
	ids := make([]int64, 0, len(approvers))
	for _, a := range approvers {
		ids = append(ids, a.UserID)
	}
	return ids
}
