// Package memory 提供审批存储的内存实现，用于测试和本地演示
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fisker/salesflow/internal/approval"
	"github.com/fisker/salesflow/internal/model"
)

type docKey struct {
	kind model.DocumentKind
	id   int64
}

type form struct {
	approvers []model.Approver
	access    map[int64]model.FormAccess
}

// Store 内存存储，事务之间串行执行，事务内的写入在提交时才生效
type Store struct {
	mu      sync.Mutex
	forms   map[string]*form
	docs    map[docKey]model.DocumentState
	records []model.ApprovalRecord
	nextID  int64

	transitionErr error
}

// New 创建空的内存存储
func New() *Store {
	return &Store{
		forms: make(map[string]*form),
		docs:  make(map[docKey]model.DocumentState),
	}
}

// ConfigureForm 注册表单及其必需审批人（覆盖原有配置）
func (s *Store) ConfigureForm(formName string, approvers ...model.Approver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forms[formName]
	if !ok {
		f = &form{access: make(map[int64]model.FormAccess)}
		s.forms[formName] = f
	}
	f.approvers = append([]model.Approver(nil), approvers...)
}

// GrantAccess 设置用户对表单的读写权限
func (s *Store) GrantAccess(formName string, userID int64, access model.FormAccess) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.forms[formName]; ok {
		f.access[userID] = access
	}
}

// PutDocument 写入单据
func (s *Store) PutDocument(kind model.DocumentKind, id int64, status model.DocumentStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[docKey{kind, id}] = model.DocumentState{Kind: kind, ID: id, Status: status}
}

// DeleteDocument 软删除单据
func (s *Store) DeleteDocument(kind model.DocumentKind, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := docKey{kind, id}
	if d, ok := s.docs[k]; ok {
		d.IsDeleted = true
		s.docs[k] = d
	}
}

// Document 读取单据当前状态
func (s *Store) Document(kind model.DocumentKind, id int64) (model.DocumentState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[docKey{kind, id}]
	return d, ok
}

// Records 返回单据的有效审批记录
func (s *Store) Records(kind model.DocumentKind, id int64) []model.ApprovalRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(kind, id)
}

// FailTransitions 之后的状态流转都返回 err，nil 表示恢复
func (s *Store) FailTransitions(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitionErr = err
}

// Transaction 实现 approval.UnitOfWork
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, st approval.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &view{store: s, locked: true, staged: &stage{status: make(map[docKey]model.DocumentStatus)}}
	if err := fn(ctx, tx.stores()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.staged.apply(s)
	return nil
}

// Reader 实现 approval.UnitOfWork
func (s *Store) Reader() approval.Stores {
	return (&view{store: s}).stores()
}

func (s *Store) live(kind model.DocumentKind, id int64) []model.ApprovalRecord {
	var out []model.ApprovalRecord
	for _, r := range s.records {
		if r.DocumentKind == kind && r.DocumentID == id && !r.IsDeleted {
			out = append(out, r)
		}
	}
	return out
}

// stage 事务内尚未提交的写入
type stage struct {
	records []model.ApprovalRecord
	status  map[docKey]model.DocumentStatus
}

func (st *stage) apply(s *Store) {
	s.records = append(s.records, st.records...)
	for k, status := range st.status {
		d := s.docs[k]
		d.Status = status
		s.docs[k] = d
	}
}

// view 事务内视图（locked 为 true，已持有锁）或只读视图
type view struct {
	store  *Store
	locked bool
	staged *stage
}

func (v *view) stores() approval.Stores {
	return approval.Stores{Directory: v, Ledger: v, Documents: v}
}

func (v *view) lock() func() {
	if v.locked {
		return func() {}
	}
	v.store.mu.Lock()
	return v.store.mu.Unlock
}

func (v *view) RequiredApprovers(_ context.Context, formName string) ([]model.Approver, error) {
	defer v.lock()()
	f, ok := v.store.forms[formName]
	if !ok {
		return nil, approval.ErrFormNotFound
	}
	seen := make(map[int64]struct{}, len(f.approvers))
	out := make([]model.Approver, 0, len(f.approvers))
	for _, a := range f.approvers {
		if _, dup := seen[a.UserID]; dup {
			continue
		}
		seen[a.UserID] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}

func (v *view) HasApprovalPermission(_ context.Context, userID int64, formName string) (bool, error) {
	defer v.lock()()
	f, ok := v.store.forms[formName]
	if !ok {
		return false, nil
	}
	for _, a := range f.approvers {
		if a.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (v *view) FormAccess(_ context.Context, userID int64, formName string) (model.FormAccess, error) {
	defer v.lock()()
	f, ok := v.store.forms[formName]
	if !ok {
		return model.FormAccess{}, approval.ErrFormNotFound
	}
	return f.access[userID], nil
}

func (v *view) records(kind model.DocumentKind, id int64) []model.ApprovalRecord {
	out := v.store.live(kind, id)
	if v.staged != nil {
		for _, r := range v.staged.records {
			if r.DocumentKind == kind && r.DocumentID == id {
				out = append(out, r)
			}
		}
	}
	return out
}

func (v *view) Exists(_ context.Context, kind model.DocumentKind, documentID, approverID int64) (bool, error) {
	defer v.lock()()
	for _, r := range v.records(kind, documentID) {
		if r.ApproverID == approverID {
			return true, nil
		}
	}
	return false, nil
}

func (v *view) Record(_ context.Context, record *model.ApprovalRecord) error {
	defer v.lock()()
	for _, r := range v.records(record.DocumentKind, record.DocumentID) {
		if r.ApproverID == record.ApproverID {
			return approval.ErrDuplicateApproval
		}
	}
	v.store.nextID++
	record.ID = v.store.nextID
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if v.staged != nil {
		v.staged.records = append(v.staged.records, *record)
	} else {
		v.store.records = append(v.store.records, *record)
	}
	return nil
}

func (v *view) CompletedApprovals(_ context.Context, kind model.DocumentKind, documentID int64, requiredIDs []int64) ([]model.ApprovalRecord, error) {
	defer v.lock()()
	required := make(map[int64]struct{}, len(requiredIDs))
	for _, id := range requiredIDs {
		required[id] = struct{}{}
	}
	var out []model.ApprovalRecord
	for _, r := range v.records(kind, documentID) {
		if _, ok := required[r.ApproverID]; ok && r.Approved {
			out = append(out, r)
		}
	}
	return out, nil
}

func (v *view) AllApprovals(_ context.Context, kind model.DocumentKind, documentID int64) ([]model.ApprovalRecord, error) {
	defer v.lock()()
	return v.records(kind, documentID), nil
}

func (v *view) document(kind model.DocumentKind, id int64) (*model.DocumentState, error) {
	k := docKey{kind, id}
	d, ok := v.store.docs[k]
	if !ok {
		return nil, approval.ErrDocumentNotFound
	}
	if v.staged != nil {
		if status, ok := v.staged.status[k]; ok {
			d.Status = status
		}
	}
	return &d, nil
}

func (v *view) LockForApproval(_ context.Context, kind model.DocumentKind, id int64) (*model.DocumentState, error) {
	defer v.lock()()
	return v.document(kind, id)
}

func (v *view) Load(_ context.Context, kind model.DocumentKind, id int64) (*model.DocumentState, error) {
	defer v.lock()()
	return v.document(kind, id)
}

func (v *view) TransitionToApproved(_ context.Context, kind model.DocumentKind, id int64) error {
	defer v.lock()()
	if v.store.transitionErr != nil {
		return v.store.transitionErr
	}
	d, err := v.document(kind, id)
	if err != nil {
		return err
	}
	if !d.Live() || d.Status != model.DocumentStatusPending {
		return approval.ErrInvalidTransition
	}
	k := docKey{kind, id}
	if v.staged != nil {
		v.staged.status[k] = model.DocumentStatusApproved
		return nil
	}
	d.Status = model.DocumentStatusApproved
	v.store.docs[k] = *d
	return nil
}

func (v *view) ListAwaiting(_ context.Context, kind model.DocumentKind, approverID int64, limit int) ([]model.DocumentState, error) {
	defer v.lock()()
	var out []model.DocumentState
	for k, d := range v.store.docs {
		if k.kind != kind || !d.Live() || d.Status != model.DocumentStatusPending {
			continue
		}
		approved := false
		for _, r := range v.store.live(kind, k.id) {
			if r.ApproverID == approverID {
				approved = true
				break
			}
		}
		if !approved {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
