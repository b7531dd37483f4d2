package approval_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fisker/salesflow/internal/approval"
	"github.com/fisker/salesflow/internal/approval/memory"
	"github.com/fisker/salesflow/internal/model"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store *memory.Store
	coord *approval.Coordinator
	kind  approval.Kind
}

func newFixture(t *testing.T, code model.DocumentKind, approvers ...model.Approver) *fixture {
	t.Helper()
	registry := approval.NewRegistry(nil)
	kind, err := registry.Lookup(code)
	require.NoError(t, err)

	store := memory.New()
	store.ConfigureForm(kind.FormName, approvers...)
	store.PutDocument(code, 1, model.DocumentStatusPending)

	coord := approval.NewCoordinator(store, registry, approval.WithClock(func() time.Time { return fixedNow }))
	return &fixture{store: store, coord: coord, kind: kind}
}

func (f *fixture) approve(docID, userID int64) (*approval.Result, error) {
	return f.coord.Approve(context.Background(), f.kind, approval.Request{DocumentID: docID, ApproverID: userID})
}

func u(id int64, name string) model.Approver {
	return model.Approver{UserID: id, Name: name}
}

func TestApproveReachesQuorum(t *testing.T) {
	f := newFixture(t, model.DocumentKindSalesOrder, u(1, "alice"), u(2, "bob"))

	res, err := f.approve(1, 1)
	require.NoError(t, err)
	assert.Equal(t, approval.StatePartiallyApproved, res.State)
	assert.False(t, res.FullyApproved())
	assert.Equal(t, "Approval recorded. Awaiting 1 more approval(s).", res.Message)
	assert.Equal(t, approval.Quorum{ApprovedCount: 1, RequiredCount: 2, Remaining: 1}, res.Quorum)
	assert.Equal(t, fixedNow, res.Record.DecisionAt)
	assert.True(t, res.Record.Approved)

	doc, _ := f.store.Document(model.DocumentKindSalesOrder, 1)
	assert.Equal(t, model.DocumentStatusPending, doc.Status)

	res, err = f.approve(1, 2)
	require.NoError(t, err)
	assert.True(t, res.FullyApproved())
	assert.Equal(t, "Sales Order fully approved.", res.Message)

	doc, _ = f.store.Document(model.DocumentKindSalesOrder, 1)
	assert.Equal(t, model.DocumentStatusApproved, doc.Status)
	assert.Len(t, f.store.Records(model.DocumentKindSalesOrder, 1), 2)
}

func TestApproveSingleApprover(t *testing.T) {
	f := newFixture(t, model.DocumentKindPurchaseInvoice, u(5, "carol"))

	res, err := f.approve(1, 5)
	require.NoError(t, err)
	assert.True(t, res.FullyApproved())
	assert.Equal(t, "Purchase Invoice fully approved.", res.Message)
}

func TestApproveFailures(t *testing.T) {
	testCases := []struct {
		name    string
		setup   func(f *fixture)
		docID   int64
		userID  int64
		kind    approval.ErrorKind
		message string
	}{
		{
			name:    "missing document id",
			docID:   0,
			userID:  1,
			kind:    approval.KindValidation,
			message: "SalesRFQID is required",
		},
		{
			name:    "missing approver id",
			docID:   1,
			userID:  0,
			kind:    approval.KindValidation,
			message: "ApproverID is required",
		},
		{
			name:    "missing both ids",
			docID:   0,
			userID:  0,
			kind:    approval.KindValidation,
			message: "SalesRFQID and ApproverID are required",
		},
		{
			name:    "approver without role on missing document",
			docID:   404,
			userID:  99,
			kind:    approval.KindPermission,
			message: "Approver does not have permission to approve this form",
		},
		{
			name:    "approver without role",
			docID:   1,
			userID:  99,
			kind:    approval.KindPermission,
			message: "Approver does not have permission to approve this form",
		},
		{
			name:    "document not found",
			docID:   404,
			userID:  1,
			kind:    approval.KindPrecondition,
			message: "Sales RFQ does not exist or has been deleted",
		},
		{
			name: "document soft deleted",
			setup: func(f *fixture) {
				f.store.DeleteDocument(model.DocumentKindSalesRFQ, 1)
			},
			docID:   1,
			userID:  1,
			kind:    approval.KindPrecondition,
			message: "Sales RFQ does not exist or has been deleted",
		},
		{
			name: "document already approved",
			setup: func(f *fixture) {
				f.store.PutDocument(model.DocumentKindSalesRFQ, 1, model.DocumentStatusApproved)
			},
			docID:   1,
			userID:  1,
			kind:    approval.KindPrecondition,
			message: "status must be Pending to approve, current status: Approved",
		},
		{
			name: "no active approvers configured",
			setup: func(f *fixture) {
				f.store.ConfigureForm("Sales RFQ")
			},
			docID:   1,
			userID:  1,
			kind:    approval.KindConfiguration,
			message: `No active approvers are configured for form "Sales RFQ"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, model.DocumentKindSalesRFQ, u(1, "alice"), u(2, "bob"))
			if tc.setup != nil {
				tc.setup(f)
			}

			res, err := f.approve(tc.docID, tc.userID)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tc.kind, approval.KindOf(err))
			assert.Equal(t, tc.message, approval.MessageOf(err))
			assert.Empty(t, f.store.Records(model.DocumentKindSalesRFQ, tc.docID))
		})
	}
}

func TestApproveUnconfiguredForm(t *testing.T) {
	registry := approval.NewRegistry(map[string]string{"SalesInvoice": "Invoices v2"})
	kind, err := registry.Lookup(model.DocumentKindSalesInvoice)
	require.NoError(t, err)

	store := memory.New()
	store.PutDocument(model.DocumentKindSalesInvoice, 1, model.DocumentStatusPending)
	coord := approval.NewCoordinator(store, registry)

	_, err = coord.Approve(context.Background(), kind, approval.Request{DocumentID: 1, ApproverID: 1})
	require.Error(t, err)
	assert.Equal(t, approval.KindConfiguration, approval.KindOf(err))
	assert.ErrorIs(t, err, approval.ErrFormNotFound)
}

func TestApproveTwice(t *testing.T) {
	f := newFixture(t, model.DocumentKindSalesQuotation, u(1, "alice"), u(2, "bob"))

	_, err := f.approve(1, 1)
	require.NoError(t, err)

	_, err = f.approve(1, 1)
	require.Error(t, err)
	assert.Equal(t, approval.KindPrecondition, approval.KindOf(err))
	assert.Equal(t, "Approver has already approved this Sales Quotation", approval.MessageOf(err))
	assert.Len(t, f.store.Records(model.DocumentKindSalesQuotation, 1), 1)

	doc, _ := f.store.Document(model.DocumentKindSalesQuotation, 1)
	assert.Equal(t, model.DocumentStatusPending, doc.Status)
}

func TestApproveRollsBackOnTransitionFailure(t *testing.T) {
	f := newFixture(t, model.DocumentKindSalesInvoice, u(1, "alice"))
	f.store.FailTransitions(errors.New("connection reset"))

	_, err := f.approve(1, 1)
	require.Error(t, err)
	assert.Equal(t, approval.KindPersistence, approval.KindOf(err))
	assert.Empty(t, f.store.Records(model.DocumentKindSalesInvoice, 1))

	f.store.FailTransitions(nil)
	res, err := f.approve(1, 1)
	require.NoError(t, err)
	assert.True(t, res.FullyApproved())
}

func TestApproveAfterApproverRemoved(t *testing.T) {
	f := newFixture(t, model.DocumentKindSalesOrder, u(1, "alice"), u(2, "bob"), u(3, "dave"))

	_, err := f.approve(1, 1)
	require.NoError(t, err)

	// alice loses the approver role, her approval no longer counts
	f.store.ConfigureForm("Sales Order", u(2, "bob"), u(3, "dave"))

	res, err := f.approve(1, 2)
	require.NoError(t, err)
	assert.Equal(t, approval.StatePartiallyApproved, res.State)
	assert.Equal(t, []int64{1}, res.Mismatched)
	assert.Equal(t, 1, res.Quorum.Remaining)

	res, err = f.approve(1, 3)
	require.NoError(t, err)
	assert.True(t, res.FullyApproved())
}

func TestApproveConcurrentDuplicates(t *testing.T) {
	f := newFixture(t, model.DocumentKindSalesOrder, u(1, "alice"), u(2, "bob"))

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.approve(1, 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if approval.KindOf(err) == approval.KindPrecondition {
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, dupes)
	assert.Len(t, f.store.Records(model.DocumentKindSalesOrder, 1), 1)
}

func TestApproveConcurrentQuorum(t *testing.T) {
	approvers := []model.Approver{u(1, "a"), u(2, "b"), u(3, "c"), u(4, "d")}
	f := newFixture(t, model.DocumentKindSalesRFQ, approvers...)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fully int
	)
	for _, a := range approvers {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			res, err := f.approve(1, id)
			if assert.NoError(t, err) && res.FullyApproved() {
				mu.Lock()
				fully++
				mu.Unlock()
			}
		}(a.UserID)
	}
	wg.Wait()

	assert.Equal(t, 1, fully)
	doc, _ := f.store.Document(model.DocumentKindSalesRFQ, 1)
	assert.Equal(t, model.DocumentStatusApproved, doc.Status)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, model.DocumentKindSalesOrder, u(1, "alice"), u(2, "bob"))
	f.store.GrantAccess("Sales Order", 50, model.FormAccess{ReadOnly: true})

	_, err := f.approve(1, 1)
	require.NoError(t, err)
	f.store.ConfigureForm("Sales Order", u(2, "bob"), u(3, "dave"))

	status, err := f.coord.Status(context.Background(), f.kind, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusPending, status.Status)
	assert.Equal(t, 2, status.RequiredApprovers)
	assert.Equal(t, 0, status.CompletedApprovals)
	require.Len(t, status.Approvals, 2)
	assert.False(t, status.Approvals[0].Approved)
	assert.Nil(t, status.Approvals[0].DecisionTimestamp)
	require.Len(t, status.Mismatched, 1)
	assert.Equal(t, int64(1), status.Mismatched[0].UserID)
	assert.Equal(t, fixedNow, status.Mismatched[0].DecisionTimestamp)

	_, err = f.approve(1, 2)
	require.NoError(t, err)
	status, err = f.coord.Status(context.Background(), f.kind, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, status.CompletedApprovals)
	assert.True(t, status.Approvals[0].Approved)
	require.NotNil(t, status.Approvals[0].DecisionTimestamp)
	assert.Equal(t, fixedNow, *status.Approvals[0].DecisionTimestamp)
}

func TestStatusPermissions(t *testing.T) {
	f := newFixture(t, model.DocumentKindSalesOrder, u(1, "alice"))
	f.store.GrantAccess("Sales Order", 60, model.FormAccess{})

	_, err := f.coord.Status(context.Background(), f.kind, 1, 60)
	assert.Equal(t, approval.KindPermission, approval.KindOf(err))
	assert.Equal(t, "User does not have permission to view this form", approval.MessageOf(err))

	_, err = f.coord.History(context.Background(), f.kind, 1, 61)
	assert.Equal(t, approval.KindPermission, approval.KindOf(err))

	_, err = f.coord.Status(context.Background(), f.kind, 9, 1)
	assert.Equal(t, approval.KindPrecondition, approval.KindOf(err))

	_, err = f.coord.Status(context.Background(), f.kind, 0, 1)
	assert.Equal(t, approval.KindValidation, approval.KindOf(err))
}

func TestHistory(t *testing.T) {
	f := newFixture(t, model.DocumentKindSalesInvoice, u(1, "alice"), u(2, "bob"))
	f.store.GrantAccess("Sales Invoice", 70, model.FormAccess{ReadWrite: true})

	_, err := f.approve(1, 2)
	require.NoError(t, err)

	records, err := f.coord.History(context.Background(), f.kind, 1, 70)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].ApproverID)
	assert.Equal(t, model.DocumentKindSalesInvoice, records[0].DocumentKind)
}

func TestPending(t *testing.T) {
	f := newFixture(t, model.DocumentKindSalesOrder, u(1, "alice"), u(2, "bob"))
	f.store.PutDocument(model.DocumentKindSalesOrder, 2, model.DocumentStatusPending)
	f.store.PutDocument(model.DocumentKindSalesOrder, 3, model.DocumentStatusApproved)
	f.store.PutDocument(model.DocumentKindSalesOrder, 4, model.DocumentStatusPending)
	f.store.DeleteDocument(model.DocumentKindSalesOrder, 4)
	f.store.ConfigureForm("Sales RFQ", u(1, "alice"))
	f.store.PutDocument(model.DocumentKindSalesRFQ, 10, model.DocumentStatusPending)
	f.store.PutDocument(model.DocumentKindSalesInvoice, 20, model.DocumentStatusPending)

	_, err := f.approve(1, 1)
	require.NoError(t, err)

	docs, err := f.coord.Pending(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, model.DocumentKindSalesRFQ, docs[0].Kind)
	assert.Equal(t, int64(10), docs[0].DocumentID)
	assert.Equal(t, model.DocumentKindSalesOrder, docs[1].Kind)
	assert.Equal(t, int64(2), docs[1].DocumentID)

	docs, err = f.coord.Pending(context.Background(), 2, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int64(1), docs[0].DocumentID)

	_, err = f.coord.Pending(context.Background(), 0, 10)
	assert.Equal(t, approval.KindValidation, approval.KindOf(err))
}

// callLog 记录事务内存储调用的顺序
type callLog struct {
	calls []string
}

func (l *callLog) add(name string) { l.calls = append(l.calls, name) }

type loggedUnitOfWork struct {
	approval.UnitOfWork
	log *callLog
}

func (w loggedUnitOfWork) Transaction(ctx context.Context, fn func(ctx context.Context, s approval.Stores) error) error {
	return w.UnitOfWork.Transaction(ctx, func(ctx context.Context, s approval.Stores) error {
		return fn(ctx, approval.Stores{
			Directory: loggedDirectory{s.Directory, w.log},
			Ledger:    loggedLedger{s.Ledger, w.log},
			Documents: loggedDocuments{s.Documents, w.log},
		})
	})
}

type loggedDirectory struct {
	approval.Directory
	log *callLog
}

func (d loggedDirectory) RequiredApprovers(ctx context.Context, formName string) ([]model.Approver, error) {
	d.log.add("RequiredApprovers")
	return d.Directory.RequiredApprovers(ctx, formName)
}

func (d loggedDirectory) HasApprovalPermission(ctx context.Context, userID int64, formName string) (bool, error) {
	d.log.add("HasApprovalPermission")
	return d.Directory.HasApprovalPermission(ctx, userID, formName)
}

func (d loggedDirectory) FormAccess(ctx context.Context, userID int64, formName string) (model.FormAccess, error) {
	d.log.add("FormAccess")
	return d.Directory.FormAccess(ctx, userID, formName)
}

type loggedLedger struct {
	approval.Ledger
	log *callLog
}

func (l loggedLedger) Exists(ctx context.Context, kind model.DocumentKind, documentID, approverID int64) (bool, error) {
	l.log.add("Exists")
	return l.Ledger.Exists(ctx, kind, documentID, approverID)
}

func (l loggedLedger) Record(ctx context.Context, record *model.ApprovalRecord) error {
	l.log.add("Record")
	return l.Ledger.Record(ctx, record)
}

func (l loggedLedger) CompletedApprovals(ctx context.Context, kind model.DocumentKind, documentID int64, requiredIDs []int64) ([]model.ApprovalRecord, error) {
	l.log.add("CompletedApprovals")
	return l.Ledger.CompletedApprovals(ctx, kind, documentID, requiredIDs)
}

func (l loggedLedger) AllApprovals(ctx context.Context, kind model.DocumentKind, documentID int64) ([]model.ApprovalRecord, error) {
	l.log.add("AllApprovals")
	return l.Ledger.AllApprovals(ctx, kind, documentID)
}

type loggedDocuments struct {
	approval.DocumentStore
	log *callLog
}

func (d loggedDocuments) LockForApproval(ctx context.Context, kind model.DocumentKind, id int64) (*model.DocumentState, error) {
	d.log.add("LockForApproval")
	return d.DocumentStore.LockForApproval(ctx, kind, id)
}

func (d loggedDocuments) Load(ctx context.Context, kind model.DocumentKind, id int64) (*model.DocumentState, error) {
	d.log.add("Load")
	return d.DocumentStore.Load(ctx, kind, id)
}

func (d loggedDocuments) TransitionToApproved(ctx context.Context, kind model.DocumentKind, id int64) error {
	d.log.add("TransitionToApproved")
	return d.DocumentStore.TransitionToApproved(ctx, kind, id)
}

// 单据行锁必须先于事务内的任何读取，否则 MySQL 可重复读下的快照会漏掉等锁期间提交的审批
func TestApproveLocksDocumentFirst(t *testing.T) {
	testCases := []struct {
		name   string
		docID  int64
		userID int64
		want   []string
	}{
		{
			name:   "partial approval",
			docID:  1,
			userID: 1,
			want: []string{"LockForApproval", "RequiredApprovers", "HasApprovalPermission",
				"Exists", "Record", "CompletedApprovals", "AllApprovals"},
		},
		{
			name:   "permission denied",
			docID:  1,
			userID: 99,
			want:   []string{"LockForApproval", "RequiredApprovers", "HasApprovalPermission"},
		},
		{
			name:   "missing document",
			docID:  404,
			userID: 1,
			want:   []string{"LockForApproval", "RequiredApprovers", "HasApprovalPermission"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			registry := approval.NewRegistry(nil)
			kind, err := registry.Lookup(model.DocumentKindSalesOrder)
			require.NoError(t, err)

			store := memory.New()
			store.ConfigureForm(kind.FormName, u(1, "alice"), u(2, "bob"))
			store.PutDocument(kind.Code, 1, model.DocumentStatusPending)

			log := &callLog{}
			coord := approval.NewCoordinator(loggedUnitOfWork{UnitOfWork: store, log: log}, registry)
			_, _ = coord.Approve(context.Background(), kind, approval.Request{DocumentID: tc.docID, ApproverID: tc.userID})
			assert.Equal(t, tc.want, log.calls, strings.Join(log.calls, " -> "))
		})
	}
}

// alice 的请求在 bob 持有单据行锁时到达，等锁结束后必须计入 bob 已提交的审批
func TestApproveWaiterSeesCommittedApproval(t *testing.T) {
	f := newFixture(t, model.DocumentKindSalesOrder, u(1, "alice"), u(2, "bob"))

	done := make(chan *approval.Result, 1)
	coord := approval.NewCoordinator(lockHook{UnitOfWork: f.store, afterLock: func() {
		go func() {
			res, err := f.approve(1, 1)
			assert.NoError(t, err)
			done <- res
		}()
	}}, f.coord.Registry())

	res, err := coord.Approve(context.Background(), f.kind, approval.Request{DocumentID: 1, ApproverID: 2})
	require.NoError(t, err)
	assert.Equal(t, approval.StatePartiallyApproved, res.State)

	select {
	case waiter := <-done:
		require.NotNil(t, waiter)
		assert.True(t, waiter.FullyApproved())
	case <-time.After(time.Second):
		t.Fatal("waiting approval did not finish")
	}
	doc, _ := f.store.Document(model.DocumentKindSalesOrder, 1)
	assert.Equal(t, model.DocumentStatusApproved, doc.Status)
}

// lockHook 在取得单据行锁后执行 afterLock
type lockHook struct {
	approval.UnitOfWork
	afterLock func()
}

func (h lockHook) Transaction(ctx context.Context, fn func(ctx context.Context, s approval.Stores) error) error {
	return h.UnitOfWork.Transaction(ctx, func(ctx context.Context, s approval.Stores) error {
		s.Documents = hookedDocuments{DocumentStore: s.Documents, afterLock: h.afterLock}
		return fn(ctx, s)
	})
}

type hookedDocuments struct {
	approval.DocumentStore
	afterLock func()
}

func (d hookedDocuments) LockForApproval(ctx context.Context, kind model.DocumentKind, id int64) (*model.DocumentState, error) {
	doc, err := d.DocumentStore.LockForApproval(ctx, kind, id)
	d.afterLock()
	return doc, err
}
