package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/internal/rbac"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeInvoiceRepo struct {
	invoice  model.Invoice
	payments []model.Payment
}

func (f *fakeInvoiceRepo) Create(_ context.Context, inv *model.Invoice) error {
	f.invoice = *inv
	return nil
}

func (f *fakeInvoiceRepo) FindByID(context.Context, uuid.UUID) (*model.Invoice, error) {
	inv := f.invoice
	return &inv, nil
}

func (f *fakeInvoiceRepo) FindByIDWithRelations(context.Context, uuid.UUID) (*model.Invoice, error) {
	inv := f.invoice
	inv.Payments = f.payments
	return &inv, nil
}

func (f *fakeInvoiceRepo) FindByIDForUpdate(context.Context, uuid.UUID) (*model.Invoice, error) {
	inv := f.invoice
	return &inv, nil
}

func (f *fakeInvoiceRepo) List(context.Context, string, int, int) ([]model.Invoice, int64, error) {
	return []model.Invoice{f.invoice}, 1, nil
}

func (f *fakeInvoiceRepo) Update(_ context.Context, inv *model.Invoice) error {
	f.invoice = *inv
	return nil
}

func (f *fakeInvoiceRepo) AppendPayment(_ context.Context, payment *model.Payment) error {
	f.payments = append(f.payments, *payment)
	return nil
}

func (f *fakeInvoiceRepo) ListPayments(context.Context, uuid.UUID) ([]model.Payment, error) {
	return f.payments, nil
}

type fakeHistoryRepo struct {
	entries []model.StatusHistory
}

func (f *fakeHistoryRepo) Append(_ context.Context, entry *model.StatusHistory) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistoryRepo) ListForEntity(context.Context, string, uuid.UUID) ([]model.StatusHistory, error) {
	return f.entries, nil
}

type fakeAuditRepo struct {
	logs []model.AuditLog
}

func (f *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	f.logs = append(f.logs, *entry)
	return nil
}

func (f *fakeAuditRepo) List(context.Context, string, int, int) ([]model.AuditLog, int64, error) {
	return f.logs, int64(len(f.logs)), nil
}

// fakeRoleService serves a fixed resolver where "finance" holds the payment
// permission; the CRUD surface is unused by these tests.
type fakeRoleService struct{}

func (fakeRoleService) ListRoles(context.Context) ([]RoleResponse, error)  { return nil, nil }
func (fakeRoleService) GetRole(context.Context, string) (*RoleResponse, error) {
	return nil, nil
}
func (fakeRoleService) CreateRole(context.Context, CreateRoleRequest) (*RoleResponse, error) {
	return nil, nil
}
func (fakeRoleService) UpdateRole(context.Context, string, UpdateRoleRequest) (*RoleResponse, error) {
	return nil, nil
}
func (fakeRoleService) DeleteRole(context.Context, string) error { return nil }
func (fakeRoleService) ListPermissions(context.Context) ([]PermissionResponse, error) {
	return nil, nil
}
func (fakeRoleService) UpdateRolePermissions(context.Context, string, UpdateRolePermissionsRequest) (*RoleResponse, error) {
	return nil, nil
}
func (fakeRoleService) Resolver(context.Context) (*rbac.Resolver, error) {
	return rbac.NewResolver([]model.Role{
		{Name: "finance", Permissions: []model.Permission{
			{Code: "invoices:record_payment"},
			{Code: "invoices:approve"},
		}},
	}), nil
}
func (fakeRoleService) SeedDefaultRolesAndPermissions(context.Context) error { return nil }

type fakeNotifier struct {
	events []TransitionEvent
}

func (f *fakeNotifier) Dispatch(_ context.Context, event TransitionEvent) {
	f.events = append(f.events, event)
}

func (f *fakeNotifier) ListForUser(context.Context, string, bool, int, int) ([]NotificationResponse, int64, error) {
	return nil, 0, nil
}

func (f *fakeNotifier) MarkRead(context.Context, string, string) error { return nil }

func newPaymentFixture(t *testing.T, total string) (*fakeInvoiceRepo, *fakeHistoryRepo, *fakeAuditRepo, *fakeNotifier, InvoiceService, uuid.UUID) {
	t.Helper()
	invoiceID := uuid.New()
	repo := &fakeInvoiceRepo{invoice: model.Invoice{
		ID:                invoiceID,
		InvoiceNo:         "INV-20260831-00001",
		ClientName:        "Acme Labs",
		Status:            model.InvoiceApproved,
		TotalAmount:       decimal.RequireFromString(total),
		PaidAmount:        decimal.Zero,
		OutstandingAmount: decimal.RequireFromString(total),
		CreatedByID:       uuid.New(),
	}}
	history := &fakeHistoryRepo{}
	audit := &fakeAuditRepo{}
	notifier := &fakeNotifier{}
	svc := NewInvoiceService(nil, fakeTxManager{}, repo, history, audit, fakeRoleService{}, notifier)
	return repo, history, audit, notifier, svc, invoiceID
}

func financeActor() workflow.Actor {
	return workflow.Actor{ID: uuid.New(), Name: "fin", Roles: []string{"finance"}}
}

func TestRecordPaymentReachesPaid(t *testing.T) {
	repo, history, _, _, svc, invoiceID := newPaymentFixture(t, "1000")
	caller := financeActor()

	resp, err := svc.RecordPayment(context.Background(), invoiceID.String(), caller, RecordPaymentDTO{Amount: "400"})
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePartiallyPaid, resp.Status)
	assert.Equal(t, "400.00", resp.PaidAmount)
	assert.Equal(t, "600.00", resp.OutstandingAmount)

	resp, err = svc.RecordPayment(context.Background(), invoiceID.String(), caller, RecordPaymentDTO{Amount: "600"})
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePaid, resp.Status)
	assert.Equal(t, "1000.00", resp.PaidAmount)
	assert.Equal(t, "0.00", resp.OutstandingAmount)

	require.Len(t, repo.payments, 2)
	require.Len(t, history.entries, 2)
	assert.Equal(t, model.InvoiceApproved, history.entries[0].PreviousStatus)
	assert.Equal(t, model.InvoicePartiallyPaid, history.entries[0].Status)
	assert.Equal(t, model.InvoicePartiallyPaid, history.entries[1].PreviousStatus)
	assert.Equal(t, model.InvoicePaid, history.entries[1].Status)
}

func TestRecordPaymentRepeatPartialPayment(t *testing.T) {
	repo, history, audit, notifier, svc, invoiceID := newPaymentFixture(t, "1000")
	caller := financeActor()

	_, err := svc.RecordPayment(context.Background(), invoiceID.String(), caller, RecordPaymentDTO{Amount: "300"})
	require.NoError(t, err)

	// A second partial payment leaves PARTIALLY_PAID in place and must be
	// recorded, not refused as a same-status transition.
	resp, err := svc.RecordPayment(context.Background(), invoiceID.String(), caller, RecordPaymentDTO{Amount: "200"})
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePartiallyPaid, resp.Status)
	assert.Equal(t, "500.00", resp.PaidAmount)
	assert.Equal(t, "500.00", resp.OutstandingAmount)

	require.Len(t, repo.payments, 2)
	assert.Equal(t, "200", repo.payments[1].Amount.String())

	// Only the real status change produced a history row; both payments are
	// audited and announced.
	require.Len(t, history.entries, 1)
	assert.Equal(t, model.InvoicePartiallyPaid, history.entries[0].Status)
	assert.Len(t, audit.logs, 2)
	assert.Len(t, notifier.events, 2)
}

func TestRecordPaymentRejectsOverpayment(t *testing.T) {
	repo, history, _, _, svc, invoiceID := newPaymentFixture(t, "1000")
	caller := financeActor()

	_, err := svc.RecordPayment(context.Background(), invoiceID.String(), caller, RecordPaymentDTO{Amount: "1200"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds outstanding")

	assert.Empty(t, repo.payments)
	assert.Empty(t, history.entries)
	assert.Equal(t, model.InvoiceApproved, repo.invoice.Status)
}

func TestRecordPaymentRequiresApprovedInvoice(t *testing.T) {
	repo, _, _, _, svc, invoiceID := newPaymentFixture(t, "1000")
	repo.invoice.Status = model.InvoiceDraft
	caller := financeActor()

	_, err := svc.RecordPayment(context.Background(), invoiceID.String(), caller, RecordPaymentDTO{Amount: "100"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "approved invoices")
	assert.Empty(t, repo.payments)
}

func TestRecordPaymentPermissionDenied(t *testing.T) {
	repo, history, _, _, svc, invoiceID := newPaymentFixture(t, "1000")
	caller := workflow.Actor{ID: uuid.New(), Name: "req", Roles: []string{"requester"}}

	_, err := svc.RecordPayment(context.Background(), invoiceID.String(), caller, RecordPaymentDTO{Amount: "100"})
	require.Error(t, err)
	denial, ok := workflow.AsDenial(err)
	require.True(t, ok)
	assert.Equal(t, workflow.DenialPermissionDenied, denial.Reason)

	assert.Empty(t, repo.payments)
	assert.Empty(t, history.entries)
}
