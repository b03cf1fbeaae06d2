package workflow

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPerms grants exactly the listed permission codes to any role set.
type stubPerms struct {
	granted map[string]bool
}

func (s stubPerms) HasPermission(_ []string, code string) bool {
	return s.granted[code]
}

func grantAll() stubPerms {
	return stubPerms{granted: map[string]bool{
		"requests:assign": true, "requests:review": true, "requests:approve": true, "requests:reject": true,
		"requisitions:approve": true, "requisitions:reject": true, "requisitions:fulfill": true,
		"invoices:approve": true, "invoices:reject": true, "invoices:cancel": true, "invoices:record_payment": true,
	}}
}

func TestAttemptSameStatus(t *testing.T) {
	engine := NewEngine(grantAll())

	_, err := engine.Attempt(Input{
		Kind:    KindRequest,
		Current: RequestPending,
		Next:    RequestPending,
		Caller:  Actor{ID: uuid.New()},
	})

	d, ok := AsDenial(err)
	require.True(t, ok)
	assert.Equal(t, DenialAlreadyInState, d.Reason)
}

func TestAttemptIllegalEdge(t *testing.T) {
	engine := NewEngine(grantAll())

	tests := []struct {
		kind Kind
		from Status
		to   Status
	}{
		{KindRequest, RequestApproved, RequestPending},
		{KindRequest, RequestPending, RequestNeedsRevision},
		{KindRequisition, RequisitionDraft, RequisitionApproved},
		{KindInvoice, InvoicePaid, InvoicePending},
		{KindInvoice, InvoicePartiallyPaid, InvoiceCancelled},
	}
	for _, tt := range tests {
		_, err := engine.Attempt(Input{
			Kind:    tt.kind,
			Current: tt.from,
			Next:    tt.to,
			Caller:  Actor{ID: uuid.New()},
		})
		d, ok := AsDenial(err)
		require.True(t, ok, "%s %s->%s", tt.kind, tt.from, tt.to)
		assert.Equal(t, DenialIllegalTransition, d.Reason)
	}
}

func TestAttemptPermissionDenied(t *testing.T) {
	engine := NewEngine(stubPerms{granted: map[string]bool{}})

	_, err := engine.Attempt(Input{
		Kind:    KindRequest,
		Current: RequestInReview,
		Next:    RequestApproved,
		Caller:  Actor{ID: uuid.New(), Roles: []string{"qa_tester"}},
	})

	d, ok := AsDenial(err)
	require.True(t, ok)
	assert.Equal(t, DenialPermissionDenied, d.Reason)
	assert.Equal(t, "requests:approve", d.Missing)
}

func TestAttemptAllowedBuildsHistoryEntry(t *testing.T) {
	callerID := uuid.New()
	entityID := uuid.New()
	engine := NewEngine(grantAll())

	out, err := engine.Attempt(Input{
		Kind:        KindInvoice,
		EntityID:    entityID,
		Current:     InvoicePending,
		Next:        InvoiceApproved,
		Caller:      Actor{ID: callerID, Name: "ana", Roles: []string{"finance"}},
		RequesterID: uuid.New(),
		Reason:      "looks right",
	})
	require.NoError(t, err)

	assert.Equal(t, InvoiceApproved, out.NewStatus)
	assert.Equal(t, "INVOICE", out.Entry.EntityKind)
	assert.Equal(t, entityID, out.Entry.EntityID)
	assert.Equal(t, "APPROVED", out.Entry.Status)
	assert.Equal(t, "PENDING", out.Entry.PreviousStatus)
	assert.Equal(t, callerID, out.Entry.ChangedByID)
	assert.Equal(t, "ana", out.Entry.ChangedByName)
	assert.Equal(t, "looks right", out.Entry.Reason)
	assert.WithinDuration(t, time.Now(), out.Entry.ChangedAt, time.Second)
}

func TestResubmitRequiresOriginalRequester(t *testing.T) {
	requesterID := uuid.New()
	// Even a caller holding every permission cannot resubmit someone
	// else's rejected entity.
	engine := NewEngine(grantAll())

	_, err := engine.Attempt(Input{
		Kind:        KindRequest,
		Current:     RequestRejected,
		Next:        RequestPending,
		Caller:      Actor{ID: uuid.New(), Roles: []string{"admin"}},
		RequesterID: requesterID,
	})
	d, ok := AsDenial(err)
	require.True(t, ok)
	assert.Equal(t, DenialPermissionDenied, d.Reason)

	// The requester needs no permission at all for the same edge.
	engine = NewEngine(stubPerms{granted: map[string]bool{}})
	out, err := engine.Attempt(Input{
		Kind:        KindRequest,
		Current:     RequestRejected,
		Next:        RequestPending,
		Caller:      Actor{ID: requesterID, Name: "sam"},
		RequesterID: requesterID,
	})
	require.NoError(t, err)
	assert.Equal(t, RequestPending, out.NewStatus)
}

func TestResubmitEdgesPerKind(t *testing.T) {
	requesterID := uuid.New()
	engine := NewEngine(stubPerms{granted: map[string]bool{}})

	for _, tt := range []struct {
		kind Kind
		from Status
		to   Status
	}{
		{KindRequisition, RequisitionRejected, RequisitionPending},
		{KindInvoice, InvoiceRejected, InvoicePending},
	} {
		out, err := engine.Attempt(Input{
			Kind:        tt.kind,
			Current:     tt.from,
			Next:        tt.to,
			Caller:      Actor{ID: requesterID},
			RequesterID: requesterID,
		})
		require.NoError(t, err, "%s resubmit", tt.kind)
		assert.Equal(t, tt.to, out.NewStatus)
	}
}

func TestAttemptNilCheckerDeniesGatedEdges(t *testing.T) {
	engine := NewEngine(nil)

	_, err := engine.Attempt(Input{
		Kind:    KindRequisition,
		Current: RequisitionPending,
		Next:    RequisitionApproved,
		Caller:  Actor{ID: uuid.New()},
	})
	d, ok := AsDenial(err)
	require.True(t, ok)
	assert.Equal(t, DenialPermissionDenied, d.Reason)

	// Ungated edges still pass.
	out, err := engine.Attempt(Input{
		Kind:    KindRequisition,
		Current: RequisitionDraft,
		Next:    RequisitionPending,
		Caller:  Actor{ID: uuid.New()},
	})
	require.NoError(t, err)
	assert.Equal(t, RequisitionPending, out.NewStatus)
}
