package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		from Status
		to   Status
		want bool
	}{
		{"request pending to assigned", KindRequest, RequestPending, RequestAssigned, true},
		{"request pending to approved", KindRequest, RequestPending, RequestApproved, true},
		{"request pending to in_review skips assignment", KindRequest, RequestPending, RequestInReview, false},
		{"request assigned to in_review", KindRequest, RequestAssigned, RequestInReview, true},
		{"request in_review to needs_revision", KindRequest, RequestInReview, RequestNeedsRevision, true},
		{"request needs_revision back to pending", KindRequest, RequestNeedsRevision, RequestPending, true},
		{"request needs_revision back to assigned", KindRequest, RequestNeedsRevision, RequestAssigned, true},
		{"request approved is terminal", KindRequest, RequestApproved, RequestPending, false},
		{"request rejected resubmits to pending", KindRequest, RequestRejected, RequestPending, true},
		{"request rejected cannot jump to approved", KindRequest, RequestRejected, RequestApproved, false},

		{"requisition draft to pending", KindRequisition, RequisitionDraft, RequisitionPending, true},
		{"requisition draft to cancelled", KindRequisition, RequisitionDraft, RequisitionCancelled, true},
		{"requisition draft cannot skip to approved", KindRequisition, RequisitionDraft, RequisitionApproved, false},
		{"requisition pending to approved", KindRequisition, RequisitionPending, RequisitionApproved, true},
		{"requisition approved to fulfilled", KindRequisition, RequisitionApproved, RequisitionFulfilled, true},
		{"requisition approved cannot be cancelled", KindRequisition, RequisitionApproved, RequisitionCancelled, false},
		{"requisition fulfilled is terminal", KindRequisition, RequisitionFulfilled, RequisitionPending, false},
		{"requisition cancelled is terminal", KindRequisition, RequisitionCancelled, RequisitionPending, false},

		{"invoice draft to pending", KindInvoice, InvoiceDraft, InvoicePending, true},
		{"invoice pending to approved", KindInvoice, InvoicePending, InvoiceApproved, true},
		{"invoice approved to partially_paid", KindInvoice, InvoiceApproved, InvoicePartiallyPaid, true},
		{"invoice approved straight to paid", KindInvoice, InvoiceApproved, InvoicePaid, true},
		{"invoice partially_paid to paid", KindInvoice, InvoicePartiallyPaid, InvoicePaid, true},
		{"invoice partially_paid cannot be cancelled", KindInvoice, InvoicePartiallyPaid, InvoiceCancelled, false},
		{"invoice paid is terminal", KindInvoice, InvoicePaid, InvoicePending, false},
		{"invoice draft cannot skip to paid", KindInvoice, InvoiceDraft, InvoicePaid, false},

		{"unknown kind", Kind("SHIPMENT"), RequestPending, RequestAssigned, false},
		{"status from another kind", KindRequest, RequisitionDraft, RequestPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.kind, tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(KindRequest, RequestApproved))
	assert.False(t, IsTerminal(KindRequest, RequestRejected)) // resubmission edge exists
	assert.True(t, IsTerminal(KindRequisition, RequisitionFulfilled))
	assert.True(t, IsTerminal(KindRequisition, RequisitionCancelled))
	assert.True(t, IsTerminal(KindInvoice, InvoicePaid))
	assert.True(t, IsTerminal(KindInvoice, InvoiceCancelled))
	assert.False(t, IsTerminal(KindInvoice, InvoicePartiallyPaid))
	assert.False(t, IsTerminal(Kind("SHIPMENT"), RequestApproved))
}

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus(KindInvoice, "PARTIALLY_PAID")
	assert.NoError(t, err)
	assert.Equal(t, InvoicePartiallyPaid, got)

	_, err = ParseStatus(KindRequest, "PARTIALLY_PAID")
	assert.Error(t, err)

	_, err = ParseStatus(KindRequest, "pending")
	assert.Error(t, err, "statuses are case sensitive")
}
