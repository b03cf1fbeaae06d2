package workflow

import (
	"fmt"

	"backend/internal/model"
)

// Kind identifies which workflow entity a transition applies to.
type Kind string

const (
	KindRequest     Kind = model.KindRequest
	KindRequisition Kind = model.KindRequisition
	KindInvoice     Kind = model.KindInvoice
)

// Status is a workflow state for any entity kind.
type Status string

// Certificate request statuses
const (
	RequestPending       Status = model.RequestPending
	RequestAssigned      Status = model.RequestAssigned
	RequestInReview      Status = model.RequestInReview
	RequestNeedsRevision Status = model.RequestNeedsRevision
	RequestApproved      Status = model.RequestApproved
	RequestRejected      Status = model.RequestRejected
)

// Requisition statuses
const (
	RequisitionDraft     Status = model.RequisitionDraft
	RequisitionPending   Status = model.RequisitionPending
	RequisitionApproved  Status = model.RequisitionApproved
	RequisitionRejected  Status = model.RequisitionRejected
	RequisitionFulfilled Status = model.RequisitionFulfilled
	RequisitionCancelled Status = model.RequisitionCancelled
)

// Invoice statuses
const (
	InvoiceDraft         Status = model.InvoiceDraft
	InvoicePending       Status = model.InvoicePending
	InvoiceApproved      Status = model.InvoiceApproved
	InvoiceRejected      Status = model.InvoiceRejected
	InvoicePartiallyPaid Status = model.InvoicePartiallyPaid
	InvoicePaid          Status = model.InvoicePaid
	InvoiceCancelled     Status = model.InvoiceCancelled
)

// allowedTransitions maps each kind and current status to its legal next
// statuses. Absent statuses are terminal. A same-status "transition" is never
// legal, enforced separately in the engine.
var allowedTransitions = map[Kind]map[Status]map[Status]bool{
	KindRequest: {
		RequestPending:       {RequestAssigned: true, RequestApproved: true, RequestRejected: true},
		RequestAssigned:      {RequestInReview: true, RequestApproved: true, RequestRejected: true},
		RequestInReview:      {RequestNeedsRevision: true, RequestApproved: true, RequestRejected: true},
		RequestNeedsRevision: {RequestPending: true, RequestAssigned: true},
		RequestApproved:      {},
		RequestRejected:      {RequestPending: true}, // resubmit only
	},
	KindRequisition: {
		RequisitionDraft:     {RequisitionPending: true, RequisitionCancelled: true},
		RequisitionPending:   {RequisitionApproved: true, RequisitionRejected: true, RequisitionCancelled: true},
		RequisitionApproved:  {RequisitionFulfilled: true},
		RequisitionRejected:  {RequisitionPending: true}, // resubmit only
		RequisitionFulfilled: {},
		RequisitionCancelled: {},
	},
	KindInvoice: {
		InvoiceDraft:         {InvoicePending: true, InvoiceCancelled: true},
		InvoicePending:       {InvoiceApproved: true, InvoiceRejected: true, InvoiceCancelled: true},
		InvoiceApproved:      {InvoicePartiallyPaid: true, InvoicePaid: true, InvoiceCancelled: true},
		InvoicePartiallyPaid: {InvoicePaid: true},
		InvoiceRejected:      {InvoicePending: true}, // resubmit only
		InvoicePaid:          {},
		InvoiceCancelled:     {},
	},
}

// statusesByKind is derived from the transition tables for ParseStatus.
var statusesByKind = func() map[Kind]map[Status]bool {
	m := make(map[Kind]map[Status]bool, len(allowedTransitions))
	for kind, table := range allowedTransitions {
		set := make(map[Status]bool)
		for from, tos := range table {
			set[from] = true
			for to := range tos {
				set[to] = true
			}
		}
		m[kind] = set
	}
	return m
}()

// ParseStatus validates that s is a known status for the given kind.
func ParseStatus(kind Kind, s string) (Status, error) {
	if statusesByKind[kind][Status(s)] {
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown %s status: %s", kind, s)
}

// CanTransition reports whether the status graph for kind contains the
// from → to edge. Unknown kinds and statuses report false.
func CanTransition(kind Kind, from, to Status) bool {
	table, ok := allowedTransitions[kind]
	if !ok {
		return false
	}
	next, ok := table[from]
	if !ok {
		return false
	}
	return next[to]
}

// IsTerminal reports whether status has no outgoing edges for kind.
func IsTerminal(kind Kind, status Status) bool {
	table, ok := allowedTransitions[kind]
	if !ok {
		return false
	}
	next, known := table[status]
	return known && len(next) == 0
}
