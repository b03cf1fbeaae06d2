package workflow

import (
	"errors"
	"fmt"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
)

// DenialReason codes returned when a transition is refused.
type DenialReason string

const (
	DenialAlreadyInState    DenialReason = "already_in_state"
	DenialIllegalTransition DenialReason = "illegal_transition"
	DenialPermissionDenied  DenialReason = "permission_denied"
)

// Denial is a typed refusal of a transition. Callers render Reason directly to
// the user; it is never a programming error.
type Denial struct {
	Reason  DenialReason
	Kind    Kind
	From    Status
	To      Status
	Missing string // required permission, when Reason is permission_denied
}

func (d *Denial) Error() string {
	switch d.Reason {
	case DenialAlreadyInState:
		return fmt.Sprintf("%s is already %s", d.Kind, d.From)
	case DenialIllegalTransition:
		return fmt.Sprintf("cannot move %s from %s to %s", d.Kind, d.From, d.To)
	case DenialPermissionDenied:
		if d.Missing != "" {
			return fmt.Sprintf("missing permission %q for %s → %s", d.Missing, d.From, d.To)
		}
		return fmt.Sprintf("not allowed to move %s from %s to %s", d.Kind, d.From, d.To)
	}
	return string(d.Reason)
}

// AsDenial unwraps err into a *Denial if it is one.
func AsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// PermissionChecker answers whether the caller's roles grant a permission code.
type PermissionChecker interface {
	HasPermission(roleNames []string, code string) bool
}

// Actor is the authenticated caller attempting a transition.
type Actor struct {
	ID    uuid.UUID
	Name  string
	Roles []string
}

// requiredPermissions maps a target status per kind to the elevated permission
// needed to enter it. Edges absent here require no elevated permission beyond
// the route-level gate.
var requiredPermissions = map[Kind]map[Status]string{
	KindRequest: {
		RequestAssigned:      "requests:assign",
		RequestInReview:      "requests:review",
		RequestNeedsRevision: "requests:review",
		RequestApproved:      "requests:approve",
		RequestRejected:      "requests:reject",
	},
	KindRequisition: {
		RequisitionApproved:  "requisitions:approve",
		RequisitionRejected:  "requisitions:reject",
		RequisitionFulfilled: "requisitions:fulfill",
	},
	KindInvoice: {
		InvoiceApproved:      "invoices:approve",
		InvoiceRejected:      "invoices:reject",
		InvoicePartiallyPaid: "invoices:record_payment",
		InvoicePaid:          "invoices:record_payment",
		InvoiceCancelled:     "invoices:cancel",
	},
}

// Input describes a requested transition. RequesterID is the entity's original
// requester/creator, used to gate resubmission.
type Input struct {
	Kind        Kind
	EntityID    uuid.UUID
	Current     Status
	Next        Status
	Caller      Actor
	RequesterID uuid.UUID
	Reason      string
}

// Transition is the approved outcome: the new status plus the history entry
// the caller must persist alongside the entity update.
type Transition struct {
	NewStatus Status
	Entry     model.StatusHistory
}

// Engine validates transitions against the status graph and the caller's
// permissions. It performs no I/O; persistence and notification dispatch are
// the service layer's responsibility.
type Engine struct {
	perms PermissionChecker
	now   func() time.Time
}

func NewEngine(perms PermissionChecker) *Engine {
	return &Engine{perms: perms, now: time.Now}
}

// Attempt validates in and, when allowed, returns the transition to persist.
// Refusals are returned as *Denial; any other error is a programming error.
func (e *Engine) Attempt(in Input) (*Transition, error) {
	if in.Next == in.Current {
		return nil, &Denial{Reason: DenialAlreadyInState, Kind: in.Kind, From: in.Current, To: in.Next}
	}

	if !CanTransition(in.Kind, in.Current, in.Next) {
		return nil, &Denial{Reason: DenialIllegalTransition, Kind: in.Kind, From: in.Current, To: in.Next}
	}

	// Resubmission (rejected → pending) belongs to the original requester
	// alone, regardless of granted permissions.
	if isResubmit(in.Kind, in.Current, in.Next) {
		if in.Caller.ID != in.RequesterID {
			return nil, &Denial{Reason: DenialPermissionDenied, Kind: in.Kind, From: in.Current, To: in.Next}
		}
	} else if required := requiredPermissions[in.Kind][in.Next]; required != "" {
		if e.perms == nil || !e.perms.HasPermission(in.Caller.Roles, required) {
			return nil, &Denial{Reason: DenialPermissionDenied, Kind: in.Kind, From: in.Current, To: in.Next, Missing: required}
		}
	}

	return &Transition{
		NewStatus: in.Next,
		Entry: model.StatusHistory{
			EntityKind:     string(in.Kind),
			EntityID:       in.EntityID,
			Status:         string(in.Next),
			PreviousStatus: string(in.Current),
			ChangedByID:    in.Caller.ID,
			ChangedByName:  in.Caller.Name,
			Reason:         in.Reason,
			ChangedAt:      e.now(),
		},
	}, nil
}

func isResubmit(kind Kind, from, to Status) bool {
	switch kind {
	case KindRequest:
		return from == RequestRejected && to == RequestPending
	case KindRequisition:
		return from == RequisitionRejected && to == RequisitionPending
	case KindInvoice:
		return from == InvoiceRejected && to == InvoicePending
	}
	return false
}
