package model

import (
	"time"

	"github.com/google/uuid"
)

// CertificateRequest status enum constants
const (
	RequestPending       = "PENDING"
	RequestAssigned      = "ASSIGNED"
	RequestInReview      = "IN_REVIEW"
	RequestNeedsRevision = "NEEDS_REVISION"
	RequestApproved      = "APPROVED"
	RequestRejected      = "REJECTED"
)

// CertificateRequest represents a QA certification request moving through the
// review workflow. Status mutations only happen through validated transitions;
// every change appends a StatusHistory row.
type CertificateRequest struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestNo   string     `gorm:"type:varchar(30);uniqueIndex;not null" json:"request_no"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	RequesterID uuid.UUID  `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester   *User      `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	AssigneeID  *uuid.UUID `gorm:"type:uuid;index" json:"assignee_id"`
	Assignee    *User      `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	TaskID      *uuid.UUID `gorm:"type:uuid;index" json:"task_id"` // Companion QA task, when spawned from one
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
