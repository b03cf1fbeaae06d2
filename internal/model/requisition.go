package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Requisition status enum constants
const (
	RequisitionDraft     = "DRAFT"
	RequisitionPending   = "PENDING"
	RequisitionApproved  = "APPROVED"
	RequisitionRejected  = "REJECTED"
	RequisitionFulfilled = "FULFILLED"
	RequisitionCancelled = "CANCELLED"
)

// Requisition is a purchase request with line items, subject to the
// draft → pending → approved → fulfilled workflow.
type Requisition struct {
	ID            uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequisitionNo string            `gorm:"type:varchar(30);uniqueIndex;not null" json:"requisition_no"`
	Title         string            `gorm:"type:varchar(255);not null" json:"title"`
	Status        string            `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	RequesterID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester     *User             `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Items         []RequisitionItem `gorm:"foreignKey:RequisitionID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount   decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0" json:"total_amount"` // Sum of item quantity * unit_price
	Note          string            `gorm:"type:text" json:"note"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// RequisitionItem is a single line on a requisition
type RequisitionItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequisitionID uuid.UUID       `gorm:"type:uuid;not null;index" json:"requisition_id"`
	Description   string          `gorm:"type:varchar(255);not null" json:"description"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
}
