package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice status enum constants
const (
	InvoiceDraft         = "DRAFT"
	InvoicePending       = "PENDING"
	InvoiceApproved      = "APPROVED"
	InvoiceRejected      = "REJECTED"
	InvoicePartiallyPaid = "PARTIALLY_PAID"
	InvoicePaid          = "PAID"
	InvoiceCancelled     = "CANCELLED"
)

// Invoice represents a billable document with append-only payments.
// OutstandingAmount is always total_amount - paid_amount and is recomputed on
// every payment mutation, never maintained independently.
type Invoice struct {
	ID                uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNo         string            `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	RequisitionID     *uuid.UUID        `gorm:"type:uuid;index" json:"requisition_id"` // Source requisition, when invoiced from one
	ClientName        string            `gorm:"type:varchar(255);not null" json:"client_name"`
	Status            string            `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	Items             []InvoiceLineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount       decimal.Decimal   `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	PaidAmount        decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0" json:"paid_amount"`
	OutstandingAmount decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0" json:"outstanding_amount"`
	Payments          []Payment         `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
	CreatedByID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"created_by_id"`
	CreatedBy         *User             `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Note              string            `gorm:"type:text" json:"note"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// InvoiceLineItem is a single billable line on an invoice
type InvoiceLineItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Description string          `gorm:"type:varchar(255);not null" json:"description"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
}

// Payment is an append-only record of money received against an invoice.
// Payments are never edited or removed once recorded.
type Payment struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	PaymentDate     time.Time       `gorm:"not null" json:"payment_date"`
	ReferenceNumber string          `gorm:"type:varchar(100)" json:"reference_number,omitempty"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	RecordedByID    *uuid.UUID      `gorm:"type:uuid" json:"recorded_by_id"`
	CreatedAt       time.Time       `json:"created_at"`
}
