package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense category enum constants
const (
	ExpenseCategoryTravel    = "TRAVEL"
	ExpenseCategoryEquipment = "EQUIPMENT"
	ExpenseCategorySoftware  = "SOFTWARE"
	ExpenseCategoryOther     = "OTHER"
)

// Expense represents a cost entry with multi-currency support (base: USD).
// The exchange rate is captured at entry time so historical totals do not
// drift when the illustrative rate table changes.
type Expense struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SubmitterID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"submitter_id"`
	Submitter     *User      `gorm:"foreignKey:SubmitterID" json:"submitter,omitempty"`
	RequisitionID *uuid.UUID `gorm:"type:uuid;index" json:"requisition_id"`

	Category string `gorm:"type:varchar(20);not null;default:'OTHER';index" json:"category"`

	Currency           string          `gorm:"type:varchar(10);not null;default:'USD'" json:"currency"`
	ExchangeRate       decimal.Decimal `gorm:"type:decimal(18,6);not null;default:1" json:"exchange_rate"` // 1 if USD
	OriginalAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"original_amount"`
	ConvertedAmountUSD decimal.Decimal `gorm:"column:converted_amount_usd;type:decimal(18,4);not null" json:"converted_amount_usd"` // = original_amount * exchange_rate

	Description string    `gorm:"type:text" json:"description"`
	ExpenseDate time.Time `gorm:"not null;index" json:"expense_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
