package model

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind enum constants for the three workflow entity kinds.
const (
	KindRequest     = "REQUEST"
	KindRequisition = "REQUISITION"
	KindInvoice     = "INVOICE"
)

// StatusHistory is an append-only audit entry recorded on every status
// transition. Rows are never updated or deleted.
type StatusHistory struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EntityKind     string    `gorm:"type:varchar(20);not null;index:idx_history_entity" json:"entity_kind"`
	EntityID       uuid.UUID `gorm:"type:uuid;not null;index:idx_history_entity" json:"entity_id"`
	Status         string    `gorm:"type:varchar(30);not null" json:"status"`
	PreviousStatus string    `gorm:"type:varchar(30)" json:"previous_status,omitempty"`
	ChangedByID    uuid.UUID `gorm:"type:uuid;not null" json:"changed_by_id"`
	ChangedByName  string    `gorm:"type:varchar(255)" json:"changed_by_name"`
	Reason         string    `gorm:"type:text" json:"reason,omitempty"`
	ChangedAt      time.Time `gorm:"not null;index" json:"changed_at"`
}
