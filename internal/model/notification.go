package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification template kinds
const (
	NotifyStatusChanged   = "STATUS_CHANGED"
	NotifyRequestAssigned = "REQUEST_ASSIGNED"
	NotifyPaymentRecorded = "PAYMENT_RECORDED"
)

// Notification is an in-app message created best-effort after a workflow
// transition commits. Delivery failure never affects the entity write.
type Notification struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RecipientID  uuid.UUID `gorm:"type:uuid;not null;index" json:"recipient_id"`
	TemplateKind string    `gorm:"type:varchar(30);not null" json:"template_kind"`
	Payload      string    `gorm:"type:jsonb" json:"payload"` // Serialized JSON payload for rendering
	Read         bool      `gorm:"default:false;index" json:"read"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}
