package model

import (
	"time"

	"github.com/google/uuid"
)

// QATask status enum constants
const (
	TaskOpen = "OPEN"
	TaskDone = "DONE"
)

// QATask is a unit of QA work assigned to a tester. Completing a task marks it
// DONE and creates the companion CertificateRequest in the same transaction.
type QATask struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      string     `gorm:"type:varchar(10);not null;default:'OPEN';index" json:"status"`
	AssigneeID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"assignee_id"`
	Assignee    *User      `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
