package database

import (
	"backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM and migrates the
// core models.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate auto-migrates every persisted model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Role{},
		&model.Permission{},
		&model.CertificateRequest{},
		&model.QATask{},
		&model.Requisition{},
		&model.RequisitionItem{},
		&model.Invoice{},
		&model.InvoiceLineItem{},
		&model.Payment{},
		&model.Expense{},
		&model.StatusHistory{},
		&model.AuditLog{},
		&model.Notification{},
	)
}
