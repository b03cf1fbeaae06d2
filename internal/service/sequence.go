package service

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// generateDocumentNo produces the next sequential document number for the
// current day, e.g. "REQ-20260831-00004". The advisory lock serializes
// concurrent generators on the same prefix within the transaction.
func generateDocumentNo(tx *gorm.DB, prefix, column string, mdl interface{}) (string, error) {
	today := time.Now().Format("20060102")
	full := prefix + "-" + today + "-"

	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", full).Error; err != nil {
		return "", fmt.Errorf("failed to acquire sequence lock for %s: %w", prefix, err)
	}

	var count int64
	if err := tx.Model(mdl).
		Where(column+" LIKE ?", full+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", full, count+1), nil
}
