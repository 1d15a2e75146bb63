// Package models contains the persistence rows for the provisioning store,
// configured to work using GORM as the ORM.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company is a provisioned tenant row. Soft-deleted rows keep their
// business identifier so it is never issued twice.
type Company struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	BusinessID     string    `gorm:"size:64;not null;uniqueIndex:idx_companies_business_id"`
	Name           string    `gorm:"size:255;not null"`
	Email          string    `gorm:"size:255;index"`
	Website        string    `gorm:"size:255"`
	Phone          string    `gorm:"size:32"`
	Logo           string    `gorm:"size:1024"`
	AddressLine1   string    `gorm:"size:255"`
	AddressLine2   string    `gorm:"size:255"`
	City           string    `gorm:"size:128"`
	State          string    `gorm:"size:128"`
	PostalCode     string    `gorm:"size:32"`
	Country        string    `gorm:"size:64"`
	Status         string    `gorm:"size:16;not null;index"`
	Currency       string    `gorm:"size:3;not null"`
	Language       string    `gorm:"size:16;not null"`
	ModuleID       uuid.UUID `gorm:"type:uuid;not null;index"`
	ModuleCode     string    `gorm:"size:3;not null;index:idx_companies_module_seq,priority:1"`
	ModuleSequence int       `gorm:"not null;index:idx_companies_module_seq,priority:2"`
	TenantSequence int       `gorm:"not null;index"`
	TrialStart     time.Time `gorm:"not null"`
	TrialEnd       time.Time `gorm:"not null"`
	TrialExpired   bool      `gorm:"not null;default:false;index"`
	Package        string    `gorm:"size:32;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}
