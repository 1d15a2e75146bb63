package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account row. Email is unique across the whole table.
type User struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email         string     `gorm:"size:255;not null;uniqueIndex:idx_users_email"`
	PasswordHash  string     `gorm:"size:255;not null"`
	FirstName     string     `gorm:"size:128"`
	LastName      string     `gorm:"size:128"`
	Role          string     `gorm:"size:16;not null"`
	AccountType   string     `gorm:"size:16;not null"`
	CompanyID     *uuid.UUID `gorm:"type:uuid;index"`
	CompanyName   string     `gorm:"size:255"`
	BusinessType  string     `gorm:"size:64"`
	EmailVerified bool       `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
