package models

import (
	"time"

	"github.com/google/uuid"
)

// Module is reference data describing a service line.
type Module struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:255;not null;uniqueIndex:idx_modules_name"`
	Active    bool      `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
