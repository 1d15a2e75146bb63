// Package models defines the core domain models for provisioned companies,
// their accounts and the service modules they subscribe to.
package models

import (
	"time"

	"github.com/google/uuid"
)

// CompanyStatus is the lifecycle state of a company.
type CompanyStatus string

const (
	StatusTrial     CompanyStatus = "Trial"
	StatusActive    CompanyStatus = "Active"
	StatusSuspended CompanyStatus = "Suspended"
	StatusCancelled CompanyStatus = "Cancelled"
)

const (
	// TrialPackage is the sentinel plan assigned at creation.
	TrialPackage = "trial"
	// TrialLength is the fixed trial window granted to new companies.
	TrialLength = 30 * 24 * time.Hour
)

// Address is the postal address of a company.
type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Company defines the domain model for a provisioned tenant.
type Company struct {
	// ID is the internal surrogate key.
	ID uuid.UUID
	// BusinessID is the human-readable identifier, immutable once assigned.
	BusinessID string
	Name       string
	// Email is stored lowercased.
	Email    string
	Website  string
	Phone    string
	Logo     string
	Address  Address
	Status   CompanyStatus
	Currency string
	Language string
	// ModuleID references the single service module assigned at creation.
	ModuleID       uuid.UUID
	ModuleCode     string
	ModuleSequence int
	TenantSequence int
	TrialStart     time.Time
	TrialEnd       time.Time
	TrialExpired   bool
	Package        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StartTrial sets the trial window beginning at now.
func (c *Company) StartTrial(now time.Time) {
	c.Status = StatusTrial
	c.TrialStart = now
	c.TrialEnd = now.Add(TrialLength)
	c.TrialExpired = false
	c.Package = TrialPackage
}

// Module is a service line a company subscribes to.
type Module struct {
	ID     uuid.UUID
	Name   string
	Active bool
}
