package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization role of an account.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleEmployee Role = "EMPLOYEE"
)

// AccountType separates staff logins from customer logins.
type AccountType string

const (
	AccountStaff    AccountType = "staff"
	AccountCustomer AccountType = "customer"
)

// DefaultBusinessType is attached to administrators linked during provisioning.
const DefaultBusinessType = "company"

// Account is a user login. Email is unique across all companies.
type Account struct {
	ID            uuid.UUID
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	Role          Role
	Type          AccountType
	CompanyID     *uuid.UUID
	CompanyName   string
	BusinessType  string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AdminLink is the in-place promotion applied to an existing account.
// It carries no credential.
type AdminLink struct {
	AccountID    uuid.UUID
	CompanyID    uuid.UUID
	CompanyName  string
	BusinessType string
}
