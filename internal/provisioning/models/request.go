package models

import (
	"strings"
)

// ProvisionRequest is the inbound "create company" payload. Free text that
// ends up in mail headers or templates is tagged singleline.
type ProvisionRequest struct {
	ID                string `json:"id" validate:"omitempty,max=64"`
	Module            string `json:"module" validate:"omitempty,max=255,singleline"`
	CompanyName       string `json:"companyName" validate:"required,max=255,singleline"`
	CompanyEmail      string `json:"companyEmail" validate:"omitempty,email"`
	CompanyWebsite    string `json:"companyWebsite" validate:"omitempty,max=255,singleline"`
	Website           string `json:"website" validate:"omitempty,max=255,singleline"`
	CompanyPhone      string `json:"companyPhone" validate:"omitempty,max=32,singleline"`
	Logo              string `json:"logo" validate:"omitempty,max=1024,singleline"`
	AddressLine1      string `json:"addressLine1" validate:"omitempty,singleline"`
	AddressLine2      string `json:"addressLine2" validate:"omitempty,singleline"`
	City              string `json:"city" validate:"omitempty,singleline"`
	State             string `json:"state" validate:"omitempty,singleline"`
	PostalCode        string `json:"postalCode" validate:"omitempty,singleline"`
	Country           string `json:"country" validate:"omitempty,singleline"`
	DefaultCurrency   string `json:"defaultCurrency" validate:"omitempty,len=3"`
	Language          string `json:"language" validate:"omitempty,max=16"`
	AdminEmail        string `json:"adminEmail" validate:"required,email"`
	AdminPassword     string `json:"adminPassword" validate:"required"`
	AdminFirstName    string `json:"adminFirstName" validate:"omitempty,singleline"`
	AdminLastName     string `json:"adminLastName" validate:"omitempty,singleline"`
	LoginAllowed      bool   `json:"loginAllowed"`
	CustomerEmail     string `json:"customerEmail" validate:"omitempty,email"`
	CustomerPassword  string `json:"customerPassword"`
	CustomerFirstName string `json:"customerFirstName" validate:"omitempty,singleline"`
	CustomerLastName  string `json:"customerLastName" validate:"omitempty,singleline"`
}

// Normalize trims input and lowercases email addresses.
func (r *ProvisionRequest) Normalize() {
	r.ID = strings.TrimSpace(r.ID)
	r.Module = strings.TrimSpace(r.Module)
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	r.CompanyEmail = NormalizeEmail(r.CompanyEmail)
	r.AdminEmail = NormalizeEmail(r.AdminEmail)
	r.CustomerEmail = NormalizeEmail(r.CustomerEmail)
	r.DefaultCurrency = strings.ToUpper(strings.TrimSpace(r.DefaultCurrency))
	r.Language = strings.TrimSpace(r.Language)
}

// SiteURL prefers companyWebsite over the legacy website field.
func (r *ProvisionRequest) SiteURL() string {
	if w := strings.TrimSpace(r.CompanyWebsite); w != "" {
		return w
	}
	return strings.TrimSpace(r.Website)
}

// WantsCustomer reports whether a distinct customer login was requested.
func (r *ProvisionRequest) WantsCustomer() bool {
	return r.LoginAllowed &&
		r.CustomerEmail != "" &&
		r.CustomerPassword != "" &&
		r.CustomerEmail != r.AdminEmail
}

// NormalizeEmail returns the canonical stored form of an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Credentials holds the plaintext secrets used at creation time. They are
// handed to the notifier only and never persisted.
type Credentials struct {
	AdminPassword    string
	CustomerPassword string
}

// ProvisionResult is everything a successful provisioning call created or linked.
type ProvisionResult struct {
	Company  *Company
	Admin    *Account
	Customer *Account
	// AdminCreated is false when an existing account was promoted.
	AdminCreated bool
	Warnings     []string
}
