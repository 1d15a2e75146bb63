package db

import (
	m "github.com/gartstein/tenantprov/internal/provisioning/db/models"
	"github.com/gartstein/tenantprov/internal/provisioning/models"
)

func companyToRow(c *models.Company) *m.Company {
	return &m.Company{
		ID:             c.ID,
		BusinessID:     c.BusinessID,
		Name:           c.Name,
		Email:          c.Email,
		Website:        c.Website,
		Phone:          c.Phone,
		Logo:           c.Logo,
		AddressLine1:   c.Address.Line1,
		AddressLine2:   c.Address.Line2,
		City:           c.Address.City,
		State:          c.Address.State,
		PostalCode:     c.Address.PostalCode,
		Country:        c.Address.Country,
		Status:         string(c.Status),
		Currency:       c.Currency,
		Language:       c.Language,
		ModuleID:       c.ModuleID,
		ModuleCode:     c.ModuleCode,
		ModuleSequence: c.ModuleSequence,
		TenantSequence: c.TenantSequence,
		TrialStart:     c.TrialStart,
		TrialEnd:       c.TrialEnd,
		TrialExpired:   c.TrialExpired,
		Package:        c.Package,
	}
}

func companyFromRow(row *m.Company) *models.Company {
	return &models.Company{
		ID:         row.ID,
		BusinessID: row.BusinessID,
		Name:       row.Name,
		Email:      row.Email,
		Website:    row.Website,
		Phone:      row.Phone,
		Logo:       row.Logo,
		Address: models.Address{
			Line1:      row.AddressLine1,
			Line2:      row.AddressLine2,
			City:       row.City,
			State:      row.State,
			PostalCode: row.PostalCode,
			Country:    row.Country,
		},
		Status:         models.CompanyStatus(row.Status),
		Currency:       row.Currency,
		Language:       row.Language,
		ModuleID:       row.ModuleID,
		ModuleCode:     row.ModuleCode,
		ModuleSequence: row.ModuleSequence,
		TenantSequence: row.TenantSequence,
		TrialStart:     row.TrialStart,
		TrialEnd:       row.TrialEnd,
		TrialExpired:   row.TrialExpired,
		Package:        row.Package,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func accountToRow(a *models.Account) *m.User {
	return &m.User{
		ID:            a.ID,
		Email:         models.NormalizeEmail(a.Email),
		PasswordHash:  a.PasswordHash,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Role:          string(a.Role),
		AccountType:   string(a.Type),
		CompanyID:     a.CompanyID,
		CompanyName:   a.CompanyName,
		BusinessType:  a.BusinessType,
		EmailVerified: a.EmailVerified,
	}
}

func accountFromRow(row *m.User) *models.Account {
	return &models.Account{
		ID:            row.ID,
		Email:         row.Email,
		PasswordHash:  row.PasswordHash,
		FirstName:     row.FirstName,
		LastName:      row.LastName,
		Role:          models.Role(row.Role),
		Type:          models.AccountType(row.AccountType),
		CompanyID:     row.CompanyID,
		CompanyName:   row.CompanyName,
		BusinessType:  row.BusinessType,
		EmailVerified: row.EmailVerified,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func moduleFromRow(row *m.Module) *models.Module {
	return &models.Module{
		ID:     row.ID,
		Name:   row.Name,
		Active: row.Active,
	}
}
