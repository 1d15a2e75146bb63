// Package controller implements the provisioning service: it turns a
// "create company" request into a company, its administrator and an
// optional customer login, all committed in one transaction, and hands the
// committed result to the notifier.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gartstein/tenantprov/internal/pkg/utils"
	"github.com/gartstein/tenantprov/internal/provisioning/db"
	e "github.com/gartstein/tenantprov/internal/provisioning/errors"
	"github.com/gartstein/tenantprov/internal/provisioning/identifier"
	"github.com/gartstein/tenantprov/internal/provisioning/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultCurrency  = "USD"
	DefaultLanguage  = "en"
	DefaultTxTimeout = 10 * time.Second
)

// Repository defines the storage the service needs outside a transaction.
type Repository interface {
	GetCompanyByBusinessID(ctx context.Context, businessID string) (*models.Company, error)
	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
	Close() error
}

// PasswordHasher hashes plaintext credentials for storage.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// Notifier receives every committed result. It must not block and returns
// warnings for notifications it could not accept.
type Notifier interface {
	Notify(result *models.ProvisionResult, creds models.Credentials) []string
}

type Options struct {
	// TxTimeout bounds the whole provisioning transaction.
	TxTimeout time.Duration
	// DefaultModule is the module name assigned when a request names none.
	DefaultModule string
}

// ProvisioningService creates tenants and their accounts.
type ProvisioningService struct {
	repo     Repository
	hasher   PasswordHasher
	notifier Notifier
	resolver *identifier.Resolver
	validate *validator.Validate
	logger   *zap.Logger
	opts     Options
	now      func() time.Time
}

func NewProvisioningService(
	repo Repository,
	hasher PasswordHasher,
	notifier Notifier,
	resolver *identifier.Resolver,
	logger *zap.Logger,
	opts Options,
) *ProvisioningService {
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = DefaultTxTimeout
	}
	return &ProvisioningService{
		repo:     repo,
		hasher:   hasher,
		notifier: notifier,
		resolver: resolver,
		validate: newValidator(),
		logger:   logger.Named("provisioning_service"),
		opts:     opts,
		now:      time.Now,
	}
}

// provisioning carries one request through the transaction.
type provisioning struct {
	req          *models.ProvisionRequest
	override     *identifier.Identifier
	adminHash    string
	customerHash string
	now          time.Time
	result       *models.ProvisionResult
}

// ProvisionCompany validates req, creates the company and its accounts
// atomically and notifies the created users after commit. Errors are
// classified with errors.KindOf.
func (s *ProvisioningService) ProvisionCompany(ctx context.Context, req *models.ProvisionRequest) (*models.ProvisionResult, error) {
	if req == nil {
		return nil, e.Invalid("request", "is required")
	}
	req.Normalize()
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	p := &provisioning{
		req:    req,
		now:    s.now().UTC(),
		result: &models.ProvisionResult{},
	}
	if req.ID != "" {
		parsed, err := identifier.Parse(req.ID)
		if err != nil {
			return nil, e.Invalid("id", "must look like MD-0001-CO-25-00001")
		}
		p.override = &parsed
	}

	// Hash outside the transaction budget.
	var err error
	if p.adminHash, err = s.hasher.Hash(req.AdminPassword); err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	if req.WantsCustomer() {
		if p.customerHash, err = s.hasher.Hash(req.CustomerPassword); err != nil {
			return nil, fmt.Errorf("failed to hash customer password: %w", err)
		}
	}

	txCtx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	err = s.repo.WithTransaction(txCtx, func(tx *db.Repository) error {
		return s.provision(txCtx, tx, p)
	})
	if err != nil {
		err = classifyTxError(txCtx, err)
		s.logger.Error("Failed to provision company",
			zap.Error(err),
			zap.String("error_type", string(e.KindOf(err))),
			zap.String("company_name", req.CompanyName),
			zap.String("admin_email", req.AdminEmail),
		)
		return nil, err
	}

	result := p.result
	creds := models.Credentials{AdminPassword: req.AdminPassword}
	if result.Customer != nil {
		creds.CustomerPassword = req.CustomerPassword
	}
	result.Warnings = append(result.Warnings, s.notifier.Notify(result, creds)...)

	s.logger.Info("Company provisioned",
		zap.String("business_id", result.Company.BusinessID),
		zap.String("company_id", result.Company.ID.String()),
		zap.String("admin_id", result.Admin.ID.String()),
		zap.Bool("admin_created", result.AdminCreated),
		zap.Bool("customer_created", result.Customer != nil),
		zap.Int("warnings", len(result.Warnings)),
	)
	return result, nil
}

// provision runs inside the transaction. Any returned error rolls back
// everything written through tx.
func (s *ProvisioningService) provision(ctx context.Context, tx *db.Repository, p *provisioning) error {
	req := p.req

	module, err := s.lookupModule(ctx, tx, p)
	if err != nil {
		return err
	}

	company := &models.Company{
		ID:      uuid.New(),
		Name:    req.CompanyName,
		Email:   req.CompanyEmail,
		Website: req.SiteURL(),
		Phone:   strings.TrimSpace(req.CompanyPhone),
		Logo:    strings.TrimSpace(req.Logo),
		Address: models.Address{
			Line1:      strings.TrimSpace(req.AddressLine1),
			Line2:      strings.TrimSpace(req.AddressLine2),
			City:       strings.TrimSpace(req.City),
			State:      strings.TrimSpace(req.State),
			PostalCode: strings.TrimSpace(req.PostalCode),
			Country:    strings.TrimSpace(req.Country),
		},
		Currency: utils.FirstNonEmpty(req.DefaultCurrency, DefaultCurrency),
		Language: utils.FirstNonEmpty(req.Language, DefaultLanguage),
		ModuleID: module.ID,
	}
	company.StartTrial(p.now)

	if err := s.assignIdentifier(ctx, tx, p, module, company); err != nil {
		return err
	}
	if err := tx.CreateCompany(ctx, company); err != nil {
		if errors.Is(err, e.ErrDuplicate) {
			return e.Duplicate("id", err)
		}
		return fmt.Errorf("failed to create company: %w", err)
	}
	p.result.Company = company

	if err := s.attachAdmin(ctx, tx, p, company); err != nil {
		return err
	}
	if req.WantsCustomer() {
		return s.attachCustomer(ctx, tx, p, company)
	}
	return nil
}

// lookupModule resolves the module reference as an id first, then as a
// name. A request without a reference gets the default module and a warning.
func (s *ProvisioningService) lookupModule(ctx context.Context, tx *db.Repository, p *provisioning) (*models.Module, error) {
	ref := p.req.Module
	if ref == "" {
		module, err := tx.FindModuleByName(ctx, s.opts.DefaultModule)
		if errors.Is(err, e.ErrNotFound) {
			return nil, e.Invalid("module", fmt.Sprintf("no module given and default module %q does not exist", s.opts.DefaultModule))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up default module: %w", err)
		}
		p.result.Warnings = append(p.result.Warnings,
			fmt.Sprintf("no module given; assigned default module %q", module.Name))
		s.logger.Warn("Assigned default module",
			zap.String("module", module.Name),
			zap.String("company_name", p.req.CompanyName),
		)
		return module, nil
	}

	var (
		module *models.Module
		err    error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		module, err = tx.GetModule(ctx, id)
	} else {
		module, err = tx.FindModuleByName(ctx, ref)
	}
	if errors.Is(err, e.ErrNotFound) {
		return nil, e.Invalid("module", fmt.Sprintf("unknown module %q", ref))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up module: %w", err)
	}
	if !module.Active {
		return nil, e.Invalid("module", fmt.Sprintf("module %q is not active", module.Name))
	}
	return module, nil
}

// assignIdentifier composes a fresh business id or records the components
// of a caller supplied one.
func (s *ProvisioningService) assignIdentifier(ctx context.Context, tx *db.Repository, p *provisioning, module *models.Module, company *models.Company) error {
	if p.override != nil {
		company.BusinessID = p.req.ID
		company.ModuleCode = p.override.ModuleCode
		company.ModuleSequence = p.override.ModuleSequence
		company.TenantSequence = p.override.TenantSequence
		return nil
	}

	resolution := s.resolver.Resolve(module.Name)
	if resolution.Source != identifier.SourceRule {
		s.logger.Warn("Module code not covered by rules",
			zap.String("module", module.Name),
			zap.String("code", resolution.Code),
			zap.String("source", string(resolution.Source)),
		)
	}

	moduleSeq, err := NextModuleSequence(ctx, tx, resolution.Code)
	if err != nil {
		return err
	}
	tenantSeq, err := NextTenantSequence(ctx, tx)
	if err != nil {
		return err
	}

	company.ModuleCode = resolution.Code
	company.ModuleSequence = moduleSeq
	company.TenantSequence = tenantSeq
	company.BusinessID = identifier.Compose(resolution.Code, moduleSeq, p.now.Year(), tenantSeq)
	return nil
}

// attachAdmin promotes the account owning the admin email or creates one.
// A promoted account keeps its credential.
func (s *ProvisioningService) attachAdmin(ctx context.Context, tx *db.Repository, p *provisioning, company *models.Company) error {
	req := p.req

	existing, err := tx.FindAccountByEmail(ctx, req.AdminEmail)
	switch {
	case err == nil:
		link := &models.AdminLink{
			AccountID:    existing.ID,
			CompanyID:    company.ID,
			CompanyName:  company.Name,
			BusinessType: models.DefaultBusinessType,
		}
		if err := tx.LinkAdmin(ctx, link); err != nil {
			return fmt.Errorf("failed to link admin: %w", err)
		}
		existing.Role = models.RoleAdmin
		existing.CompanyID = utils.Ptr(company.ID)
		existing.CompanyName = company.Name
		existing.BusinessType = models.DefaultBusinessType
		p.result.Admin = existing
		p.result.AdminCreated = false
		return nil
	case !errors.Is(err, e.ErrNotFound):
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	admin := &models.Account{
		ID:           uuid.New(),
		Email:        req.AdminEmail,
		PasswordHash: p.adminHash,
		FirstName:    strings.TrimSpace(req.AdminFirstName),
		LastName:     strings.TrimSpace(req.AdminLastName),
		Role:         models.RoleAdmin,
		Type:         models.AccountStaff,
		CompanyID:    utils.Ptr(company.ID),
		CompanyName:  company.Name,
		BusinessType: models.DefaultBusinessType,
	}
	if err := tx.CreateAccount(ctx, admin); err != nil {
		if errors.Is(err, e.ErrDuplicate) {
			return e.Duplicate("adminEmail", err)
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}
	p.result.Admin = admin
	p.result.AdminCreated = true
	return nil
}

// attachCustomer creates the customer login inside a savepoint. An email
// that is already taken skips the customer without failing the company.
func (s *ProvisioningService) attachCustomer(ctx context.Context, tx *db.Repository, p *provisioning, company *models.Company) error {
	req := p.req
	skipped := fmt.Sprintf("customer %s already has an account; customer login not created", req.CustomerEmail)

	_, err := tx.FindAccountByEmail(ctx, req.CustomerEmail)
	if err == nil {
		p.result.Warnings = append(p.result.Warnings, skipped)
		return nil
	}
	if !errors.Is(err, e.ErrNotFound) {
		return fmt.Errorf("failed to look up customer: %w", err)
	}

	customer := &models.Account{
		ID:            uuid.New(),
		Email:         req.CustomerEmail,
		PasswordHash:  p.customerHash,
		FirstName:     strings.TrimSpace(req.CustomerFirstName),
		LastName:      strings.TrimSpace(req.CustomerLastName),
		Role:          models.RoleEmployee,
		Type:          models.AccountCustomer,
		CompanyID:     utils.Ptr(company.ID),
		CompanyName:   company.Name,
		BusinessType:  models.DefaultBusinessType,
		EmailVerified: true,
	}
	err = tx.WithTransaction(ctx, func(sp *db.Repository) error {
		return sp.CreateAccount(ctx, customer)
	})
	switch {
	case err == nil:
		p.result.Customer = customer
		return nil
	case errors.Is(err, e.ErrDuplicate):
		p.result.Warnings = append(p.result.Warnings, skipped)
		s.logger.Warn("Customer email taken concurrently, skipping customer",
			zap.String("business_id", company.BusinessID),
		)
		return nil
	default:
		return fmt.Errorf("failed to create customer: %w", err)
	}
}

// classifyTxError reports a transaction cut short by its deadline as a
// timeout whatever the driver said.
func classifyTxError(txCtx context.Context, err error) error {
	if e.KindOf(err) == e.KindTimeout || e.KindOf(err) == e.KindValidation {
		return err
	}
	if errors.Is(txCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", e.ErrTimeout, err)
	}
	return err
}

// GetCompany returns the company registered under businessID.
func (s *ProvisioningService) GetCompany(ctx context.Context, businessID string) (*models.Company, error) {
	businessID = strings.TrimSpace(businessID)
	if businessID == "" {
		return nil, e.Invalid("businessId", "is required")
	}

	company, err := s.repo.GetCompanyByBusinessID(ctx, businessID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return company, nil
}
