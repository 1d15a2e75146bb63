// Package db implements the provisioning store on top of GORM. Every error
// it returns is translated onto the provisioning error taxonomy.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	m "github.com/gartstein/tenantprov/internal/provisioning/db/models"
	e "github.com/gartstein/tenantprov/internal/provisioning/errors"
	"github.com/gartstein/tenantprov/internal/provisioning/models"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// DSN overrides the discrete connection fields when set.
	DSN          string
	MaxOpenConns int
	LogLevel     gormlogger.LogLevel
}

func (cfg *Config) dialector() (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", DriverPostgres:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
				cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		}
		return postgres.Open(dsn), nil
	case DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func NewRepository(cfg *Config) (*Repository, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	logLevel := cfg.LogLevel
	if logLevel == 0 {
		logLevel = gormlogger.Warn
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", translate(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	switch {
	case cfg.Driver == DriverSQLite:
		// An in-memory database lives and dies with its single connection.
		sqlDB.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.AutoMigrate(&m.Module{}, &m.Company{}, &m.User{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	row := companyToRow(company)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate(err)
	}
	company.CreatedAt = row.CreatedAt
	company.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) GetCompanyByBusinessID(ctx context.Context, businessID string) (*models.Company, error) {
	var row m.Company
	result := r.db.WithContext(ctx).First(&row, "business_id = ?", businessID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, translate(result.Error)
	}
	return companyFromRow(&row), nil
}

// MaxModuleSequence returns the highest module sequence issued under code,
// including soft-deleted companies, or 0.
func (r *Repository) MaxModuleSequence(ctx context.Context, code string) (int, error) {
	var highest int
	err := r.db.WithContext(ctx).Unscoped().Model(&m.Company{}).
		Where("module_code = ?", code).
		Select("COALESCE(MAX(module_sequence), 0)").
		Scan(&highest).Error
	return highest, translate(err)
}

// MaxTenantSequence returns the highest tenant sequence ever issued, or 0.
func (r *Repository) MaxTenantSequence(ctx context.Context) (int, error) {
	var highest int
	err := r.db.WithContext(ctx).Unscoped().Model(&m.Company{}).
		Select("COALESCE(MAX(tenant_sequence), 0)").
		Scan(&highest).Error
	return highest, translate(err)
}

func (r *Repository) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var row m.User
	result := r.db.WithContext(ctx).First(&row, "email = ?", models.NormalizeEmail(email))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, translate(result.Error)
	}
	return accountFromRow(&row), nil
}

func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	row := accountToRow(account)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate(err)
	}
	account.CreatedAt = row.CreatedAt
	account.UpdatedAt = row.UpdatedAt
	return nil
}

// LinkAdmin promotes an existing account to company administrator. The
// password hash column is never part of the update.
func (r *Repository) LinkAdmin(ctx context.Context, link *models.AdminLink) error {
	result := r.db.WithContext(ctx).Model(&m.User{}).
		Where("id = ?", link.AccountID).
		Updates(map[string]interface{}{
			"role":          string(models.RoleAdmin),
			"company_id":    link.CompanyID,
			"company_name":  link.CompanyName,
			"business_type": link.BusinessType,
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) GetModule(ctx context.Context, id uuid.UUID) (*models.Module, error) {
	var row m.Module
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, translate(result.Error)
	}
	return moduleFromRow(&row), nil
}

func (r *Repository) FindModuleByName(ctx context.Context, name string) (*models.Module, error) {
	var row m.Module
	result := r.db.WithContext(ctx).First(&row, "LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name)))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, translate(result.Error)
	}
	return moduleFromRow(&row), nil
}

// SeedModules inserts reference modules, leaving existing names untouched.
func (r *Repository) SeedModules(ctx context.Context, modules []models.Module) error {
	if len(modules) == 0 {
		return nil
	}
	rows := make([]m.Module, 0, len(modules))
	for _, mod := range modules {
		rows = append(rows, m.Module{ID: mod.ID, Name: mod.Name, Active: mod.Active})
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	return translate(err)
}

// WithTransaction runs fn in a transaction. Calling it on a repository that
// is already inside a transaction opens a savepoint instead.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
	return translate(err)
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return translate(result.Error)
	}
	return nil
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
