package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	e "github.com/gartstein/tenantprov/internal/provisioning/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the store reacts to.
const (
	pgUniqueViolation      = "23505"
	pgQueryCanceled        = "57014"
	pgIdleInTxTimeout      = "25P03"
	pgLockNotAvailable     = "55P03"
	pgAdminShutdown        = "57P01"
	pgCrashShutdown        = "57P02"
	pgCannotConnectNow     = "57P03"
	pgTooManyConnections   = "53300"
	pgConnectionExceptions = "08"
)

// translate maps driver errors onto the provisioning taxonomy. Errors that
// already carry a taxonomy sentinel pass through unchanged.
func translate(err error) error {
	if err == nil || classified(err) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", e.ErrTimeout, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation:
			return fmt.Errorf("%w on %s: %w", e.ErrDuplicate, pgErr.ConstraintName, err)
		case pgErr.Code == pgQueryCanceled, pgErr.Code == pgIdleInTxTimeout, pgErr.Code == pgLockNotAvailable:
			return fmt.Errorf("%w: %w", e.ErrTimeout, err)
		case strings.HasPrefix(pgErr.Code, pgConnectionExceptions),
			pgErr.Code == pgAdminShutdown,
			pgErr.Code == pgCrashShutdown,
			pgErr.Code == pgCannotConnectNow,
			pgErr.Code == pgTooManyConnections:
			return fmt.Errorf("%w: %w", e.ErrUnavailable, err)
		}
		return err
	}

	if pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", e.ErrTimeout, err)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", e.ErrUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", e.ErrUnavailable, err)
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %w", e.ErrDuplicate, err)
	}

	return err
}

func classified(err error) bool {
	return errors.Is(err, e.ErrDuplicate) ||
		errors.Is(err, e.ErrTimeout) ||
		errors.Is(err, e.ErrUnavailable) ||
		errors.Is(err, e.ErrNotFound) ||
		errors.Is(err, e.ErrInvalidInput)
}
