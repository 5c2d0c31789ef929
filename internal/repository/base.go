// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"time"

	"vibeu/internal/models"
	"vibeu/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// DefaultStoreTimeout bounds every store call when no Option overrides it.
const DefaultStoreTimeout = 5 * time.Second

// Option configures a repository.
type Option func(*store)

// WithStoreTimeout sets the per-call deadline. Zero or negative keeps the default.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// store is embedded by every repository implementation.
type store struct {
	db      *gorm.DB
	timeout time.Duration
	table   string
	log     *observability.RepoLogger
}

func newStore(db *gorm.DB, table string, opts []Option) store {
	s := store{
		db:      db,
		timeout: DefaultStoreTimeout,
		table:   table,
		log:     observability.NewRepoLogger(table),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// conn returns a session bound to a deadline-limited context. Callers must invoke done.
func (s *store) conn(ctx context.Context, operation string) (*gorm.DB, func()) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	track := observability.TrackQuery(operation, s.table)
	return s.db.WithContext(ctx), func() {
		track()
		cancel()
	}
}

// fail classifies err into the application error taxonomy and logs unexpected failures.
func (s *store) fail(ctx context.Context, err error, operation, resource string, id any) error {
	classified := classify(err, resource, id)
	switch models.ErrorCode(classified) {
	case models.CodeNotFound, models.CodeConflict:
	default:
		s.log.LogError(ctx, err, operation)
	}
	return classified
}

// classify maps driver and gorm errors onto AppError codes.
// gorm is opened with TranslateError so unique and FK violations arrive as sentinel errors.
func classify(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		observability.StoreErrors.WithLabelValues("not_found").Inc()
		return models.NewNotFoundError(resource, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		observability.StoreErrors.WithLabelValues("conflict").Inc()
		return models.NewConflictError(resource+" already exists", err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		observability.StoreErrors.WithLabelValues("not_found").Inc()
		return &models.AppError{Code: models.CodeNotFound, Message: "referenced record not found", Err: err}
	case isTransient(err):
		observability.StoreErrors.WithLabelValues("transient").Inc()
		return models.NewTransientStoreError(err)
	default:
		observability.StoreErrors.WithLabelValues("internal").Inc()
		return models.NewInternalError(err)
	}
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"): // connection exception
			return true
		case pgErr.Code == "40001", pgErr.Code == "40P01": // serialization failure, deadlock
			return true
		case pgErr.Code == "57014", pgErr.Code == "57P01", pgErr.Code == "53300": // canceled, admin shutdown, too many connections
			return true
		}
		return false
	}

	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
