package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"vibeu/internal/config"
	"vibeu/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes selected by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// protectedEnvs never get AutoMigrate unless it is forced.
var protectedEnvs = []string{"production", "prod", "staging", "stage"}

// SchemaPlan is the set of schema steps a configuration asks for. The SQL
// migrations are the source of truth; AutoMigrate only fills development gaps.
type SchemaPlan struct {
	Mode           string
	Environment    string
	RunSQL         bool
	RunAutoMigrate bool
	// Forced marks AutoMigrate running in a protected environment.
	Forced bool
}

// PlanSchema resolves DB_SCHEMA_MODE against the environment.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	plan := SchemaPlan{
		Mode:        strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)),
		Environment: cfg.Env,
	}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}
	protected := slices.Contains(protectedEnvs, strings.ToLower(strings.TrimSpace(cfg.Env)))

	switch plan.Mode {
	case SchemaModeSQL:
		plan.RunSQL = true
	case SchemaModeHybrid:
		plan.RunSQL = true
		plan.RunAutoMigrate = !protected
	case SchemaModeAuto:
		if protected && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("DB_SCHEMA_MODE=auto in %q needs DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.RunAutoMigrate = true
		plan.Forced = protected
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}
	return plan, nil
}

// Apply runs the planned steps, SQL migrations first.
func (p SchemaPlan) Apply(ctx context.Context, db *gorm.DB) error {
	if p.RunSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !p.RunAutoMigrate {
		return nil
	}

	logger := middleware.Logger.With(slog.String("mode", p.Mode), slog.String("env", p.Environment))
	if p.Forced {
		logger.Warn("AutoMigrate forced in a protected environment; review the schema diff")
	}
	logger.Info("Running GORM AutoMigrate", slog.Int("models", len(PersistentModels())))
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Pending lists applied versions and the registered migrations not yet applied.
// Plans that skip SQL report nothing.
func (p SchemaPlan) Pending(ctx context.Context, db *gorm.DB) ([]int, []Migration, error) {
	if !p.RunSQL {
		return nil, nil, nil
	}
	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, nil, err
	}
	var pending []Migration
	for _, m := range GetMigrations() {
		if !slices.Contains(applied, m.Version) {
			pending = append(pending, m)
		}
	}
	return applied, pending, nil
}
