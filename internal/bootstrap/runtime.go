package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vibeu/internal/cache"
	"vibeu/internal/config"
	"vibeu/internal/database"
	"vibeu/internal/middleware"
	"vibeu/internal/models"
	"vibeu/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedPreset names a built-in preset applied when the database has no profiles.
	SeedPreset string
}

// InitRuntime connects to DB and Redis and optionally seeds an empty development database.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	// Connect DB; Connect applies the schema policy
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := seedIfEmpty(cfg, db, opts.SeedPreset); err != nil {
		return nil, nil, fmt.Errorf("failed to seed development data: %w", err)
	}

	return db, r, nil
}

func seedIfEmpty(cfg *config.Config, db *gorm.DB, presetName string) error {
	presetName = strings.TrimSpace(presetName)
	if presetName == "" || cfg.IsProduction() {
		return nil
	}

	preset, ok := seed.BuiltinPresets()[presetName]
	if !ok {
		return fmt.Errorf("unknown seed preset %q", presetName)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var existing int64
	if err := db.WithContext(ctx).Model(&models.Profile{}).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	summary, err := seed.NewSeeder(db).Run(ctx, preset)
	if err != nil {
		return err
	}
	middleware.Logger.Info("development data seeded",
		slog.String("preset", presetName),
		slog.Int("profiles", summary.Profiles),
		slog.Int("posts", summary.Posts),
	)
	return nil
}
