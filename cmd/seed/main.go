// Command main populates the database with generated profiles and engagement.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"vibeu/internal/config"
	"vibeu/internal/database"
	"vibeu/internal/seed"
)

func main() {
	presetName := flag.String("preset", "small", "Seeder preset to apply")
	presetFile := flag.String("presets", "", "Optional YAML file with extra presets")
	shouldClean := flag.Bool("clean", true, "Clean seeded tables before seeding")
	seedValue := flag.Int64("seed", 0, "Random seed for a reproducible run (0 = time based)")
	flag.Parse()

	presets := seed.BuiltinPresets()
	if *presetFile != "" {
		extra, err := loadPresetFile(*presetFile)
		if err != nil {
			log.Fatalf("Failed to load presets: %v", err)
		}
		for name, p := range extra {
			presets[name] = p
		}
	}

	preset, ok := presets[*presetName]
	if !ok {
		log.Fatalf("Unknown preset %q (available: %s)", *presetName, strings.Join(seed.PresetNames(presets), ", "))
	}
	if *seedValue != 0 {
		preset.Seed = *seedValue
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	s := seed.NewSeeder(db)
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	log.Printf("Applying preset %q", *presetName)
	summary, err := s.Run(ctx, preset)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Done: %d profiles, %d posts, %d likes, %d comments, %d notifications",
		summary.Profiles, summary.Posts, summary.Likes, summary.Comments, summary.Notifications)
}

func loadPresetFile(path string) (map[string]seed.Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	presets, err := seed.LoadPresets(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return presets, nil
}
