// Command migrate inspects and changes the database schema.
//
//	migrate up            apply pending SQL migrations
//	migrate auto          run GORM AutoMigrate regardless of DB_SCHEMA_MODE
//	migrate status        print the schema plan and pending migrations
//	migrate down VERSION  revert one applied migration
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"vibeu/internal/config"
	"vibeu/internal/database"

	"gorm.io/gorm"
)

type command struct {
	args  string
	nargs int
	run   func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error
}

var commands = map[string]command{
	"up":     {run: migrateUp},
	"auto":   {run: migrateAuto},
	"status": {run: migrateStatus},
	"down":   {args: "VERSION", nargs: 1, run: migrateDown},
}

func main() {
	flag.Usage = usage
	timeout := flag.Duration("timeout", 5*time.Minute, "Abort the schema operation after this long")
	flag.Parse()

	name := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	cmd, ok := commands[name]
	if !ok || flag.NArg()-1 != cmd.nargs {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := cmd.run(ctx, db, cfg, flag.Args()[1:]); err != nil {
		log.Fatalf("%s: %v", name, err)
	}
}

func usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	out := flag.CommandLine.Output()
	_, _ = fmt.Fprintln(out, "usage: migrate [-timeout D] COMMAND [ARGS]")
	for _, name := range names {
		_, _ = fmt.Fprintf(out, "  %s %s\n", name, commands[name].args)
	}
}

func migrateUp(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	if err := database.RunMigrations(ctx, db); err != nil {
		return err
	}
	log.Println("sql migrations applied")
	return nil
}

func migrateAuto(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	forced := *cfg
	forced.DBSchemaMode = database.SchemaModeAuto
	plan, err := database.PlanSchema(&forced)
	if err != nil {
		return err
	}
	if err := plan.Apply(ctx, db); err != nil {
		return err
	}
	log.Println("automigrations applied")
	return nil
}

func migrateStatus(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	plan, err := database.PlanSchema(cfg)
	if err != nil {
		return err
	}
	applied, pending, err := plan.Pending(ctx, db)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "mode\t%s\n", plan.Mode)
	_, _ = fmt.Fprintf(w, "env\t%s\n", plan.Environment)
	_, _ = fmt.Fprintf(w, "sql migrations\t%t\n", plan.RunSQL)
	_, _ = fmt.Fprintf(w, "automigrate\t%t\n", plan.RunAutoMigrate)
	_, _ = fmt.Fprintf(w, "applied\t%d\n", len(applied))
	for _, m := range pending {
		_, _ = fmt.Fprintf(w, "pending\t%s\n", m.String())
	}
	return w.Flush()
}

func migrateDown(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return err
	}
	log.Printf("rolled back migration %d", version)
	return nil
}
