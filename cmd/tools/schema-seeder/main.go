package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"camp-portal/internal/common/config"
	"camp-portal/internal/common/database"
	"camp-portal/internal/store"
	"camp-portal/pkg/formschema"
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)
	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)

	validatePath := validateCmd.String("path", "forms/camp.json", "Path to form definition")
	seedPath := seedCmd.String("path", "forms/camp.json", "Path to form definition")
	dryRun := seedCmd.Bool("dry-run", false, "Validate and print counts without writing")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		def, err := loadValid(*validatePath)
		if err != nil {
			fmt.Printf("Form validation failed:\n%v\n", err)
			os.Exit(1)
		}
		sections, questions := def.Models()
		fmt.Printf("Form validation passed: %d sections, %d questions.\n", len(sections), len(questions))

	case "migrate":
		migrateCmd.Parse(os.Args[2:])
		if err := withStore(func(ctx context.Context, st *store.Store) error {
			return st.Migrate(ctx)
		}); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Schema applied.")

	case "seed":
		seedCmd.Parse(os.Args[2:])
		def, err := loadValid(*seedPath)
		if err != nil {
			fmt.Printf("Form validation failed:\n%v\n", err)
			os.Exit(1)
		}
		sections, questions := def.Models()
		if *dryRun {
			fmt.Printf("Dry run: would upsert %d sections and %d questions.\n", len(sections), len(questions))
			return
		}
		err = withStore(func(ctx context.Context, st *store.Store) error {
			return seed(ctx, st, def)
		})
		if err != nil {
			fmt.Printf("Seeding failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Seeded %d sections and %d questions.\n", len(sections), len(questions))

	case "help":
		fallthrough
	default:
		help()
	}
}

func loadValid(path string) (*formschema.Definition, error) {
	def, err := formschema.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load form: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// seed upserts the whole form in one transaction. Questions are written in
// document order so conditional triggers exist before their dependents.
func seed(ctx context.Context, st *store.Store, def *formschema.Definition) error {
	sections, questions := def.Models()
	return st.InTx(ctx, func(q *store.Queries) error {
		for _, s := range sections {
			if err := q.UpsertSection(ctx, s); err != nil {
				return err
			}
		}
		for _, qn := range questions {
			if err := q.UpsertQuestion(ctx, qn); err != nil {
				return err
			}
		}
		return nil
	})
}

func withStore(fn func(ctx context.Context, st *store.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return fn(ctx, store.New(pg))
}

func help() {
	fmt.Println("Usage: schema-seeder <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  validate  Check a form definition file")
	fmt.Println("            -path string  Path to form definition (default \"forms/camp.json\")")
	fmt.Println("  migrate   Apply the database schema")
	fmt.Println("  seed      Upsert sections and questions from a form definition")
	fmt.Println("            -path string  Path to form definition (default \"forms/camp.json\")")
	fmt.Println("            -dry-run      Validate and print counts without writing")
	fmt.Println("  help      Show this help message")
}
