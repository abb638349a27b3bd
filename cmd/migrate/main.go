package main

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/flockhq/flock/internal/infrastructure/config"
	"github.com/flockhq/flock/internal/infrastructure/database"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

var (
	envFlag string
	db      *database.DB
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "System-table migration tool for flock",
	Long: `System-table migration tool for flock.
Manages the flock_schemas and flock_api_keys tables on PostgreSQL or SQLite
using golang-migrate. Model tables are provisioned by the server from the
active schema.`,
	PersistentPreRunE: setupDatabase,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runUp,
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback migrations",
	Long:  `Rollback the specified number of migrations (default: 1).`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDown,
}

var gotoCmd = &cobra.Command{
	Use:   "goto <version>",
	Short: "Migrate to a specific version",
	Args:  cobra.ExactArgs(1),
	RunE:  runGoto,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show current migration version",
	RunE:  runVersion,
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Force set migration version (use with caution)",
	Long:  `Force set the migration version without running migrations. Use with caution.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runForce,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "dev", "Environment to use (dev, test, prod)")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(gotoCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(forceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute command: %v", err)
	}
}

func setupDatabase(cmd *cobra.Command, args []string) error {
	log.Printf("Using environment: %s", envFlag)

	if err := config.InitConfig(envFlag); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err = database.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if db.IsPostgres() {
		log.Printf("Connected to database: %s@%s:%d/%s",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	} else {
		log.Printf("Connected to %s database: %s", cfg.Database.Driver, cfg.Database.SQLitePath)
	}
	return nil
}

func newMigrate() (*migrate.Migrate, error) {
	m, err := db.NewMigrate()
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func parseInt(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", arg, err)
	}
	return n, nil
}

func runUp(cmd *cobra.Command, args []string) error {
	m, err := newMigrate()
	if err != nil {
		return err
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Println("No migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration up failed: %w", err)
	}
	log.Println("Migration up completed successfully")
	return nil
}

func runDown(cmd *cobra.Command, args []string) error {
	steps := 1
	if len(args) > 0 {
		n, err := parseInt(args[0])
		if err != nil {
			return err
		}
		steps = n
	}

	m, err := newMigrate()
	if err != nil {
		return err
	}

	err = m.Steps(-steps)
	if errors.Is(err, migrate.ErrNoChange) {
		log.Println("No migrations to rollback")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration down failed: %w", err)
	}
	log.Printf("Migration down completed successfully (rolled back %d migration(s))", steps)
	return nil
}

func runGoto(cmd *cobra.Command, args []string) error {
	version, err := parseInt(args[0])
	if err != nil {
		return err
	}

	m, err := newMigrate()
	if err != nil {
		return err
	}

	err = m.Migrate(uint(version))
	if errors.Is(err, migrate.ErrNoChange) {
		log.Printf("Already at version %d", version)
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration goto failed: %w", err)
	}
	log.Printf("Migration goto %d completed successfully", version)
	return nil
}

func runVersion(cmd *cobra.Command, args []string) error {
	m, err := newMigrate()
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Println("Current version: No migrations applied yet")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}

	if dirty {
		log.Printf("Current version: %d (dirty - migration may have failed)", version)
	} else {
		log.Printf("Current version: %d", version)
	}
	return nil
}

func runForce(cmd *cobra.Command, args []string) error {
	version, err := parseInt(args[0])
	if err != nil {
		return err
	}

	m, err := newMigrate()
	if err != nil {
		return err
	}

	if err := m.Force(version); err != nil {
		return fmt.Errorf("migration force failed: %w", err)
	}
	log.Printf("Migration forced to version %d", version)
	return nil
}
