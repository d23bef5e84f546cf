package main

import (
	"bufio"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/tallybook/backend/internal/infrastructure/config"
	"github.com/tallybook/backend/internal/infrastructure/logger"
	"github.com/tallybook/backend/internal/infrastructure/migration"
)

const defaultMigrationsDir = "migrations"

func main() {
	var (
		pathFlag = flag.String("path", "", "migrations directory (default: auto-detect)")
		logLevel = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  *logLevel,
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	dir, err := resolveMigrationsDir(*pathFlag)
	if err != nil {
		log.Fatal("Could not locate migrations directory", zap.Error(err))
	}

	command, rest := args[0], args[1:]

	// create and list operate on the filesystem only.
	switch command {
	case "create":
		if err := runCreate(dir, rest); err != nil {
			log.Fatal("Migration creation failed", zap.Error(err))
		}
		return
	case "list":
		if err := runList(dir); err != nil {
			log.Fatal("Listing migrations failed", zap.Error(err))
		}
		return
	}

	run, ok := dbCommands[command]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to connect to database",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.DBName),
			zap.Error(err))
	}

	migrator, err := migration.New(db, dir, log)
	if err != nil {
		log.Fatal("Failed to initialize migrator", zap.Error(err))
	}
	defer func() {
		_ = migrator.Close()
	}()

	if err := run(migrator, rest, log); err != nil {
		log.Fatal("Migration command failed",
			zap.String("command", command),
			zap.Error(err))
	}
}

// dbCommands maps each command that needs a live database connection to
// its handler. Handlers receive the arguments after the command name.
var dbCommands = map[string]func(*migration.Migrator, []string, *zap.Logger) error{
	"up": func(m *migration.Migrator, _ []string, _ *zap.Logger) error {
		return m.Up()
	},
	"down": func(m *migration.Migrator, _ []string, _ *zap.Logger) error {
		return m.Down()
	},
	"step":    runStep,
	"goto":    runGoTo,
	"version": runVersion,
	"force":   runForce,
	"drop":    runDrop,
}

func runCreate(dir string, args []string) error {
	if len(args) == 0 {
		return errors.New("create requires a migration name")
	}
	name := args[0]
	description := name
	if len(args) > 1 {
		description = strings.Join(args[1:], " ")
	}

	mf, err := migration.CreateMigration(dir, name, description)
	if err != nil {
		return err
	}

	fmt.Println("Created migration files:")
	fmt.Println("  " + mf.UpPath)
	fmt.Println("  " + mf.DownPath)
	return nil
}

func runList(dir string) error {
	names, err := migration.ListMigrations(dir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No migrations found in", dir)
		return nil
	}

	fmt.Printf("Migrations in %s:\n", dir)
	for _, name := range names {
		fmt.Println("  " + name)
	}
	return nil
}

func runStep(m *migration.Migrator, args []string, _ *zap.Logger) error {
	if len(args) == 0 {
		return errors.New("step requires a number of migrations (negative to roll back)")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid step count %q: %w", args[0], err)
	}
	return m.Steps(n)
}

func runGoTo(m *migration.Migrator, args []string, _ *zap.Logger) error {
	version, err := parseVersion(args, "goto")
	if err != nil {
		return err
	}
	return m.GoTo(uint(version))
}

func runVersion(m *migration.Migrator, _ []string, log *zap.Logger) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	log.Info("Current schema version",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
	if dirty {
		fmt.Println("WARNING: schema is dirty; fix the failed migration and run 'force' to clear the flag")
	}
	return nil
}

func runForce(m *migration.Migrator, args []string, _ *zap.Logger) error {
	version, err := parseVersion(args, "force")
	if err != nil {
		return err
	}
	return m.Force(int(version))
}

func runDrop(m *migration.Migrator, _ []string, log *zap.Logger) error {
	fmt.Print("This will DROP EVERYTHING in the database. Type 'yes' to continue: ")
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if strings.TrimSpace(answer) != "yes" {
		log.Info("Drop cancelled")
		return nil
	}
	return m.Drop()
}

func parseVersion(args []string, command string) (uint64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s requires a version number", command)
	}
	version, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	return version, nil
}

// resolveMigrationsDir finds the migrations directory. An explicit -path
// wins; otherwise try the working directory, then the directory the
// binary was built from (useful when running a compiled binary from
// outside the repository root).
func resolveMigrationsDir(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if _, err := os.Stat(defaultMigrationsDir); err == nil {
		return defaultMigrationsDir, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}
	candidate := filepath.Join(filepath.Dir(exe), "..", "..", defaultMigrationsDir)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}

	return "", fmt.Errorf("no %q directory found; pass -path explicitly", defaultMigrationsDir)
}

func printUsage() {
	fmt.Print(`Tallybook Database Migration Tool

Usage:
  migrate [flags] <command> [args]

Commands:
  up               apply all pending migrations
  down             roll back the most recent migration
  step <n>         apply n migrations (negative n rolls back)
  goto <version>   migrate to a specific schema version
  version          print the current schema version
  force <version>  set the schema version without running migrations
  drop             drop everything in the database (asks for confirmation)
  create <name> [description...]
                   generate a timestamped up/down migration pair
  list             list migration files

Flags:
  -path <dir>        migrations directory (default: auto-detect)
  -log-level <lvl>   log level: debug, info, warn, error (default: info)

Database connection is read from the environment:
  TALLY_DATABASE_HOST, TALLY_DATABASE_PORT, TALLY_DATABASE_USER,
  TALLY_DATABASE_PASSWORD, TALLY_DATABASE_DBNAME, TALLY_DATABASE_SSLMODE
`)
}
