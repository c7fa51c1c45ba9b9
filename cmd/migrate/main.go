package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom/internal/config"
	"github.com/stemsi/examroom/internal/logger"
)

var errUsage = errors.New("usage")

// migrator is the subset of *migrate.Migrate the commands drive.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
}

func main() {
	var migrationDir string
	flag.StringVar(&migrationDir, "path", "migrations", "Directory holding the examroom schema migrations")
	flag.Usage = printUsage
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	args := flag.Args()
	if err := checkArgs(args); err != nil {
		printUsage()
		os.Exit(2)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}

	m, err := migrate.New(fmt.Sprintf("file://%s", migrationDir), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("path", migrationDir).Msg("Failed to open examroom migrations")
	}
	defer m.Close()

	if err := run(m, args, log); err != nil {
		log.Fatal().Err(err).Str("command", args[0]).Msg("Migration failed")
	}
}

// checkArgs validates the command line before any connection is opened.
func checkArgs(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "up", "down", "version":
		return nil
	case "steps", "force":
		if len(args) < 2 {
			return fmt.Errorf("%s requires a number: %w", args[0], errUsage)
		}
		if _, err := strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("invalid number %q: %w", args[1], errUsage)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func run(m migrator, args []string, log zerolog.Logger) error {
	if err := checkArgs(args); err != nil {
		return err
	}

	switch args[0] {
	case "up":
		return report(log, "Schema is up to date", m.Up())
	case "down":
		return report(log, "Schema rolled back", m.Down())
	case "steps":
		n, _ := strconv.Atoi(args[1])
		return report(log.With().Int("steps", n).Logger(), "Applied migration steps", m.Steps(n))
	case "force":
		v, _ := strconv.Atoi(args[1])
		if err := m.Force(v); err != nil {
			return err
		}
		log.Info().Int("version", v).Msg("Forced schema version")
		return nil
	default: // version
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info().Msg("No migrations applied yet")
			return nil
		}
		if err != nil {
			return err
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Schema version")
		return nil
	}
}

func report(log zerolog.Logger, done string, err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("No schema changes to apply")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info().Msg(done)
	return nil
}

func printUsage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "Usage: migrate [-path dir] <command>")
	fmt.Fprintln(out, "Manages the examroom Postgres schema.")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  up            apply all pending migrations")
	fmt.Fprintln(out, "  down          roll back every migration")
	fmt.Fprintln(out, "  steps <n>     apply n migrations (negative rolls back)")
	fmt.Fprintln(out, "  version       print the current schema version")
	fmt.Fprintln(out, "  force <v>     mark version v as clean after a failed run")
	fmt.Fprintln(out, "Flags:")
	flag.PrintDefaults()
}
