package fitdb

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

// RunMigrateCommand handles the 'migrate' subcommand dispatching. The
// database is opened without schema initialization: the migrations own
// the schema here.
func RunMigrateCommand(args []string, dbPath, migrationsDir string) {
	if len(args) < 1 {
		PrintMigrateHelp()
		os.Exit(1)
	}

	action := args[0]

	database, err := OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	switch action {
	case "up":
		log.Printf("[migrate] running migrations...")
		if err := database.MigrateUp(migrationsDir); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		logVersion(database, migrationsDir)

	case "down":
		log.Printf("[migrate] rolling back one migration...")
		if err := database.MigrateDown(migrationsDir); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		logVersion(database, migrationsDir)

	case "to":
		version := parseVersionArg(args, "to")
		log.Printf("[migrate] migrating to version %d...", version)
		if err := database.MigrateTo(migrationsDir, version); err != nil {
			log.Fatalf("Migration to version %d failed: %v", version, err)
		}
		logVersion(database, migrationsDir)

	case "force":
		version := parseVersionArg(args, "force")
		if err := database.MigrateForce(migrationsDir, int(version)); err != nil {
			log.Fatalf("Force migration failed: %v", err)
		}
		logVersion(database, migrationsDir)

	case "baseline":
		version := parseVersionArg(args, "baseline")
		if err := database.BaselineSchema(version); err != nil {
			log.Fatalf("Baseline failed: %v", err)
		}

	case "version":
		logVersion(database, migrationsDir)

	case "help":
		PrintMigrateHelp()

	default:
		fmt.Printf("Unknown migrate action: %s\n\n", action)
		PrintMigrateHelp()
		os.Exit(1)
	}
}

// PrintMigrateHelp prints the migrate subcommand usage.
func PrintMigrateHelp() {
	fmt.Println("Usage: trackfit -db <file> migrate <action>")
	fmt.Println()
	fmt.Println("Actions:")
	fmt.Println("  up                  Apply all pending migrations")
	fmt.Println("  down                Roll back the most recent migration")
	fmt.Println("  to <version>        Migrate up or down to a specific version")
	fmt.Println("  force <version>     Force the recorded version (dirty-state recovery)")
	fmt.Println("  baseline <version>  Record a version for an existing schema")
	fmt.Println("  version             Show the current migration version")
	fmt.Println("  help                Show this help")
}

func parseVersionArg(args []string, action string) uint {
	if len(args) < 2 {
		log.Fatalf("Usage: trackfit migrate %s <version_number>", action)
	}
	version, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		log.Fatalf("Invalid version %q: %v", args[1], err)
	}
	return uint(version)
}

func logVersion(database *DB, migrationsDir string) {
	version, dirty, err := database.MigrateVersion(migrationsDir)
	if err != nil {
		log.Fatalf("Failed to get migration version: %v", err)
	}
	log.Printf("[migrate] current version: %d (dirty: %v)", version, dirty)
}
