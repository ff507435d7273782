package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/chrissnell/foilcast/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		force      = flag.Bool("force", false, "Overwrite existing SQLite database")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
		verify     = flag.Bool("verify", true, "Read the SQLite database back and compare it with the YAML source")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Check if YAML file exists
	if _, err := os.Stat(*yamlFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: YAML file does not exist: %s\n", *yamlFile)
		os.Exit(1)
	}

	// Check if SQLite file already exists
	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: SQLite file already exists: %s\n", *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting YAML configuration to SQLite...\n")
	fmt.Printf("  Source: %s\n", *yamlFile)
	fmt.Printf("  Target: %s\n", *sqliteFile)

	configData, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML configuration: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		fmt.Println("DRY RUN - No changes will be made")
		printConfigSummary(configData)
		return
	}

	if *force {
		if err := os.Remove(*sqliteFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error removing existing SQLite file: %v\n", err)
			os.Exit(1)
		}
	}

	if err := writeSQLite(*sqliteFile, configData); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing SQLite configuration: %v\n", err)
		os.Exit(1)
	}

	if *verify {
		if err := verifySQLite(*sqliteFile, configData); err != nil {
			fmt.Fprintf(os.Stderr, "Verification failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Verified: SQLite configuration matches the YAML source\n")
	}

	fmt.Printf("Conversion completed successfully!\n")
	fmt.Printf("You can now use the SQLite backend with: -config-backend sqlite -config %s\n", *sqliteFile)
}

func writeSQLite(dbPath string, configData *config.ConfigData) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	provider, err := config.NewSQLiteProvider(dbPath)
	if err != nil {
		return fmt.Errorf("failed to create SQLite provider: %w", err)
	}
	defer provider.Close()

	if err := provider.InitSchema(); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	fmt.Printf("  Inserting %d locations...\n", len(configData.Locations))
	if err := provider.SaveConfig(configData); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

func verifySQLite(dbPath string, want *config.ConfigData) error {
	provider, err := config.NewSQLiteProvider(dbPath)
	if err != nil {
		return err
	}
	defer provider.Close()

	got, err := provider.LoadConfig()
	if err != nil {
		return err
	}

	sections := []struct {
		name      string
		got, want any
	}{
		{"storage", got.Storage, want.Storage},
		{"strava", got.Strava, want.Strava},
		{"forecast", got.Forecast, want.Forecast},
		{"locations", got.Locations, want.Locations},
		{"rest", got.REST, want.REST},
		{"analysis", got.Analysis, want.Analysis},
		{"sync", got.Sync, want.Sync},
	}
	for _, s := range sections {
		if !reflect.DeepEqual(s.got, s.want) {
			return fmt.Errorf("%s section differs:\n  yaml:   %+v\n  sqlite: %+v", s.name, s.want, s.got)
		}
	}
	return nil
}

func printConfigSummary(configData *config.ConfigData) {
	fmt.Println("\nConfiguration Summary:")
	fmt.Printf("Locations (%d):\n", len(configData.Locations))
	for _, loc := range configData.Locations {
		fmt.Printf("  - %s (%s) %.3f, %.3f\n", loc.ID, loc.Name, loc.Latitude, loc.Longitude)
	}

	fmt.Printf("\nStorage:\n")
	if configData.Storage.Postgres != nil {
		fmt.Printf("  - Postgres: configured\n")
	} else {
		fmt.Printf("  - in-memory journal\n")
	}

	fmt.Printf("\nStrava: %v, sync: %v\n", configData.Strava.Enabled(), configData.Sync.Enabled)
}
