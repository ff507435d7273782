package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chrissnell/foilcast/cmd/foilcast-db-provisioner/provision"
	"golang.org/x/term"
)

const (
	colorReset        = "\033[0m"
	colorBrightCyan   = "\033[96m"
	colorBrightYellow = "\033[93m"
	colorBold         = "\033[1m"
)

const (
	DefaultDBName    = "foilcast"
	DefaultDBUser    = "foilcast"
	DefaultHost      = "localhost"
	DefaultPort      = 5432
	DefaultSSLMode   = "prefer"
	DefaultConfigDB  = "config.db"
	DefaultAdminUser = "postgres"
)

func main() {
	initCmd := flag.NewFlagSet("init", flag.ExitOnError)
	statusCmd := flag.NewFlagSet("status", flag.ExitOnError)
	testCmd := flag.NewFlagSet("test", flag.ExitOnError)

	dbName := initCmd.String("db-name", DefaultDBName, "Database name to create")
	dbUser := initCmd.String("db-user", DefaultDBUser, "Database user to create")
	postgresHost := initCmd.String("postgres-host", DefaultHost, "PostgreSQL host")
	postgresPort := initCmd.Int("postgres-port", DefaultPort, "PostgreSQL port")
	postgresAdmin := initCmd.String("postgres-admin", DefaultAdminUser, "PostgreSQL admin user")
	sslMode := initCmd.String("ssl-mode", DefaultSSLMode, "SSL mode (disable, require, prefer)")
	configDB := initCmd.String("config-db", DefaultConfigDB, "Path to foilcast config.db")
	reprovision := initCmd.Bool("reprovision", false, "Drop existing database and user before provisioning (DESTRUCTIVE)")

	statusConfigDB := statusCmd.String("config-db", DefaultConfigDB, "Path to foilcast config.db")
	testConfigDB := testCmd.String("config-db", DefaultConfigDB, "Path to foilcast config.db")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "init":
		initCmd.Parse(os.Args[2:])
		cfg := &provision.Config{
			PostgresHost:  *postgresHost,
			PostgresPort:  *postgresPort,
			PostgresAdmin: *postgresAdmin,
			DBName:        *dbName,
			DBUser:        *dbUser,
			SSLMode:       *sslMode,
			ConfigDBPath:  *configDB,
		}
		runInit(ctx, cfg, *reprovision)

	case "status":
		statusCmd.Parse(os.Args[2:])
		runStatus(*statusConfigDB)

	case "test":
		testCmd.Parse(os.Args[2:])
		runTest(ctx, *testConfigDB)

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("foilcast PostgreSQL Provisioner")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  foilcast-db-provisioner init [flags]")
	fmt.Println("  foilcast-db-provisioner status [flags]")
	fmt.Println("  foilcast-db-provisioner test [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init     Create the journal database and user")
	fmt.Println("  status   Show the journal connection stored in config.db")
	fmt.Println("  test     Test the stored journal connection")
	fmt.Println()
	fmt.Println("The admin password is read from POSTGRES_ADMIN_PASSWORD or prompted for.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  %s%sfoilcast-db-provisioner init -config-db /var/lib/foilcast/config.db%s\n", colorBold, colorBrightCyan, colorReset)
	fmt.Println()
	fmt.Println("  # Re-provision (drop and recreate)")
	fmt.Println("  foilcast-db-provisioner init --reprovision")
}

func adminPassword() (string, error) {
	if pw := os.Getenv("POSTGRES_ADMIN_PASSWORD"); pw != "" {
		return pw, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("POSTGRES_ADMIN_PASSWORD is not set and stdin is not a terminal")
	}
	fmt.Print("PostgreSQL admin password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "❌ "+format+"\n", args...)
	os.Exit(1)
}

func runInit(ctx context.Context, cfg *provision.Config, reprovision bool) {
	fmt.Println("🚀 foilcast PostgreSQL Provisioner")
	fmt.Println("==================================")
	fmt.Println()

	fmt.Println("Configuration:")
	fmt.Printf("  PostgreSQL Host: %s:%d\n", cfg.PostgresHost, cfg.PostgresPort)
	fmt.Printf("  Database Name: %s\n", cfg.DBName)
	fmt.Printf("  Database User: %s\n", cfg.DBUser)
	fmt.Printf("  SSL Mode: %s\n", cfg.SSLMode)
	fmt.Printf("  Config DB: %s\n", cfg.ConfigDBPath)
	fmt.Println()

	var err error
	if cfg.PostgresPassword, err = adminPassword(); err != nil {
		fail("Failed to read admin password: %v", err)
	}
	if cfg.DBPassword, err = provision.GeneratePassword(provision.PasswordLength); err != nil {
		fail("Failed to generate password: %v", err)
	}

	dbExists, userExists, err := provision.Exists(ctx, cfg)
	if err != nil {
		fail("Pre-flight check failed: %v", err)
	}

	if dbExists || userExists {
		if !reprovision {
			fail("Database %q or user %q already exists; rerun with --reprovision to replace them", cfg.DBName, cfg.DBUser)
		}

		fmt.Println("⚠️  DESTRUCTIVE OPERATION WARNING")
		fmt.Println("=====================================")
		fmt.Println()
		fmt.Printf("This will DROP database %s and user %s.\n", cfg.DBName, cfg.DBUser)
		fmt.Println("⚠️  ALL JOURNAL DATA WILL BE PERMANENTLY DELETED")
		fmt.Println()

		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Type 'yes' to confirm you understand and want to proceed: ")
		confirmation, _ := reader.ReadString('\n')
		if strings.TrimSpace(confirmation) != "yes" {
			fmt.Println("❌ Operation cancelled")
			os.Exit(0)
		}
		fmt.Println()

		if err := provision.DropExistingResources(ctx, cfg); err != nil {
			fail("Failed to drop existing resources: %v", err)
		}
		fmt.Println()
	}

	if err := provision.CreateDatabase(ctx, cfg); err != nil {
		fail("Failed to create database: %v", err)
	}

	if err := provision.UpdateConfigDB(cfg); err != nil {
		fail("Failed to update config database: %v", err)
	}

	fmt.Println("🔍 Verifying Connection")
	if err := provision.TestConnection(ctx, cfg.AppConnString()); err != nil {
		fail("Connection test failed: %v", err)
	}
	fmt.Println("✅ Connection verified")
	fmt.Println()

	fmt.Println("✅ Provisioning Complete!")
	fmt.Println()
	fmt.Printf("%s%sNext Steps:%s\n", colorBold, colorBrightYellow, colorReset)
	fmt.Println("  Start foilcast; it creates the journal tables on first connect:")
	fmt.Printf("     %s%sfoilcast -config-backend sqlite -config %s%s\n", colorBold, colorBrightCyan, cfg.ConfigDBPath, colorReset)
	fmt.Println()
	fmt.Println("The generated password is stored only in the config database.")
	fmt.Println()
}

func runStatus(configDB string) {
	fmt.Println("📊 Current Journal Database Configuration")
	fmt.Println("=========================================")
	fmt.Println()

	connString, err := provision.StoredConnString(configDB)
	if err != nil {
		fail("Failed to read configuration: %v", err)
	}
	fmt.Printf("Connection: %s\n", provision.Redact(connString))
	fmt.Println()
}

func runTest(ctx context.Context, configDB string) {
	fmt.Println("🔍 Testing Journal Database Connection")
	fmt.Println("======================================")
	fmt.Println()

	connString, err := provision.StoredConnString(configDB)
	if err != nil {
		fail("Failed to read configuration: %v", err)
	}

	fmt.Printf("Testing connection to %s...\n", provision.Redact(connString))
	if err := provision.TestConnection(ctx, connString); err != nil {
		fail("Connection test failed: %v", err)
	}

	fmt.Println("✅ Connection successful")
	fmt.Println("✅ User has table creation privileges")
	fmt.Println()
}
