package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func exec(ctx context.Context, connString string, statements ...string) error {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer conn.Close(ctx)

	for _, stmt := range statements {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			// statements may carry a password, so only the verb is reported
			return fmt.Errorf("%s failed: %w", strings.Join(strings.Fields(stmt)[:2], " "), err)
		}
	}
	return nil
}

// Exists reports whether the database and role are already present
func Exists(ctx context.Context, cfg *Config) (dbExists, userExists bool, err error) {
	conn, err := pgx.Connect(ctx, cfg.AdminConnString("postgres"))
	if err != nil {
		return false, false, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer conn.Close(ctx)

	err = conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, cfg.DBName).Scan(&dbExists)
	if err != nil {
		return false, false, err
	}
	err = conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)`, cfg.DBUser).Scan(&userExists)
	return dbExists, userExists, err
}

// DropExistingResources removes the database and role. All journal data is lost.
func DropExistingResources(ctx context.Context, cfg *Config) error {
	fmt.Println("🗑️  Dropping existing database and user")

	db := pgx.Identifier{cfg.DBName}.Sanitize()
	user := pgx.Identifier{cfg.DBUser}.Sanitize()
	return exec(ctx, cfg.AdminConnString("postgres"),
		"DROP DATABASE IF EXISTS "+db+" WITH (FORCE)",
		"DROP ROLE IF EXISTS "+user,
	)
}

// CreateDatabase creates the role and a UTF8 database it owns
func CreateDatabase(ctx context.Context, cfg *Config) error {
	fmt.Println("🗄️  Creating database and user")

	db := pgx.Identifier{cfg.DBName}.Sanitize()
	user := pgx.Identifier{cfg.DBUser}.Sanitize()

	err := exec(ctx, cfg.AdminConnString("postgres"),
		"CREATE ROLE "+user+" LOGIN PASSWORD "+quoteLiteral(cfg.DBPassword),
		"CREATE DATABASE "+db+" OWNER "+user+" ENCODING 'UTF8' TEMPLATE template0",
	)
	if err != nil {
		return err
	}

	// Postgres 15+ no longer lets every role create tables in public
	err = exec(ctx, cfg.AdminConnString(cfg.DBName),
		"GRANT ALL ON SCHEMA public TO "+user,
	)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Database '%s' owned by '%s' created\n", cfg.DBName, cfg.DBUser)
	fmt.Println()
	return nil
}

// TestConnection connects with the given connection string and checks that
// the role can create tables, which the journal migration needs.
func TestConnection(ctx context.Context, connString string) error {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close(ctx)

	var canCreate bool
	err = conn.QueryRow(ctx, `SELECT has_schema_privilege(current_user, 'public', 'CREATE')`).Scan(&canCreate)
	if err != nil {
		return fmt.Errorf("failed to check privileges: %w", err)
	}
	if !canCreate {
		return fmt.Errorf("user cannot create tables in schema public")
	}
	return nil
}
