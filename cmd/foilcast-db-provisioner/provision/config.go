// Package provision creates the Postgres database and role that hold the
// foilcast journal, and records the connection string in a SQLite config.
package provision

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/chrissnell/foilcast/pkg/config"
)

// Config describes the server to provision and what to create on it
type Config struct {
	PostgresHost     string
	PostgresPort     int
	PostgresAdmin    string
	PostgresPassword string
	DBName           string
	DBUser           string
	DBPassword       string
	SSLMode          string
	ConfigDBPath     string
}

func (c *Config) connURL(user, password, dbname string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(c.PostgresHost, strconv.Itoa(c.PostgresPort)),
		Path:     "/" + dbname,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// AdminConnString connects as the administrative role to dbname
func (c *Config) AdminConnString(dbname string) string {
	return c.connURL(c.PostgresAdmin, c.PostgresPassword, dbname)
}

// AppConnString is the connection string foilcast itself uses
func (c *Config) AppConnString() string {
	return c.connURL(c.DBUser, c.DBPassword, c.DBName)
}

// UpdateConfigDB stores the journal connection string in the SQLite
// configuration, creating the schema when the file is new. Other settings
// are preserved.
func UpdateConfigDB(cfg *Config) error {
	fmt.Println("⚙️  Updating Configuration")

	provider, err := config.NewSQLiteProvider(cfg.ConfigDBPath)
	if err != nil {
		return err
	}
	defer provider.Close()

	if err := provider.InitSchema(); err != nil {
		return err
	}

	current, err := provider.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to read existing configuration: %w", err)
	}
	current.Storage.Postgres = &config.PostgresData{ConnectionString: cfg.AppConnString()}

	if err := provider.SaveConfig(current); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Println("✅ Config database updated with connection details")
	fmt.Println()
	return nil
}

// StoredConnString reads the journal connection string from a SQLite config
func StoredConnString(configDBPath string) (string, error) {
	provider, err := config.NewSQLiteProvider(configDBPath)
	if err != nil {
		return "", err
	}
	defer provider.Close()

	storage, err := provider.GetStorageConfig()
	if err != nil {
		return "", err
	}
	if storage.GetConnectionString() == "" {
		return "", fmt.Errorf("no postgres configuration found in %s", configDBPath)
	}
	return storage.GetConnectionString(), nil
}

// Redact hides the password of a connection URL for display
func Redact(connString string) string {
	u, err := url.Parse(connString)
	if err != nil {
		return "(unparseable connection string)"
	}
	return u.Redacted()
}
