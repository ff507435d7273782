package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/foilcast/internal/log"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when no Postgres connection string is set
var ErrNotConfigured = errors.New("postgres storage is not configured")

// Client holds the connection to the journal database
type Client struct {
	connectionString string
	DB               *gorm.DB // Exported so it can be accessed from other packages
	logger           *zap.SugaredLogger
}

// NewClient creates a new database client
func NewClient(connectionString string, logger *zap.SugaredLogger) *Client {
	return &Client{
		connectionString: connectionString,
		logger:           logger,
	}
}

// Connect opens the database and migrates the schema
func (c *Client) Connect() error {
	if c.connectionString == "" {
		return ErrNotConfigured
	}

	db, err := CreateConnection(c.connectionString)
	if err != nil {
		return err
	}
	c.DB = db

	if err := Migrate(c.DB); err != nil {
		return fmt.Errorf("migrating journal schema: %w", err)
	}
	c.logger.Info("journal database ready")

	return nil
}

// Close releases the underlying connection pool
func (c *Client) Close() error {
	if c.DB == nil {
		return nil
	}
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateConnection opens a Postgres connection with a zap-backed GORM logger
func CreateConnection(connectionString string) (*gorm.DB, error) {
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		log.Warnf("unable to create a Postgres connection: %v", err)
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates every journal table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&JournalEntry{},
		&GearItem{},
		&Location{},
		&UserSettings{},
		&StravaToken{},
	)
}
