package controllers

import (
	"fmt"

	"github.com/chrissnell/foilcast/internal/database"
	"github.com/chrissnell/foilcast/internal/journal"
	"github.com/chrissnell/foilcast/pkg/config"
	"go.uber.org/zap"
)

// SetupJournalStore connects the Postgres-backed journal when storage is
// configured and falls back to an in-memory journal otherwise. The returned
// close function releases the database connection.
func SetupJournalStore(cfg *config.ConfigData, logger *zap.SugaredLogger) (journal.Store, func() error, error) {
	connString := cfg.Storage.GetConnectionString()
	if connString == "" {
		logger.Warn("storage.postgres not configured; journal entries will not survive a restart")
		return journal.NewMemoryStore(), func() error { return nil }, nil
	}

	db := database.NewClient(connString, logger)
	if err := db.Connect(); err != nil {
		return nil, nil, fmt.Errorf("could not connect to the journal database: %v", err)
	}

	return journal.NewGormStore(db.DB), db.Close, nil
}

// ValidateRequiredFields checks that required configuration fields are set
func ValidateRequiredFields(fields map[string]string) error {
	for fieldName, fieldValue := range fields {
		if fieldValue == "" {
			return fmt.Errorf("%s must be set", fieldName)
		}
	}
	return nil
}
