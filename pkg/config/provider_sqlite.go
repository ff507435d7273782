package config

import (
	"database/sql"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS locations (
	id                  TEXT PRIMARY KEY,
	name                TEXT NOT NULL,
	latitude            REAL NOT NULL,
	longitude           REAL NOT NULL,
	ideal_direction_min REAL,
	ideal_direction_max REAL,
	sort_order          INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// InitSchema creates the configuration tables if they don't exist
func (s *SQLiteProvider) InitSchema() error {
	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("failed to create config schema: %w", err)
	}
	return nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	settings, err := s.loadSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	config := &ConfigData{}

	if dsn := settings["storage.postgres.connection_string"]; dsn != "" {
		config.Storage.Postgres = &PostgresData{ConnectionString: dsn}
	}

	config.Strava = StravaData{
		ClientID:         settings["strava.client_id"],
		ClientSecret:     settings["strava.client_secret"],
		RedirectURI:      settings["strava.redirect_uri"],
		APIEndpoint:      settings["strava.api_endpoint"],
		OAuthEndpoint:    settings["strava.oauth_endpoint"],
		RequestsPer15Min: atoi(settings["strava.requests_per_15min"]),
	}

	config.Forecast = ForecastData{
		APIEndpoint:  settings["forecast.api_endpoint"],
		PastDays:     atoi(settings["forecast.past_days"]),
		ForecastDays: atoi(settings["forecast.forecast_days"]),
	}

	config.REST = RESTServerData{
		Cert:       settings["rest.cert"],
		Key:        settings["rest.key"],
		Port:       atoi(settings["rest.port"]),
		ListenAddr: settings["rest.listen_addr"],
		JWTSecret:  settings["rest.jwt_secret"],
		EnableCORS: settings["rest.enable_cors"] == "true",
	}

	config.Analysis = AnalysisData{
		PlaningSpeed:      floatPtr(settings, "analysis.planing_speed"),
		LiftThreshold:     floatPtr(settings, "analysis.lift_threshold"),
		Persistence:       floatPtr(settings, "analysis.persistence_seconds"),
		CalibrationWindow: floatPtr(settings, "analysis.calibration_seconds"),
		MovingSpeed:       floatPtr(settings, "analysis.moving_speed"),
		RunGap:            floatPtr(settings, "analysis.run_gap_seconds"),
		LiftPolarity:      settings["analysis.lift_polarity"],
	}

	config.Sync = SyncData{
		Enabled:  settings["sync.enabled"] == "true",
		Interval: settings["sync.interval"],
		PerPage:  atoi(settings["sync.per_page"]),
		Workers:  atoi(settings["sync.workers"]),
	}

	locations, err := s.GetLocations()
	if err != nil {
		return nil, fmt.Errorf("failed to load locations: %w", err)
	}
	config.Locations = locations

	return config, nil
}

func (s *SQLiteProvider) loadSettings() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting row: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// GetLocations returns the configured riding spots in their stored order
func (s *SQLiteProvider) GetLocations() ([]LocationData, error) {
	rows, err := s.db.Query(`
		SELECT id, name, latitude, longitude, ideal_direction_min, ideal_direction_max
		FROM locations
		ORDER BY sort_order, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []LocationData
	for rows.Next() {
		var loc LocationData
		var dirMin, dirMax sql.NullFloat64

		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Latitude, &loc.Longitude, &dirMin, &dirMax); err != nil {
			return nil, fmt.Errorf("failed to scan location row: %w", err)
		}

		if dirMin.Valid {
			loc.IdealDirectionMin = dirMin.Float64
		}
		if dirMax.Valid {
			loc.IdealDirectionMax = dirMax.Float64
		}

		locations = append(locations, loc)
	}

	return locations, rows.Err()
}

// GetStorageConfig returns storage configuration
func (s *SQLiteProvider) GetStorageConfig() (*StorageData, error) {
	var dsn sql.NullString
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = 'storage.postgres.connection_string'`).Scan(&dsn)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query storage config: %w", err)
	}

	storage := &StorageData{}
	if dsn.Valid && dsn.String != "" {
		storage.Postgres = &PostgresData{ConnectionString: dsn.String}
	}
	return storage, nil
}

// SaveConfig replaces the stored configuration with c
func (s *SQLiteProvider) SaveConfig(c *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM settings`); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM locations`); err != nil {
		return fmt.Errorf("failed to clear locations: %w", err)
	}

	settings := map[string]string{
		"storage.postgres.connection_string": c.Storage.GetConnectionString(),
		"strava.client_id":                   c.Strava.ClientID,
		"strava.client_secret":               c.Strava.ClientSecret,
		"strava.redirect_uri":                c.Strava.RedirectURI,
		"strava.api_endpoint":                c.Strava.APIEndpoint,
		"strava.oauth_endpoint":              c.Strava.OAuthEndpoint,
		"strava.requests_per_15min":          itoa(c.Strava.RequestsPer15Min),
		"forecast.api_endpoint":              c.Forecast.APIEndpoint,
		"forecast.past_days":                 itoa(c.Forecast.PastDays),
		"forecast.forecast_days":             itoa(c.Forecast.ForecastDays),
		"rest.cert":                          c.REST.Cert,
		"rest.key":                           c.REST.Key,
		"rest.port":                          itoa(c.REST.Port),
		"rest.listen_addr":                   c.REST.ListenAddr,
		"rest.jwt_secret":                    c.REST.JWTSecret,
		"rest.enable_cors":                   strconv.FormatBool(c.REST.EnableCORS),
		"analysis.planing_speed":             ftoa(c.Analysis.PlaningSpeed),
		"analysis.lift_threshold":            ftoa(c.Analysis.LiftThreshold),
		"analysis.persistence_seconds":       ftoa(c.Analysis.Persistence),
		"analysis.calibration_seconds":       ftoa(c.Analysis.CalibrationWindow),
		"analysis.moving_speed":              ftoa(c.Analysis.MovingSpeed),
		"analysis.run_gap_seconds":           ftoa(c.Analysis.RunGap),
		"analysis.lift_polarity":             c.Analysis.LiftPolarity,
		"sync.enabled":                       strconv.FormatBool(c.Sync.Enabled),
		"sync.interval":                      c.Sync.Interval,
		"sync.per_page":                      itoa(c.Sync.PerPage),
		"sync.workers":                       itoa(c.Sync.Workers),
	}

	for key, value := range settings {
		if value == "" {
			continue
		}
		if _, err := tx.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}

	for i, loc := range c.Locations {
		_, err := tx.Exec(`
			INSERT INTO locations (id, name, latitude, longitude, ideal_direction_min, ideal_direction_max, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, loc.ID, loc.Name, loc.Latitude, loc.Longitude, loc.IdealDirectionMin, loc.IdealDirectionMax, i)
		if err != nil {
			return fmt.Errorf("failed to save location %s: %w", loc.ID, err)
		}
	}

	return tx.Commit()
}

// IsReadOnly returns false; the SQLite backend can be written with SaveConfig
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func floatPtr(settings map[string]string, key string) *float64 {
	v, ok := settings[key]
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

func ftoa(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
