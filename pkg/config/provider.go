package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/chrissnell/foilcast/internal/foil"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetLocations() ([]LocationData, error)
	GetStorageConfig() (*StorageData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Storage   StorageData    `json:"storage,omitempty"`
	Strava    StravaData     `json:"strava,omitempty"`
	Forecast  ForecastData   `json:"forecast,omitempty"`
	Locations []LocationData `json:"locations"`
	REST      RESTServerData `json:"rest,omitempty"`
	Analysis  AnalysisData   `json:"analysis,omitempty"`
	Sync      SyncData       `json:"sync,omitempty"`
}

// StorageData holds the configuration for the journal database
type StorageData struct {
	Postgres *PostgresData `json:"postgres,omitempty"`
}

type PostgresData struct {
	ConnectionString string `json:"connection_string"`
}

// GetConnectionString returns the DSN, or an empty string when Postgres isn't configured
func (s StorageData) GetConnectionString() string {
	if s.Postgres == nil {
		return ""
	}
	return s.Postgres.ConnectionString
}

// StravaData holds the activity-tracking API credentials
type StravaData struct {
	ClientID         string `json:"client_id,omitempty"`
	ClientSecret     string `json:"client_secret,omitempty"`
	RedirectURI      string `json:"redirect_uri,omitempty"`
	APIEndpoint      string `json:"api_endpoint,omitempty"`
	OAuthEndpoint    string `json:"oauth_endpoint,omitempty"`
	RequestsPer15Min int    `json:"requests_per_15min,omitempty"`
}

// Enabled reports whether enough is configured to talk to Strava
func (s StravaData) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// ForecastData configures the weather forecast API
type ForecastData struct {
	APIEndpoint  string `json:"api_endpoint,omitempty"`
	PastDays     int    `json:"past_days,omitempty"`
	ForecastDays int    `json:"forecast_days,omitempty"`
}

// LocationData is a riding spot
type LocationData struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	IdealDirectionMin float64 `json:"ideal_direction_min,omitempty"`
	IdealDirectionMax float64 `json:"ideal_direction_max,omitempty"`
}

type RESTServerData struct {
	Cert       string `json:"cert,omitempty"`
	Key        string `json:"key,omitempty"`
	Port       int    `json:"port,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
	JWTSecret  string `json:"jwt_secret,omitempty"`
	EnableCORS bool   `json:"enable_cors,omitempty"`
}

// AnalysisData overrides the foil detection thresholds. Nil fields keep the defaults.
type AnalysisData struct {
	PlaningSpeed      *float64 `json:"planing_speed,omitempty"`
	LiftThreshold     *float64 `json:"lift_threshold,omitempty"`
	Persistence       *float64 `json:"persistence_seconds,omitempty"`
	CalibrationWindow *float64 `json:"calibration_seconds,omitempty"`
	MovingSpeed       *float64 `json:"moving_speed,omitempty"`
	RunGap            *float64 `json:"run_gap_seconds,omitempty"`
	LiftPolarity      string   `json:"lift_polarity,omitempty"`
}

// Params merges the overrides onto the default detection thresholds
func (a AnalysisData) Params() (foil.Params, error) {
	p := foil.DefaultParams()

	overrides := []struct {
		src *float64
		dst *float64
	}{
		{a.PlaningSpeed, &p.PlaningSpeed},
		{a.LiftThreshold, &p.LiftThreshold},
		{a.Persistence, &p.Persistence},
		{a.CalibrationWindow, &p.CalibrationWindow},
		{a.MovingSpeed, &p.MovingSpeed},
		{a.RunGap, &p.RunGap},
	}
	for _, o := range overrides {
		if o.src != nil {
			*o.dst = *o.src
		}
	}

	polarity, err := foil.ParsePolarity(a.LiftPolarity)
	if err != nil {
		return foil.Params{}, err
	}
	p.Polarity = polarity

	if err := p.Validate(); err != nil {
		return foil.Params{}, fmt.Errorf("analysis: %w", err)
	}
	return p, nil
}

// SyncData configures the background activity sync
type SyncData struct {
	Enabled  bool   `json:"enabled,omitempty"`
	Interval string `json:"interval,omitempty"`
	PerPage  int    `json:"per_page,omitempty"`
	Workers  int    `json:"workers,omitempty"`
}

// GetInterval parses the sync interval, defaulting to 15 minutes
func (s SyncData) GetInterval() (time.Duration, error) {
	if s.Interval == "" {
		return 15 * time.Minute, nil
	}
	d, err := time.ParseDuration(s.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid sync interval %q: %w", s.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("sync interval must be positive")
	}
	return d, nil
}

// FindLocation returns the location with the given ID
func (c *ConfigData) FindLocation(id string) (LocationData, bool) {
	for _, loc := range c.Locations {
		if loc.ID == id {
			return loc, true
		}
	}
	return LocationData{}, false
}

// ApplyEnv lets secrets come from the environment instead of the config source
func ApplyEnv(c *ConfigData) {
	if v := os.Getenv("STRAVA_CLIENT_ID"); v != "" {
		c.Strava.ClientID = v
	}
	if v := os.Getenv("STRAVA_CLIENT_SECRET"); v != "" {
		c.Strava.ClientSecret = v
	}
	if v := os.Getenv("STRAVA_REDIRECT_URI"); v != "" {
		c.Strava.RedirectURI = v
	}
	if v := os.Getenv("FOILCAST_JWT_SECRET"); v != "" {
		c.REST.JWTSecret = v
	}
	if v := os.Getenv("FOILCAST_DATABASE_URL"); v != "" {
		c.Storage.Postgres = &PostgresData{ConnectionString: v}
	}
	if v := os.Getenv("FOILCAST_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.REST.Port = port
		}
	}
}
