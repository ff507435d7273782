package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	var yamlConfig ConfigYAML
	err = yaml.Unmarshal(cfgFile, &yamlConfig)
	if err != nil {
		return nil, err
	}

	config := yamlConfig.toConfigData()
	y.config = config
	return config, nil
}

// GetLocations returns the configured riding spots
func (y *YAMLProvider) GetLocations() ([]LocationData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return y.config.Locations, nil
}

// GetStorageConfig returns storage configuration
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Storage, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// ConfigYAML mirrors ConfigData with the dashed key names used in config files
type ConfigYAML struct {
	Storage   StorageYAML    `yaml:"storage,omitempty"`
	Strava    StravaYAML     `yaml:"strava,omitempty"`
	Forecast  ForecastYAML   `yaml:"forecast,omitempty"`
	Locations []LocationYAML `yaml:"locations,omitempty"`
	REST      RESTServerYAML `yaml:"rest,omitempty"`
	Analysis  AnalysisYAML   `yaml:"analysis,omitempty"`
	Sync      SyncYAML       `yaml:"sync,omitempty"`
}

type StorageYAML struct {
	Postgres *PostgresYAML `yaml:"postgres,omitempty"`
}

type PostgresYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type StravaYAML struct {
	ClientID         string `yaml:"client-id,omitempty"`
	ClientSecret     string `yaml:"client-secret,omitempty"`
	RedirectURI      string `yaml:"redirect-uri,omitempty"`
	APIEndpoint      string `yaml:"api-endpoint,omitempty"`
	OAuthEndpoint    string `yaml:"oauth-endpoint,omitempty"`
	RequestsPer15Min int    `yaml:"requests-per-15min,omitempty"`
}

type ForecastYAML struct {
	APIEndpoint  string `yaml:"api-endpoint,omitempty"`
	PastDays     int    `yaml:"past-days,omitempty"`
	ForecastDays int    `yaml:"forecast-days,omitempty"`
}

type LocationYAML struct {
	ID                string  `yaml:"id"`
	Name              string  `yaml:"name"`
	Latitude          float64 `yaml:"latitude"`
	Longitude         float64 `yaml:"longitude"`
	IdealDirectionMin float64 `yaml:"ideal-direction-min,omitempty"`
	IdealDirectionMax float64 `yaml:"ideal-direction-max,omitempty"`
}

type RESTServerYAML struct {
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty"`
	JWTSecret  string `yaml:"jwt-secret,omitempty"`
	EnableCORS bool   `yaml:"enable-cors,omitempty"`
}

type AnalysisYAML struct {
	PlaningSpeed      *float64 `yaml:"planing-speed,omitempty"`
	LiftThreshold     *float64 `yaml:"lift-threshold,omitempty"`
	Persistence       *float64 `yaml:"persistence-seconds,omitempty"`
	CalibrationWindow *float64 `yaml:"calibration-seconds,omitempty"`
	MovingSpeed       *float64 `yaml:"moving-speed,omitempty"`
	RunGap            *float64 `yaml:"run-gap-seconds,omitempty"`
	LiftPolarity      string   `yaml:"lift-polarity,omitempty"`
}

type SyncYAML struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	Interval string `yaml:"interval,omitempty"`
	PerPage  int    `yaml:"per-page,omitempty"`
	Workers  int    `yaml:"workers,omitempty"`
}

func (c ConfigYAML) toConfigData() *ConfigData {
	config := &ConfigData{
		Strava: StravaData{
			ClientID:         c.Strava.ClientID,
			ClientSecret:     c.Strava.ClientSecret,
			RedirectURI:      c.Strava.RedirectURI,
			APIEndpoint:      c.Strava.APIEndpoint,
			OAuthEndpoint:    c.Strava.OAuthEndpoint,
			RequestsPer15Min: c.Strava.RequestsPer15Min,
		},
		Forecast: ForecastData{
			APIEndpoint:  c.Forecast.APIEndpoint,
			PastDays:     c.Forecast.PastDays,
			ForecastDays: c.Forecast.ForecastDays,
		},
		Locations: make([]LocationData, len(c.Locations)),
		REST: RESTServerData{
			Cert:       c.REST.Cert,
			Key:        c.REST.Key,
			Port:       c.REST.Port,
			ListenAddr: c.REST.ListenAddr,
			JWTSecret:  c.REST.JWTSecret,
			EnableCORS: c.REST.EnableCORS,
		},
		Analysis: AnalysisData{
			PlaningSpeed:      c.Analysis.PlaningSpeed,
			LiftThreshold:     c.Analysis.LiftThreshold,
			Persistence:       c.Analysis.Persistence,
			CalibrationWindow: c.Analysis.CalibrationWindow,
			MovingSpeed:       c.Analysis.MovingSpeed,
			RunGap:            c.Analysis.RunGap,
			LiftPolarity:      c.Analysis.LiftPolarity,
		},
		Sync: SyncData{
			Enabled:  c.Sync.Enabled,
			Interval: c.Sync.Interval,
			PerPage:  c.Sync.PerPage,
			Workers:  c.Sync.Workers,
		},
	}

	if c.Storage.Postgres != nil {
		config.Storage.Postgres = &PostgresData{
			ConnectionString: c.Storage.Postgres.ConnectionString,
		}
	}

	for i, loc := range c.Locations {
		config.Locations[i] = LocationData{
			ID:                loc.ID,
			Name:              loc.Name,
			Latitude:          loc.Latitude,
			Longitude:         loc.Longitude,
			IdealDirectionMin: loc.IdealDirectionMin,
			IdealDirectionMax: loc.IdealDirectionMax,
		}
	}

	return config
}
