// Package forecast fetches hourly wind forecasts from Open-Meteo and shapes
// them for charting.
package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/chrissnell/foilcast/internal/apiclient"
	"github.com/chrissnell/foilcast/pkg/config"
)

const DefaultAPIEndpoint = "https://api.open-meteo.com/v1/forecast"

var hourlyFields = []string{"wind_speed_10m", "wind_direction_10m", "wind_gusts_10m", "temperature_2m"}

// Response is the subset of the Open-Meteo forecast response we use
type Response struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Timezone         string  `json:"timezone"`
	UTCOffsetSeconds int     `json:"utc_offset_seconds"`
	Hourly           *Hourly `json:"hourly"`
}

// Hourly holds parallel arrays indexed by hour. Values may be null.
type Hourly struct {
	Time          []string   `json:"time"`
	WindSpeed     []*float64 `json:"wind_speed_10m"`     // km/h
	WindDirection []*float64 `json:"wind_direction_10m"` // degrees
	WindGusts     []*float64 `json:"wind_gusts_10m"`     // km/h
	Temperature   []*float64 `json:"temperature_2m"`     // °C
}

// Client is an Open-Meteo client
type Client struct {
	endpoint     string
	pastDays     int
	forecastDays int
	api          *apiclient.Client
}

// NewClient creates a forecast client
func NewClient(cfg config.ForecastData, opts ...apiclient.Option) *Client {
	c := &Client{
		endpoint:     cfg.APIEndpoint,
		pastDays:     cfg.PastDays,
		forecastDays: cfg.ForecastDays,
		api:          apiclient.New("open-meteo", opts...),
	}
	if c.endpoint == "" {
		c.endpoint = DefaultAPIEndpoint
	}
	if c.pastDays == 0 {
		c.pastDays = 1
	}
	if c.forecastDays == 0 {
		c.forecastDays = 7
	}
	return c
}

// Fetch retrieves the hourly forecast, including the past day, for a location
func (c *Client) Fetch(ctx context.Context, loc config.LocationData) (*Response, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("hourly", strings.Join(hourlyFields, ","))
	q.Set("timezone", "auto")
	q.Set("past_days", strconv.Itoa(c.pastDays))
	q.Set("forecast_days", strconv.Itoa(c.forecastDays))

	req, err := http.NewRequest(http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	body, err := c.api.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetching forecast for %s: %w", loc.ID, err)
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding forecast response: %w", err)
	}
	return &resp, nil
}
