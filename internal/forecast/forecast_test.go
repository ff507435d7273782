package forecast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chrissnell/foilcast/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var perth = config.LocationData{ID: "perth", Name: "Perth", Latitude: -32.013, Longitude: 115.829}

const sampleResponse = `{
	"latitude": -32.0,
	"longitude": 115.75,
	"timezone": "Australia/Perth",
	"utc_offset_seconds": 28800,
	"hourly": {
		"time": ["2024-01-15T10:00", "2024-01-15T11:00", "2024-01-15T12:00", "2024-01-16T10:00"],
		"wind_speed_10m": [12.5, 18.0, null, 25.1],
		"wind_direction_10m": [200, 210, 220, 90],
		"wind_gusts_10m": [20.0, 26.3, 30.1, 35.0],
		"temperature_2m": [24.1, 25.0, 26.2, 22.0]
	}
}`

func f(v float64) *float64 { return &v }

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "-32.013", q.Get("latitude"))
		assert.Equal(t, "115.829", q.Get("longitude"))
		assert.Equal(t, "wind_speed_10m,wind_direction_10m,wind_gusts_10m,temperature_2m", q.Get("hourly"))
		assert.Equal(t, "auto", q.Get("timezone"))
		assert.Equal(t, "1", q.Get("past_days"))
		assert.Equal(t, "7", q.Get("forecast_days"))
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := NewClient(config.ForecastData{APIEndpoint: srv.URL})
	resp, err := c.Fetch(context.Background(), perth)
	require.NoError(t, err)
	require.NotNil(t, resp.Hourly)
	assert.Len(t, resp.Hourly.Time, 4)
	assert.Nil(t, resp.Hourly.WindSpeed[2])
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":true,"reason":"bad"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(config.ForecastData{APIEndpoint: srv.URL})
	_, err := c.Fetch(context.Background(), perth)
	assert.Error(t, err)
}

func decodeSample(t *testing.T) *Response {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	resp, err := NewClient(config.ForecastData{APIEndpoint: srv.URL}).Fetch(context.Background(), perth)
	require.NoError(t, err)
	return resp
}

func TestProcessChartData(t *testing.T) {
	resp := decodeSample(t)
	now := time.Date(2024, 1, 15, 11, 30, 0, 0, time.FixedZone("AWST", 8*3600))

	points := ProcessChartData(resp, now)
	require.Len(t, points, 4)

	p := points[0]
	assert.Equal(t, "Mon 10:00", p.Label)
	assert.Equal(t, "Jan 15", p.DisplayDate)
	assert.Equal(t, f(12.5), p.Speed)
	assert.Equal(t, f(20.0), p.Gusts)
	assert.Equal(t, f(200), p.Direction)
	assert.Equal(t, f(24.1), p.Temperature)
	assert.False(t, p.IsForecast)
	assert.True(t, p.Time.Equal(time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)))

	assert.False(t, points[1].IsForecast, "11:00 is before now")
	assert.True(t, points[2].IsForecast)
	assert.Nil(t, points[2].Speed, "null speeds stay missing")
	assert.Equal(t, "Tue 10:00", points[3].Label)
}

func TestProcessChartDataEmpty(t *testing.T) {
	now := time.Now()
	assert.Empty(t, ProcessChartData(nil, now))
	assert.NotNil(t, ProcessChartData(&Response{}, now))
	assert.Empty(t, ProcessChartData(&Response{}, now))
}

func TestProcessChartDataShortArrays(t *testing.T) {
	resp := &Response{
		UTCOffsetSeconds: 0,
		Hourly: &Hourly{
			Time:      []string{"2024-01-15T10:00", "2024-01-15T11:00", "garbage"},
			WindSpeed: []*float64{f(10)},
		},
	}
	points := ProcessChartData(resp, time.Time{})
	require.Len(t, points, 2)
	assert.Nil(t, points[1].Speed)
	assert.Nil(t, points[1].Direction)
}

func TestDaySummaries(t *testing.T) {
	resp := decodeSample(t)
	points := ProcessChartData(resp, time.Time{})

	days := DaySummaries(points, perth)
	require.Len(t, days, 2)

	d := days[0]
	assert.Equal(t, "2024-01-15", d.Date)
	assert.Equal(t, f(18.0), d.MaxSpeed)
	assert.Equal(t, f(30.1), d.MaxGust)
	require.NotNil(t, d.Sunrise)
	require.NotNil(t, d.Sunset)
	assert.Equal(t, 5, d.Sunrise.Hour())
	assert.Equal(t, 19, d.Sunset.Hour())
	assert.NotEmpty(t, d.Moon.PhaseName)
	assert.Contains(t, []string{"spring", "neap", "mid"}, string(d.Tide))

	assert.Equal(t, "2024-01-16", days[1].Date)
	assert.Equal(t, f(25.1), days[1].MaxSpeed)
}
