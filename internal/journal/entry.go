// Package journal stores a rider's logged sessions, gear and spots.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/chrissnell/foilcast/internal/foil"
	"github.com/chrissnell/foilcast/internal/recommend"
	"github.com/chrissnell/foilcast/internal/strava"
	"github.com/chrissnell/foilcast/pkg/config"
)

var (
	ErrNotFound = errors.New("journal entry not found")

	// ErrNoActivity is returned by UpsertByActivity for entries without a Strava activity id
	ErrNoActivity = errors.New("entry has no strava activity id")
)

// Entry is one logged session
type Entry struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date"`
	LocationID   string    `json:"locationId,omitempty"`
	LocationName string    `json:"locationName,omitempty"`
	Notes        string    `json:"notes"`
	Rating       int       `json:"rating,omitempty"`
	GearUsed     string    `json:"gearUsed,omitempty"`

	WindSpeed     string `json:"windSpeed,omitempty"`
	WindGusts     string `json:"windGusts,omitempty"`
	WindDirection string `json:"windDirection,omitempty"`

	StravaActivityID *int64             `json:"stravaActivityId,omitempty"`
	MapPolyline      string             `json:"mapPolyline,omitempty"`
	Streams          *foil.StreamBundle `json:"streams,omitempty"`
	ActivityStats    *ActivityStats     `json:"activityStats,omitempty"`
	FoilAnalysis     *foil.Result       `json:"foilAnalysis,omitempty"`
}

// ActivityStats are the coarse numbers shown when no foil analysis exists
type ActivityStats struct {
	TopSpeed float64 `json:"topSpeed"` // knots
	Distance float64 `json:"distance"` // km
}

// CoarseStats converts an activity's max speed (m/s) and distance (m)
func CoarseStats(maxSpeedMs, distanceMeters float64) ActivityStats {
	return ActivityStats{
		TopSpeed: maxSpeedMs * 1.94384,
		Distance: distanceMeters / 1000,
	}
}

// Store persists journal data. Every call is scoped to a user.
type Store interface {
	List(ctx context.Context, userID string) ([]Entry, error)
	ListForLocation(ctx context.Context, userID, locationID string) ([]Entry, error)
	Get(ctx context.Context, userID, id string) (*Entry, error)
	Add(ctx context.Context, userID string, e Entry) (*Entry, error)
	Update(ctx context.Context, userID string, e Entry) (*Entry, error)
	Delete(ctx context.Context, userID, id string) error

	// EntryOwner returns the user holding entry id, whoever that is, or ErrNotFound
	EntryOwner(ctx context.Context, id string) (string, error)

	// UpsertByActivity inserts the entry, or refreshes the activity-derived
	// fields of the user's existing entry for the same Strava activity.
	UpsertByActivity(ctx context.Context, userID string, e Entry) (entry *Entry, created bool, err error)

	GetGear(ctx context.Context, userID string) ([]recommend.Gear, error)
	SaveGear(ctx context.Context, userID string, gear []recommend.Gear) error

	GetLocations(ctx context.Context, userID string) ([]config.LocationData, error)
	SaveLocations(ctx context.Context, userID string, locations []config.LocationData) error
	GetCurrentLocation(ctx context.Context, userID string) (string, error)
	SaveCurrentLocation(ctx context.Context, userID, locationID string) error

	strava.TokenStore
	// StravaUsers lists users that have connected Strava
	StravaUsers(ctx context.Context) ([]string, error)
}

// mergeActivity copies the activity-derived fields of src onto dst, keeping
// what the rider typed.
func mergeActivity(dst *Entry, src Entry) {
	dst.StravaActivityID = src.StravaActivityID
	dst.MapPolyline = src.MapPolyline
	dst.Streams = src.Streams
	dst.ActivityStats = src.ActivityStats
	dst.FoilAnalysis = src.FoilAnalysis
	if dst.Notes == "" {
		dst.Notes = src.Notes
	}
}
