package database

import (
	"encoding/json"
	"time"

	"github.com/jackc/pgtype"
)

// JournalEntry is one logged session
type JournalEntry struct {
	ID     string    `gorm:"primaryKey;type:uuid"`
	UserID string    `gorm:"not null;index:idx_journal_user_date,priority:1;uniqueIndex:idx_journal_user_activity,priority:1"`
	Date   time.Time `gorm:"not null;index:idx_journal_user_date,priority:2,sort:desc"`

	LocationID   string `gorm:"index"`
	LocationName string
	Notes        string `gorm:"type:text"`
	Rating       int
	GearUsed     string

	// Conditions as the rider recorded them
	WindSpeed     string
	WindGusts     string
	WindDirection string

	StravaActivityID *int64 `gorm:"uniqueIndex:idx_journal_user_activity,priority:2"`
	MapPolyline      string `gorm:"type:text"`

	ActivityStats pgtype.JSONB `gorm:"type:jsonb"`
	Streams       pgtype.JSONB `gorm:"type:jsonb"`
	FoilAnalysis  pgtype.JSONB `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (JournalEntry) TableName() string {
	return "journal_entries"
}

// GearItem is a wing, board or foil in a rider's quiver
type GearItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"`
	UserID    string  `gorm:"not null;index"`
	Type      string  `gorm:"not null"`
	Model     string  `gorm:"not null"`
	Size      float64 `gorm:"not null"`
	SortOrder int     `gorm:"not null;default:0"`
}

func (GearItem) TableName() string {
	return "gear_items"
}

// Location is a riding spot saved by a user
type Location struct {
	ID                uint   `gorm:"primaryKey;autoIncrement"`
	UserID            string `gorm:"not null;uniqueIndex:idx_location_user_slug,priority:1"`
	Slug              string `gorm:"not null;uniqueIndex:idx_location_user_slug,priority:2"`
	Name              string `gorm:"not null"`
	Latitude          float64
	Longitude         float64
	IdealDirectionMin float64
	IdealDirectionMax float64
	SortOrder         int `gorm:"not null;default:0"`
}

func (Location) TableName() string {
	return "locations"
}

// UserSettings holds per-user preferences
type UserSettings struct {
	UserID            string `gorm:"primaryKey"`
	CurrentLocationID string
	UpdatedAt         time.Time
}

func (UserSettings) TableName() string {
	return "user_settings"
}

// StravaToken is a user's OAuth token pair
type StravaToken struct {
	UserID       string       `gorm:"primaryKey"`
	AccessToken  string       `gorm:"not null"`
	RefreshToken string       `gorm:"not null"`
	ExpiresAt    int64        `gorm:"not null"`
	Athlete      pgtype.JSONB `gorm:"type:jsonb"`
	UpdatedAt    time.Time
}

func (StravaToken) TableName() string {
	return "strava_tokens"
}

// JSONB encodes v for a jsonb column. A nil v is stored as SQL NULL.
func JSONB(v any) (pgtype.JSONB, error) {
	var j pgtype.JSONB
	if v == nil {
		j.Status = pgtype.Null
		return j, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return j, err
	}
	if string(b) == "null" {
		j.Status = pgtype.Null
		return j, nil
	}
	err = j.Set(b)
	return j, err
}

// DecodeJSONB decodes a jsonb column into out. It reports false when the
// column is NULL or empty.
func DecodeJSONB(j pgtype.JSONB, out any) (bool, error) {
	if j.Status != pgtype.Present || len(j.Bytes) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(j.Bytes, out); err != nil {
		return false, err
	}
	return true, nil
}
