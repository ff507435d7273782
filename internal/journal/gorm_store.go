package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/foilcast/internal/database"
	"github.com/chrissnell/foilcast/internal/foil"
	"github.com/chrissnell/foilcast/internal/recommend"
	"github.com/chrissnell/foilcast/internal/strava"
	"github.com/chrissnell/foilcast/pkg/config"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps the journal in Postgres
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open, migrated connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) List(ctx context.Context, userID string) ([]Entry, error) {
	var recs []database.JournalEntry
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("date DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing journal entries: %w", err)
	}
	return fromRecords(recs)
}

func (s *GormStore) ListForLocation(ctx context.Context, userID, locationID string) ([]Entry, error) {
	var recs []database.JournalEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND location_id = ?", userID, locationID).
		Order("date DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("listing journal entries for %s: %w", locationID, err)
	}
	return fromRecords(recs)
}

func (s *GormStore) Get(ctx context.Context, userID, id string) (*Entry, error) {
	rec, err := s.getRecord(s.db.WithContext(ctx), userID, id)
	if err != nil {
		return nil, err
	}
	e, err := fromRecord(*rec)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *GormStore) getRecord(db *gorm.DB, userID, id string) (*database.JournalEntry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var rec database.JournalEntry
	if err := db.Where("user_id = ? AND id = ?", userID, id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching journal entry %s: %w", id, err)
	}
	return &rec, nil
}

func (s *GormStore) EntryOwner(ctx context.Context, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrNotFound
	}
	var rec database.JournalEntry
	err := s.db.WithContext(ctx).Select("user_id").Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("looking up journal entry %s: %w", id, err)
	}
	return rec.UserID, nil
}

func (s *GormStore) Add(ctx context.Context, userID string, e Entry) (*Entry, error) {
	prepareNew(&e)
	rec, err := toRecord(userID, e)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("adding journal entry: %w", err)
	}
	return &e, nil
}

func (s *GormStore) Update(ctx context.Context, userID string, e Entry) (*Entry, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.getRecord(tx, userID, e.ID)
		if err != nil {
			return err
		}
		rec, err := toRecord(userID, e)
		if err != nil {
			return err
		}
		rec.CreatedAt = existing.CreatedAt
		return tx.Save(&rec).Error
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *GormStore) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res := s.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Delete(&database.JournalEntry{})
	if res.Error != nil {
		return fmt.Errorf("deleting journal entry %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) UpsertByActivity(ctx context.Context, userID string, e Entry) (*Entry, bool, error) {
	if e.StravaActivityID == nil {
		return nil, false, ErrNoActivity
	}

	var (
		out     Entry
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec database.JournalEntry
		err := tx.Where("user_id = ? AND strava_activity_id = ?", userID, *e.StravaActivityID).First(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			prepareNew(&e)
			newRec, err := toRecord(userID, e)
			if err != nil {
				return err
			}
			out, created = e, true
			return tx.Create(&newRec).Error
		case err != nil:
			return err
		}

		existing, err := fromRecord(rec)
		if err != nil {
			return err
		}
		mergeActivity(&existing, e)

		updated, err := toRecord(userID, existing)
		if err != nil {
			return err
		}
		updated.CreatedAt = rec.CreatedAt
		out = existing
		return tx.Save(&updated).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("upserting activity %d: %w", *e.StravaActivityID, err)
	}
	return &out, created, nil
}

func (s *GormStore) GetGear(ctx context.Context, userID string) ([]recommend.Gear, error) {
	var items []database.GearItem
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("sort_order").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("loading gear: %w", err)
	}
	gear := make([]recommend.Gear, 0, len(items))
	for _, it := range items {
		gear = append(gear, recommend.Gear{Type: it.Type, Model: it.Model, Size: it.Size})
	}
	return gear, nil
}

// SaveGear replaces the user's quiver
func (s *GormStore) SaveGear(ctx context.Context, userID string, gear []recommend.Gear) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&database.GearItem{}).Error; err != nil {
			return err
		}
		if len(gear) == 0 {
			return nil
		}
		items := make([]database.GearItem, 0, len(gear))
		for i, g := range gear {
			items = append(items, database.GearItem{UserID: userID, Type: g.Type, Model: g.Model, Size: g.Size, SortOrder: i})
		}
		return tx.Create(&items).Error
	})
}

func (s *GormStore) GetLocations(ctx context.Context, userID string) ([]config.LocationData, error) {
	var recs []database.Location
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("sort_order").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("loading locations: %w", err)
	}
	locs := make([]config.LocationData, 0, len(recs))
	for _, r := range recs {
		locs = append(locs, config.LocationData{
			ID:                r.Slug,
			Name:              r.Name,
			Latitude:          r.Latitude,
			Longitude:         r.Longitude,
			IdealDirectionMin: r.IdealDirectionMin,
			IdealDirectionMax: r.IdealDirectionMax,
		})
	}
	return locs, nil
}

// SaveLocations replaces the user's saved spots
func (s *GormStore) SaveLocations(ctx context.Context, userID string, locations []config.LocationData) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&database.Location{}).Error; err != nil {
			return err
		}
		if len(locations) == 0 {
			return nil
		}
		recs := make([]database.Location, 0, len(locations))
		for i, l := range locations {
			recs = append(recs, database.Location{
				UserID:            userID,
				Slug:              l.ID,
				Name:              l.Name,
				Latitude:          l.Latitude,
				Longitude:         l.Longitude,
				IdealDirectionMin: l.IdealDirectionMin,
				IdealDirectionMax: l.IdealDirectionMax,
				SortOrder:         i,
			})
		}
		return tx.Create(&recs).Error
	})
}

func (s *GormStore) GetCurrentLocation(ctx context.Context, userID string) (string, error) {
	var settings database.UserSettings
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return settings.CurrentLocationID, nil
}

func (s *GormStore) SaveCurrentLocation(ctx context.Context, userID, locationID string) error {
	settings := database.UserSettings{UserID: userID, CurrentLocationID: locationID, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&settings).Error
}

func (s *GormStore) LoadStravaToken(ctx context.Context, userID string) (*strava.Token, error) {
	var rec database.StravaToken
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading strava token: %w", err)
	}

	token := &strava.Token{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		ExpiresAt:    rec.ExpiresAt,
	}
	var athlete strava.Athlete
	if ok, err := database.DecodeJSONB(rec.Athlete, &athlete); err != nil {
		return nil, fmt.Errorf("decoding athlete: %w", err)
	} else if ok {
		token.Athlete = &athlete
	}
	return token, nil
}

func (s *GormStore) SaveStravaToken(ctx context.Context, userID string, token strava.Token) error {
	athleteJSON, err := database.JSONB(nilIfNil(token.Athlete))
	if err != nil {
		return err
	}

	rec := database.StravaToken{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.ExpiresAt,
		Athlete:      athleteJSON,
		UpdatedAt:    time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
}

func (s *GormStore) StravaUsers(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&database.StravaToken{}).Order("user_id").Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func prepareNew(e *Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Date.IsZero() {
		e.Date = time.Now().UTC()
	}
}

func toRecord(userID string, e Entry) (database.JournalEntry, error) {
	rec := database.JournalEntry{
		ID:               e.ID,
		UserID:           userID,
		Date:             e.Date,
		LocationID:       e.LocationID,
		LocationName:     e.LocationName,
		Notes:            e.Notes,
		Rating:           e.Rating,
		GearUsed:         e.GearUsed,
		WindSpeed:        e.WindSpeed,
		WindGusts:        e.WindGusts,
		WindDirection:    e.WindDirection,
		StravaActivityID: e.StravaActivityID,
		MapPolyline:      e.MapPolyline,
	}

	var err error
	// typed nil pointers must reach JSONB as untyped nil to be stored as NULL
	if rec.ActivityStats, err = database.JSONB(nilIfNil(e.ActivityStats)); err != nil {
		return rec, fmt.Errorf("encoding activity stats: %w", err)
	}
	if rec.Streams, err = database.JSONB(nilIfNil(e.Streams)); err != nil {
		return rec, fmt.Errorf("encoding streams: %w", err)
	}
	if rec.FoilAnalysis, err = database.JSONB(nilIfNil(e.FoilAnalysis)); err != nil {
		return rec, fmt.Errorf("encoding foil analysis: %w", err)
	}
	return rec, nil
}

func nilIfNil[T any](p *T) any {
	if p == nil {
		return nil
	}
	return p
}

func fromRecord(rec database.JournalEntry) (Entry, error) {
	e := Entry{
		ID:               rec.ID,
		Date:             rec.Date,
		LocationID:       rec.LocationID,
		LocationName:     rec.LocationName,
		Notes:            rec.Notes,
		Rating:           rec.Rating,
		GearUsed:         rec.GearUsed,
		WindSpeed:        rec.WindSpeed,
		WindGusts:        rec.WindGusts,
		WindDirection:    rec.WindDirection,
		StravaActivityID: rec.StravaActivityID,
		MapPolyline:      rec.MapPolyline,
	}

	var stats ActivityStats
	if ok, err := database.DecodeJSONB(rec.ActivityStats, &stats); err != nil {
		return e, fmt.Errorf("decoding activity stats for %s: %w", rec.ID, err)
	} else if ok {
		e.ActivityStats = &stats
	}

	var streams foil.StreamBundle
	if ok, err := database.DecodeJSONB(rec.Streams, &streams); err != nil {
		return e, fmt.Errorf("decoding streams for %s: %w", rec.ID, err)
	} else if ok {
		e.Streams = &streams
	}

	var analysis foil.Result
	if ok, err := database.DecodeJSONB(rec.FoilAnalysis, &analysis); err != nil {
		return e, fmt.Errorf("decoding foil analysis for %s: %w", rec.ID, err)
	} else if ok {
		e.FoilAnalysis = &analysis
	}

	return e, nil
}

func fromRecords(recs []database.JournalEntry) ([]Entry, error) {
	entries := make([]Entry, 0, len(recs))
	for _, r := range recs {
		e, err := fromRecord(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
