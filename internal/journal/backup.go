package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/chrissnell/foilcast/internal/recommend"
	"github.com/chrissnell/foilcast/pkg/config"
	"github.com/google/uuid"
)

// Backup is a portable copy of a user's journal. The key names match the
// backup files written by the earlier browser-only version of the app.
type Backup struct {
	Entries           []Entry               `json:"wind_foil_journal_entries"`
	Locations         []config.LocationData `json:"locations,omitempty"`
	CurrentLocationID string                `json:"currentLocationId,omitempty"`
	Gear              []recommend.Gear      `json:"user_gear,omitempty"`
}

// ImportSummary counts what a restore wrote
type ImportSummary struct {
	Entries   int `json:"entries"`
	Gear      int `json:"gear"`
	Locations int `json:"locations"`
}

// Export collects everything stored for a user
func Export(ctx context.Context, store Store, userID string) (*Backup, error) {
	entries, err := store.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	gear, err := store.GetGear(ctx, userID)
	if err != nil {
		return nil, err
	}
	locations, err := store.GetLocations(ctx, userID)
	if err != nil {
		return nil, err
	}
	current, err := store.GetCurrentLocation(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Backup{
		Entries:           entries,
		Locations:         locations,
		CurrentLocationID: current,
		Gear:              gear,
	}, nil
}

// Import restores a backup. Entries are merged: those linked to a Strava
// activity are upserted, known ids are updated and the rest are added.
// Gear and locations present in the backup replace the stored ones.
func Import(ctx context.Context, store Store, userID string, b Backup) (ImportSummary, error) {
	var sum ImportSummary

	for _, e := range b.Entries {
		if err := importEntry(ctx, store, userID, e); err != nil {
			return sum, fmt.Errorf("restoring entry %q: %w", e.ID, err)
		}
		sum.Entries++
	}

	if b.Gear != nil {
		if err := store.SaveGear(ctx, userID, b.Gear); err != nil {
			return sum, fmt.Errorf("restoring gear: %w", err)
		}
		sum.Gear = len(b.Gear)
	}

	if b.Locations != nil {
		if err := store.SaveLocations(ctx, userID, b.Locations); err != nil {
			return sum, fmt.Errorf("restoring locations: %w", err)
		}
		sum.Locations = len(b.Locations)
	}

	if b.CurrentLocationID != "" {
		if err := store.SaveCurrentLocation(ctx, userID, b.CurrentLocationID); err != nil {
			return sum, fmt.Errorf("restoring current location: %w", err)
		}
	}

	return sum, nil
}

func importEntry(ctx context.Context, store Store, userID string, e Entry) error {
	if e.StravaActivityID != nil {
		_, _, err := store.UpsertByActivity(ctx, userID, e)
		return err
	}

	if e.ID != "" {
		id, err := restoredID(ctx, store, userID, e.ID)
		if err != nil {
			return err
		}
		e.ID = id

		_, err = store.Get(ctx, userID, id)
		switch {
		case err == nil:
			_, err = store.Update(ctx, userID, e)
			return err
		case !errors.Is(err, ErrNotFound):
			return err
		}
	}

	_, err := store.Add(ctx, userID, e)
	return err
}

// restoredID picks the id a backed-up entry is stored under. A uuid that is
// free or already ours is kept. Legacy ids and ids held by another rider map
// to a uuid derived from the user and the original id, so restoring the same
// backup again finds the same entry.
func restoredID(ctx context.Context, store Store, userID, id string) (string, error) {
	if _, err := uuid.Parse(id); err == nil {
		owner, err := store.EntryOwner(ctx, id)
		if errors.Is(err, ErrNotFound) || (err == nil && owner == userID) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(userID+"/"+id)).String(), nil
}
