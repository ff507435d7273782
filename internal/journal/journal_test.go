package journal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/chrissnell/foilcast/internal/foil"
	"github.com/chrissnell/foilcast/internal/recommend"
	"github.com/chrissnell/foilcast/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activityID(v int64) *int64 { return &v }

// flightStreams rests for 12 s, then planes low for 5 s
func flightStreams() *foil.StreamBundle {
	var t, v, a []float64
	for i := 0; i <= 17; i++ {
		t = append(t, float64(i))
		if i <= 12 {
			v = append(v, 0)
			a = append(a, 10)
		} else {
			v = append(v, 4)
			a = append(a, 9.5)
		}
	}
	return foil.NewStreamBundle(map[string][]float64{
		foil.StreamTime:     t,
		foil.StreamVelocity: v,
		foil.StreamAltitude: a,
	})
}

func TestMemoryStoreOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, d := range []int{2, 0, 5, 1} {
		_, err := s.Add(ctx, "u1", Entry{Date: base.AddDate(0, 0, d), Notes: string(rune('a' + i)), LocationID: "perth"})
		require.NoError(t, err)
	}
	_, err := s.Add(ctx, "u2", Entry{Date: base, Notes: "other user"})
	require.NoError(t, err)

	list, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 4)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].Date.After(list[i-1].Date), "entries must be newest first")
	}
	assert.NotEmpty(t, list[0].ID)

	byLoc, err := s.ListForLocation(ctx, "u1", "perth")
	require.NoError(t, err)
	assert.Len(t, byLoc, 4)

	_, err = s.Get(ctx, "u2", list[0].ID)
	assert.ErrorIs(t, err, ErrNotFound, "entries are scoped to their owner")
}

func TestMemoryStoreUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	e, err := s.Add(ctx, "u", Entry{Notes: "first"})
	require.NoError(t, err)

	e.Notes = "edited"
	_, err = s.Update(ctx, "u", *e)
	require.NoError(t, err)

	got, err := s.Get(ctx, "u", e.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Notes)

	_, err = s.Update(ctx, "u", Entry{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, "u", e.ID))
	assert.ErrorIs(t, s.Delete(ctx, "u", e.ID), ErrNotFound)
}

func TestUpsertByActivityKeepsRiderNotes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first, created, err := s.UpsertByActivity(ctx, "u", Entry{
		StravaActivityID: activityID(99),
		Notes:            "Morning Wing",
		MapPolyline:      "abc",
	})
	require.NoError(t, err)
	assert.True(t, created)

	first.Notes = "Great session, 5m wing"
	_, err = s.Update(ctx, "u", *first)
	require.NoError(t, err)

	stats := CoarseStats(10, 12000)
	second, created, err := s.UpsertByActivity(ctx, "u", Entry{
		StravaActivityID: activityID(99),
		Notes:            "Morning Wing",
		MapPolyline:      "xyz",
		ActivityStats:    &stats,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Great session, 5m wing", second.Notes)
	assert.Equal(t, "xyz", second.MapPolyline)

	list, _ := s.List(ctx, "u")
	assert.Len(t, list, 1)

	_, _, err = s.UpsertByActivity(ctx, "u", Entry{})
	assert.ErrorIs(t, err, ErrNoActivity)
}

func TestCoarseStats(t *testing.T) {
	s := CoarseStats(10, 12500)
	assert.InDelta(t, 19.4384, s.TopSpeed, 1e-9)
	assert.InDelta(t, 12.5, s.Distance, 1e-9)
}

func TestSessionViewAnalyzesOnDemand(t *testing.T) {
	e := Entry{ID: "e1", Streams: flightStreams()}

	view := SessionView(e, foil.DefaultParams())
	require.NotNil(t, view.FoilAnalysis)
	assert.Len(t, view.FoilAnalysis.FoilSegments, 1)
	assert.Nil(t, e.FoilAnalysis, "the input entry is left alone")

	// a cached analysis wins
	cached := &foil.Result{FoilSegments: []foil.Segment{}}
	e.FoilAnalysis = cached
	assert.Same(t, cached, SessionView(e, foil.DefaultParams()).FoilAnalysis)
}

func TestSessionViewWithoutAltitude(t *testing.T) {
	b := foil.NewStreamBundle(map[string][]float64{
		foil.StreamTime:     {0, 1, 2},
		foil.StreamVelocity: {1, 2, 3},
	})
	view := SessionView(Entry{Streams: b}, foil.DefaultParams())
	assert.Nil(t, view.FoilAnalysis)
}

func TestBackupRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryStore()

	_, err := src.Add(ctx, "u", Entry{Date: time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC), Notes: "manual", Rating: 4})
	require.NoError(t, err)
	_, _, err = src.UpsertByActivity(ctx, "u", Entry{StravaActivityID: activityID(7), Streams: flightStreams()})
	require.NoError(t, err)
	require.NoError(t, src.SaveGear(ctx, "u", []recommend.Gear{{Type: "wing", Model: "Strike", Size: 5}}))
	require.NoError(t, src.SaveLocations(ctx, "u", []config.LocationData{{ID: "perth", Name: "Perth", Latitude: -32.013, Longitude: 115.829}}))
	require.NoError(t, src.SaveCurrentLocation(ctx, "u", "perth"))

	backup, err := Export(ctx, src, "u")
	require.NoError(t, err)

	raw, err := json.Marshal(backup)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"wind_foil_journal_entries"`)
	assert.Contains(t, string(raw), `"user_gear"`)

	var decoded Backup
	require.NoError(t, json.Unmarshal(raw, &decoded))

	dst := NewMemoryStore()
	sum, err := Import(ctx, dst, "u", decoded)
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{Entries: 2, Gear: 1, Locations: 1}, sum)

	entries, _ := dst.List(ctx, "u")
	assert.Len(t, entries, 2)
	current, _ := dst.GetCurrentLocation(ctx, "u")
	assert.Equal(t, "perth", current)

	// restoring twice doesn't duplicate anything
	_, err = Import(ctx, dst, "u", decoded)
	require.NoError(t, err)
	entries, _ = dst.List(ctx, "u")
	assert.Len(t, entries, 2)
}

func TestImportLegacyBackup(t *testing.T) {
	legacy := `{
		"wind_foil_journal_entries": [
			{"id": "1709280000000", "date": "2024-03-01T08:00:00.000Z", "locationId": "perth",
			 "notes": "Light and fun", "rating": 4, "gearUsed": "6m Unit", "windSpeed": "14"}
		],
		"currentLocationId": "perth"
	}`

	var b Backup
	require.NoError(t, json.Unmarshal([]byte(legacy), &b))

	ctx := context.Background()
	s := NewMemoryStore()
	sum, err := Import(ctx, s, "u", b)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Entries)

	entries, _ := s.List(ctx, "u")
	require.Len(t, entries, 1)
	assert.NotEqual(t, "1709280000000", entries[0].ID, "timestamp ids are replaced")
	assert.Equal(t, "6m Unit", entries[0].GearUsed)

	gear, _ := s.GetGear(ctx, "u")
	assert.Empty(t, gear, "absent gear leaves the quiver untouched")
}

func TestImportIsRepeatable(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	mine, err := s.Add(ctx, "a", Entry{Notes: "a's session"})
	require.NoError(t, err)
	backup := Backup{Entries: []Entry{
		*mine,
		{ID: "1709280000000", Notes: "legacy"},
	}}

	// the same backup restored twice into the owner and into another rider
	for i := 0; i < 2; i++ {
		_, err := Import(ctx, s, "a", backup)
		require.NoError(t, err)
		_, err = Import(ctx, s, "b", backup)
		require.NoError(t, err)
	}

	aEntries, _ := s.List(ctx, "a")
	bEntries, _ := s.List(ctx, "b")
	assert.Len(t, aEntries, 2)
	assert.Len(t, bEntries, 2)

	owner, err := s.EntryOwner(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", owner, "the original id stays with its rider")
	for _, e := range bEntries {
		assert.NotEqual(t, mine.ID, e.ID)
	}

	_, err = s.EntryOwner(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStravaUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.SaveStravaToken(ctx, "b", tokenFor("b")))
	require.NoError(t, s.SaveStravaToken(ctx, "a", tokenFor("a")))

	users, err := s.StravaUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, users)
}
