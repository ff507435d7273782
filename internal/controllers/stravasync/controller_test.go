package stravasync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chrissnell/foilcast/internal/foil"
	"github.com/chrissnell/foilcast/internal/journal"
	"github.com/chrissnell/foilcast/internal/strava"
	"github.com/chrissnell/foilcast/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	activities  []strava.Activity
	streams     map[int64]*foil.StreamBundle
	streamErr   map[int64]error
	tokenErr    error
	streamCalls atomic.Int32
}

func (f *fakeSource) AccessToken(context.Context, string) (string, error) {
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return "tok", nil
}

func (f *fakeSource) ListActivities(context.Context, string, int) ([]strava.Activity, error) {
	return f.activities, nil
}

func (f *fakeSource) GetStreams(_ context.Context, _ string, id int64) (*foil.StreamBundle, error) {
	f.streamCalls.Add(1)
	if err := f.streamErr[id]; err != nil {
		return nil, err
	}
	return f.streams[id], nil
}

func flight() *foil.StreamBundle {
	var t, v, a []float64
	for i := 0; i <= 20; i++ {
		t = append(t, float64(i))
		if i <= 12 {
			v, a = append(v, 0), append(a, 5)
		} else {
			v, a = append(v, 5), append(a, 4.5)
		}
	}
	return foil.NewStreamBundle(map[string][]float64{foil.StreamTime: t, foil.StreamVelocity: v, foil.StreamAltitude: a})
}

func activity(id int64, name string) strava.Activity {
	a := strava.Activity{ID: id, Name: name, StartDate: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour), MaxSpeed: 9, Distance: 15000}
	a.Map.SummaryPolyline = "_p~iF~ps|U_ulLnnqC"
	return a
}

func testConfig() *config.ConfigData {
	return &config.ConfigData{
		Strava: config.StravaData{ClientID: "1", ClientSecret: "s"},
		Sync:   config.SyncData{Enabled: true, Interval: "1h", Workers: 2},
	}
}

func newController(t *testing.T, ctx context.Context, wg *sync.WaitGroup, store journal.Store, src ActivitySource) *Controller {
	t.Helper()
	c, err := NewController(ctx, wg, testConfig(), store, src, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.NotNil(t, c)
	return c
}

func TestNewControllerDisabled(t *testing.T) {
	c, err := NewController(context.Background(), &sync.WaitGroup{}, &config.ConfigData{}, journal.NewMemoryStore(), &fakeSource{}, zap.NewNop().Sugar())
	assert.NoError(t, err)
	assert.Nil(t, c)

	cfg := testConfig()
	cfg.Strava = config.StravaData{}
	_, err = NewController(context.Background(), &sync.WaitGroup{}, cfg, journal.NewMemoryStore(), &fakeSource{}, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestSyncUser(t *testing.T) {
	ctx := context.Background()
	store := journal.NewMemoryStore()

	src := &fakeSource{
		activities: []strava.Activity{activity(1, "Foil"), activity(2, "No baro"), activity(3, "Flaky")},
		streams: map[int64]*foil.StreamBundle{
			1: flight(),
			2: foil.NewStreamBundle(map[string][]float64{foil.StreamTime: {0, 1}, foil.StreamVelocity: {1, 2}}),
		},
		streamErr: map[int64]error{3: errors.New("boom")},
	}

	c := newController(t, ctx, &sync.WaitGroup{}, store, src)
	defer c.pool.Release()

	res, err := c.SyncUser(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, Result{Imported: 3}, res)

	entries, err := store.List(ctx, "u")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byID := map[int64]journal.Entry{}
	for _, e := range entries {
		byID[*e.StravaActivityID] = e
	}

	foiled := byID[1]
	require.NotNil(t, foiled.FoilAnalysis)
	assert.Len(t, foiled.FoilAnalysis.FoilSegments, 1)
	assert.Equal(t, "Foil", foiled.Notes)
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC", foiled.MapPolyline)

	noBaro := byID[2]
	assert.Nil(t, noBaro.FoilAnalysis, "missing altitude degrades to coarse stats")
	require.NotNil(t, noBaro.ActivityStats)
	assert.InDelta(t, 9*1.94384, noBaro.ActivityStats.TopSpeed, 1e-9)
	assert.InDelta(t, 15.0, noBaro.ActivityStats.Distance, 1e-9)

	flaky := byID[3]
	assert.Nil(t, flaky.Streams)
	assert.NotNil(t, flaky.ActivityStats)

	// second pass only retries the activity whose streams never arrived
	src.streamCalls.Store(0)
	delete(src.streamErr, 3)
	src.streams[3] = flight()

	res, err = c.SyncUser(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, Result{Updated: 1, Skipped: 2}, res)
	assert.Equal(t, int32(1), src.streamCalls.Load())

	got, _ := store.List(ctx, "u")
	assert.Len(t, got, 3)
}

func TestSyncUserUnauthorized(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{tokenErr: strava.ErrUnauthorized}
	c := newController(t, ctx, &sync.WaitGroup{}, journal.NewMemoryStore(), src)
	defer c.pool.Release()

	_, err := c.SyncUser(ctx, "u")
	assert.ErrorIs(t, err, strava.ErrUnauthorized)
}

func TestStartControllerSyncsConnectedUsers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	store := journal.NewMemoryStore()
	require.NoError(t, store.SaveStravaToken(ctx, "u", strava.Token{AccessToken: "a"}))

	src := &fakeSource{
		activities: []strava.Activity{activity(1, "Foil")},
		streams:    map[int64]*foil.StreamBundle{1: flight()},
	}
	c := newController(t, ctx, &wg, store, src)
	require.NoError(t, c.StartController())

	require.Eventually(t, func() bool {
		entries, _ := store.List(context.Background(), "u")
		return len(entries) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	wg.Wait()
}
