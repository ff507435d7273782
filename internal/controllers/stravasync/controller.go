// Package stravasync periodically imports riders' Strava activities into their
// journals, analyzing each recording for foil flights on a worker pool.
package stravasync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/foilcast/internal/foil"
	"github.com/chrissnell/foilcast/internal/journal"
	"github.com/chrissnell/foilcast/internal/metrics"
	"github.com/chrissnell/foilcast/internal/strava"
	"github.com/chrissnell/foilcast/pkg/config"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const (
	defaultPerPage = 10
	defaultWorkers = 4
)

// ActivitySource is the part of the Strava client the sync needs
type ActivitySource interface {
	AccessToken(ctx context.Context, userID string) (string, error)
	ListActivities(ctx context.Context, accessToken string, perPage int) ([]strava.Activity, error)
	GetStreams(ctx context.Context, accessToken string, activityID int64) (*foil.StreamBundle, error)
}

// Result counts what one user's sync did
type Result struct {
	Imported int
	Updated  int
	Skipped  int
	Failed   int
}

// Controller runs the sync loop
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	store    journal.Store
	source   ActivitySource
	params   foil.Params
	interval time.Duration
	perPage  int
	pool     *ants.Pool
	logger   *zap.SugaredLogger
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewController creates the sync controller. It returns nil when the sync
// is disabled in the configuration.
func NewController(
	ctx context.Context,
	wg *sync.WaitGroup,
	cfg *config.ConfigData,
	store journal.Store,
	source ActivitySource,
	logger *zap.SugaredLogger,
) (*Controller, error) {
	if !cfg.Sync.Enabled {
		logger.Debug("strava sync disabled")
		return nil, nil
	}
	if !cfg.Strava.Enabled() {
		return nil, fmt.Errorf("strava sync requires strava client-id and client-secret")
	}

	interval, err := cfg.Sync.GetInterval()
	if err != nil {
		return nil, err
	}
	params, err := cfg.Analysis.Params()
	if err != nil {
		return nil, err
	}

	perPage := cfg.Sync.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	workers := cfg.Sync.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("creating analysis pool: %w", err)
	}

	return &Controller{
		ctx:      ctx,
		wg:       wg,
		store:    store,
		source:   source,
		params:   params,
		interval: interval,
		perPage:  perPage,
		pool:     pool,
		logger:   logger,
		stopChan: make(chan struct{}),
	}, nil
}

// StartController syncs immediately and then every interval until the
// context is cancelled or Stop is called.
func (c *Controller) StartController() error {
	c.logger.Infof("strava sync running every %s", c.interval)

	c.wg.Add(1)
	go c.run()
	return nil
}

func (c *Controller) run() {
	defer c.wg.Done()
	defer c.pool.Release()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.syncAll()
	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("strava sync stopped")
			return
		case <-c.stopChan:
			c.logger.Info("strava sync stopped")
			return
		case <-ticker.C:
			c.syncAll()
		}
	}
}

// Stop ends the sync loop
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *Controller) syncAll() {
	users, err := c.store.StravaUsers(c.ctx)
	if err != nil {
		c.logger.Errorf("listing strava users: %v", err)
		return
	}

	for _, user := range users {
		if c.ctx.Err() != nil {
			return
		}
		res, err := c.SyncUser(c.ctx, user)
		if err != nil {
			if errors.Is(err, strava.ErrUnauthorized) {
				c.logger.Warnw("strava token rejected; user must reconnect", "user", user)
				continue
			}
			c.logger.Errorw("strava sync failed", "user", user, "error", err)
			continue
		}
		c.logger.Debugw("strava sync complete", "user", user,
			"imported", res.Imported, "updated", res.Updated, "skipped", res.Skipped, "failed", res.Failed)
	}
}

// SyncUser imports the user's recent activities. Activities whose streams are
// already stored are skipped; the rest are fetched and analyzed in parallel.
func (c *Controller) SyncUser(ctx context.Context, userID string) (Result, error) {
	var res Result

	token, err := c.source.AccessToken(ctx, userID)
	if err != nil {
		return res, err
	}

	activities, err := c.source.ListActivities(ctx, token, c.perPage)
	if err != nil {
		return res, err
	}

	existing, err := c.store.List(ctx, userID)
	if err != nil {
		return res, err
	}
	synced := map[int64]bool{}
	for _, e := range existing {
		if e.StravaActivityID != nil && e.Streams != nil {
			synced[*e.StravaActivityID] = true
		}
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(outcome string) {
		mu.Lock()
		defer mu.Unlock()
		switch outcome {
		case "imported":
			res.Imported++
		case "updated":
			res.Updated++
		case "failed":
			res.Failed++
		}
		metrics.SyncedActivities.WithLabelValues(outcome).Inc()
	}

	for _, act := range activities {
		if synced[act.ID] {
			res.Skipped++
			continue
		}

		act := act
		wg.Add(1)
		err := c.pool.Submit(func() {
			defer wg.Done()
			record(c.importActivity(ctx, userID, token, act))
		})
		if err != nil {
			wg.Done()
			c.logger.Errorf("queueing activity %d: %v", act.ID, err)
			record("failed")
		}
	}
	wg.Wait()

	return res, nil
}

// importActivity fetches, analyzes and stores one activity. A recording
// without usable streams is still stored with its coarse stats.
func (c *Controller) importActivity(ctx context.Context, userID, token string, act strava.Activity) string {
	id := act.ID
	stats := journal.CoarseStats(act.MaxSpeed, act.Distance)
	entry := journal.Entry{
		Date:             act.StartDate,
		Notes:            act.Name,
		StravaActivityID: &id,
		MapPolyline:      act.Map.SummaryPolyline,
		ActivityStats:    &stats,
	}

	streams, err := c.source.GetStreams(ctx, token, act.ID)
	if err != nil {
		c.logger.Warnw("fetching streams failed; keeping coarse stats", "activity", act.ID, "error", err)
	} else {
		entry.Streams = streams
		analysis, err := journal.AnalyzeStreams(streams, c.params)
		switch {
		case errors.Is(err, foil.ErrMissingStreams):
			c.logger.Debugw("activity has no altitude or speed stream", "activity", act.ID)
		case err != nil:
			c.logger.Warnw("foil analysis failed", "activity", act.ID, "error", err)
		default:
			entry.FoilAnalysis = analysis
		}
	}

	_, created, err := c.store.UpsertByActivity(ctx, userID, entry)
	if err != nil {
		c.logger.Errorw("storing activity failed", "activity", act.ID, "error", err)
		return "failed"
	}
	if created {
		return "imported"
	}
	return "updated"
}
