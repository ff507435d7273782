package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/foilcast/internal/controllers"
	"github.com/chrissnell/foilcast/internal/controllers/restserver"
	"github.com/chrissnell/foilcast/internal/controllers/stravasync"
	"github.com/chrissnell/foilcast/internal/forecast"
	"github.com/chrissnell/foilcast/internal/journal"
	"github.com/chrissnell/foilcast/internal/strava"
	"github.com/chrissnell/foilcast/pkg/config"
	"go.uber.org/zap"
)

// ControllerManager interface for the controller manager
type ControllerManager interface {
	StartControllers() error
}

// Controller is an interface that provides standard methods for various controller backends
type Controller interface {
	StartController() error
}

// NewControllerManager creates the REST server and, when enabled, the Strava
// sync controller. Both share the journal store and the Strava client.
func NewControllerManager(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, store journal.Store, logger *zap.SugaredLogger) (ControllerManager, error) {
	cm := &controllerManager{
		ctx:         ctx,
		wg:          wg,
		config:      cfg,
		store:       store,
		logger:      logger,
		controllers: make([]Controller, 0),
	}

	if cfg.Strava.Enabled() {
		if err := controllers.ValidateRequiredFields(map[string]string{
			"strava.redirect_uri": cfg.Strava.RedirectURI,
		}); err != nil {
			return nil, err
		}
		cm.strava = strava.NewClient(cfg.Strava, store)
	} else {
		logger.Info("strava credentials not configured; activity import disabled")
	}

	for _, name := range []string{"rest", "stravasync"} {
		controller, err := cm.createController(name)
		if err != nil {
			return nil, fmt.Errorf("error creating %s controller: %v", name, err)
		}
		if controller != nil {
			cm.controllers = append(cm.controllers, controller)
		}
	}

	return cm, nil
}

type controllerManager struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	config      *config.ConfigData
	store       journal.Store
	strava      *strava.Client
	logger      *zap.SugaredLogger
	controllers []Controller
}

func (c *controllerManager) StartControllers() error {
	c.logger.Info("Starting controller manager...")

	for _, controller := range c.controllers {
		err := controller.StartController()
		if err != nil {
			return fmt.Errorf("error starting controller: %v", err)
		}
	}

	c.logger.Infof("Started %d controllers successfully", len(c.controllers))
	return nil
}

// createController creates a controller by name. It returns a nil Controller
// for controllers the configuration leaves switched off.
func (cm *controllerManager) createController(name string) (Controller, error) {
	switch name {
	case "rest":
		// a nil *strava.Client must not become a non-nil interface
		var connector restserver.StravaConnector
		if cm.strava != nil {
			connector = cm.strava
		}
		return restserver.NewController(cm.ctx, cm.wg, cm.config, cm.store, forecast.NewClient(cm.config.Forecast), connector, cm.logger.Named("rest"))
	case "stravasync":
		if !cm.config.Sync.Enabled {
			return nil, nil
		}
		if cm.strava == nil {
			return nil, fmt.Errorf("sync is enabled but strava credentials are not configured")
		}
		sc, err := stravasync.NewController(cm.ctx, cm.wg, cm.config, cm.store, cm.strava, cm.logger.Named("stravasync"))
		if err != nil || sc == nil {
			return nil, err
		}
		return sc, nil
	default:
		return nil, fmt.Errorf("unknown controller type: %s", name)
	}
}
