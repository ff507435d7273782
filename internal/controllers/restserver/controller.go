package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/foilcast/internal/foil"
	"github.com/chrissnell/foilcast/internal/forecast"
	"github.com/chrissnell/foilcast/internal/journal"
	"github.com/chrissnell/foilcast/internal/log"
	"github.com/chrissnell/foilcast/internal/strava"
	"github.com/chrissnell/foilcast/pkg/config"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ForecastSource fetches hourly wind forecasts for a spot
type ForecastSource interface {
	Fetch(ctx context.Context, loc config.LocationData) (*forecast.Response, error)
}

// StravaConnector runs the OAuth handshake with Strava
type StravaConnector interface {
	AuthorizeURL(state string) string
	Connect(ctx context.Context, userID, code string) (*strava.Athlete, error)
}

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	cfg        *config.ConfigData
	restConfig config.RESTServerData
	Server     http.Server
	store      journal.Store
	forecast   ForecastSource
	strava     StravaConnector
	params     foil.Params
	auth       *authenticator
	now        func() time.Time
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new REST server controller. strava may be nil when
// no Strava credentials are configured.
func NewController(
	ctx context.Context,
	wg *sync.WaitGroup,
	cfg *config.ConfigData,
	store journal.Store,
	fc ForecastSource,
	sc StravaConnector,
	logger *zap.SugaredLogger,
) (*Controller, error) {
	rc := cfg.REST

	if rc.JWTSecret == "" {
		return nil, fmt.Errorf("rest.jwt_secret must be set")
	}

	params, err := cfg.Analysis.Params()
	if err != nil {
		return nil, err
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}

	if rc.Port == 0 {
		logger.Info("rest.port not provided; defaulting to 8080")
		rc.Port = 8080
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		cfg:        cfg,
		restConfig: rc,
		store:      store,
		forecast:   fc,
		strava:     sc,
		params:     params,
		auth:       newAuthenticator(rc.JWTSecret),
		now:        time.Now,
		logger:     logger,
	}
	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = ctrl.setupRouter()

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	c.logger.Infof("starting REST server on %s", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		var err error
		if c.restConfig.Cert != "" && c.restConfig.Key != "" {
			err = c.Server.ListenAndServeTLS(c.restConfig.Cert, c.restConfig.Key)
		} else {
			err = c.Server.ListenAndServe()
		}
		if err != http.ErrServerClosed {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware)

	if c.restConfig.EnableCORS {
		router.Methods(http.MethodOptions).HandlerFunc(preflight)
	}

	router.HandleFunc("/healthz", c.handlers.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/analyze", c.handlers.Analyze).Methods(http.MethodPost)

	// Everything below acts on the rider named by the bearer token
	user := router.NewRoute().Subrouter()
	user.Use(c.auth.middleware(c.handlers.formatter))

	user.HandleFunc("/forecast/{location}", c.handlers.GetForecast).Methods(http.MethodGet)
	user.HandleFunc("/recommendations/{location}", c.handlers.GetRecommendations).Methods(http.MethodGet)

	user.HandleFunc("/journal", c.handlers.ListJournal).Methods(http.MethodGet)
	user.HandleFunc("/journal", c.handlers.CreateJournalEntry).Methods(http.MethodPost)
	user.HandleFunc("/journal/{id}", c.handlers.GetJournalEntry).Methods(http.MethodGet)
	user.HandleFunc("/journal/{id}", c.handlers.UpdateJournalEntry).Methods(http.MethodPut)
	user.HandleFunc("/journal/{id}", c.handlers.DeleteJournalEntry).Methods(http.MethodDelete)
	user.HandleFunc("/journal/{id}/analysis", c.handlers.GetAnalysis).Methods(http.MethodGet)
	user.HandleFunc("/journal/{id}/route", c.handlers.GetRoute).Methods(http.MethodGet)

	user.HandleFunc("/gear", c.handlers.GetGear).Methods(http.MethodGet)
	user.HandleFunc("/gear", c.handlers.SaveGear).Methods(http.MethodPut)
	user.HandleFunc("/locations", c.handlers.GetLocations).Methods(http.MethodGet)
	user.HandleFunc("/locations", c.handlers.SaveLocations).Methods(http.MethodPut)
	user.HandleFunc("/locations/current", c.handlers.GetCurrentLocation).Methods(http.MethodGet)
	user.HandleFunc("/locations/current", c.handlers.SaveCurrentLocation).Methods(http.MethodPut)

	user.HandleFunc("/strava/authorize", c.handlers.StravaAuthorize).Methods(http.MethodGet)
	user.HandleFunc("/strava/callback", c.handlers.StravaCallback).Methods(http.MethodPost)

	user.HandleFunc("/backup", c.handlers.Backup).Methods(http.MethodGet)
	user.HandleFunc("/restore", c.handlers.Restore).Methods(http.MethodPost)

	return router
}

func preflight(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	w.WriteHeader(http.StatusNoContent)
}

// findLocation looks the spot up in the rider's own list first, then in the
// configured defaults.
func (c *Controller) findLocation(ctx context.Context, userID, id string) (config.LocationData, bool, error) {
	locations, err := c.store.GetLocations(ctx, userID)
	if err != nil {
		return config.LocationData{}, false, err
	}
	for _, loc := range locations {
		if loc.ID == id {
			return loc, true, nil
		}
	}
	loc, ok := c.cfg.FindLocation(id)
	return loc, ok, nil
}
