package restserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chrissnell/foilcast/internal/foil"
	"github.com/chrissnell/foilcast/internal/forecast"
	"github.com/chrissnell/foilcast/internal/journal"
	"github.com/chrissnell/foilcast/internal/recommend"
	"github.com/chrissnell/foilcast/pkg/config"
	"github.com/chrissnell/foilcast/pkg/responseformat"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/twpayne/go-polyline"
)

// Stream uploads can be several hours of 1 Hz samples
const maxBodyBytes = 32 << 20

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(ctrl.restConfig.EnableCORS),
	}
}

type forecastResponse struct {
	Location config.LocationData    `json:"location"`
	Hourly   []forecast.HourlyPoint `json:"hourly"`
	Days     []forecast.DaySummary  `json:"days"`
}

type recommendationsResponse struct {
	Location config.LocationData `json:"location"`
	Current  *recommend.Session  `json:"current,omitempty"`
	Sessions []recommend.Session `json:"sessions"`
}

type routeResponse struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type currentLocationBody struct {
	ID string `json:"id"`
}

type stravaCallbackBody struct {
	Code string `json:"code"`
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, status int, data any) {
	if err := h.formatter.WriteResponse(w, req, status, data); err != nil {
		h.controller.logger.Errorf("error writing response: %v", err)
	}
}

func (h *Handlers) fail(w http.ResponseWriter, req *http.Request, status int, msg string) {
	if err := h.formatter.WriteError(w, req, status, msg); err != nil {
		h.controller.logger.Errorf("error writing response: %v", err)
	}
}

// storeError maps journal errors onto status codes
func (h *Handlers) storeError(w http.ResponseWriter, req *http.Request, err error) {
	if errors.Is(err, journal.ErrNotFound) {
		h.fail(w, req, http.StatusNotFound, "journal entry not found")
		return
	}
	h.controller.logger.Errorw("journal store error", "path", req.URL.Path, "error", err)
	h.fail(w, req, http.StatusInternalServerError, "internal error")
}

func decodeBody(w http.ResponseWriter, req *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes)).Decode(v)
}

// Health reports that the server is up
func (h *Handlers) Health(w http.ResponseWriter, req *http.Request) {
	h.write(w, req, http.StatusOK, map[string]string{"status": "ok"})
}

// Analyze runs the foil detector over a stream bundle posted in the body
func (h *Handlers) Analyze(w http.ResponseWriter, req *http.Request) {
	var bundle *foil.StreamBundle
	if err := decodeBody(w, req, &bundle); err != nil {
		h.fail(w, req, http.StatusBadRequest, "malformed stream bundle: "+err.Error())
		return
	}

	result, err := journal.AnalyzeStreams(bundle, h.controller.params)
	switch {
	case errors.Is(err, foil.ErrMissingStreams):
		h.fail(w, req, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		h.fail(w, req, http.StatusBadRequest, err.Error())
	default:
		h.write(w, req, http.StatusOK, result)
	}
}

// lookupLocation resolves the {location} path variable, writing the error
// response itself when it can't.
func (h *Handlers) lookupLocation(w http.ResponseWriter, req *http.Request) (config.LocationData, bool) {
	id := mux.Vars(req)["location"]
	loc, ok, err := h.controller.findLocation(req.Context(), userFromContext(req.Context()), id)
	if err != nil {
		h.storeError(w, req, err)
		return loc, false
	}
	if !ok {
		h.fail(w, req, http.StatusNotFound, "unknown location: "+id)
		return loc, false
	}
	return loc, true
}

func (h *Handlers) hourly(w http.ResponseWriter, req *http.Request, loc config.LocationData) ([]forecast.HourlyPoint, bool) {
	resp, err := h.controller.forecast.Fetch(req.Context(), loc)
	if err != nil {
		h.controller.logger.Warnw("forecast fetch failed", "location", loc.ID, "error", err)
		h.fail(w, req, http.StatusBadGateway, "forecast unavailable")
		return nil, false
	}
	return forecast.ProcessChartData(resp, h.controller.now()), true
}

// GetForecast returns the hourly chart data and per-day summaries for a spot
func (h *Handlers) GetForecast(w http.ResponseWriter, req *http.Request) {
	loc, ok := h.lookupLocation(w, req)
	if !ok {
		return
	}
	points, ok := h.hourly(w, req, loc)
	if !ok {
		return
	}

	h.write(w, req, http.StatusOK, forecastResponse{
		Location: loc,
		Hourly:   points,
		Days:     forecast.DaySummaries(points, loc),
	})
}

// GetRecommendations rates the current hour and suggests the best upcoming sessions
func (h *Handlers) GetRecommendations(w http.ResponseWriter, req *http.Request) {
	loc, ok := h.lookupLocation(w, req)
	if !ok {
		return
	}
	points, ok := h.hourly(w, req, loc)
	if !ok {
		return
	}

	gear, err := h.controller.store.GetGear(req.Context(), userFromContext(req.Context()))
	if err != nil {
		h.storeError(w, req, err)
		return
	}

	now := h.controller.now()
	ideal := recommend.DirectionRangeFor(loc)
	resp := recommendationsResponse{
		Location: loc,
		Sessions: recommend.SuggestBestSessions(points, gear, ideal, loc, now),
	}

	// the latest hour that has started is "now"
	for i := len(points) - 1; i >= 0; i-- {
		p := points[i]
		if p.Time.After(now) {
			continue
		}
		var speed, dir float64
		if p.Speed != nil {
			speed = *p.Speed
		}
		if p.Direction != nil {
			dir = *p.Direction
		}
		resp.Current = &recommend.Session{
			HourlyPoint: p,
			Rating:      recommend.WindRating(p.Speed, dir, ideal),
			Gear:        recommend.GearRecommendation(speed, gear),
		}
		break
	}

	h.write(w, req, http.StatusOK, resp)
}

// ListJournal returns the rider's entries, newest first. ?location= filters by spot.
func (h *Handlers) ListJournal(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	user := userFromContext(ctx)

	var (
		entries []journal.Entry
		err     error
	)
	if loc := req.URL.Query().Get("location"); loc != "" {
		entries, err = h.controller.store.ListForLocation(ctx, user, loc)
	} else {
		entries, err = h.controller.store.List(ctx, user)
	}
	if err != nil {
		h.storeError(w, req, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	h.write(w, req, http.StatusOK, entries)
}

// CreateJournalEntry logs a new session
func (h *Handlers) CreateJournalEntry(w http.ResponseWriter, req *http.Request) {
	var e journal.Entry
	if err := decodeBody(w, req, &e); err != nil {
		h.fail(w, req, http.StatusBadRequest, "malformed journal entry: "+err.Error())
		return
	}
	e.ID = ""

	created, err := h.controller.store.Add(req.Context(), userFromContext(req.Context()), e)
	if err != nil {
		h.storeError(w, req, err)
		return
	}
	h.write(w, req, http.StatusCreated, created)
}

// GetJournalEntry returns one entry as shown on the session page
func (h *Handlers) GetJournalEntry(w http.ResponseWriter, req *http.Request) {
	e, err := h.controller.store.Get(req.Context(), userFromContext(req.Context()), mux.Vars(req)["id"])
	if err != nil {
		h.storeError(w, req, err)
		return
	}
	h.write(w, req, http.StatusOK, journal.SessionView(*e, h.controller.params))
}

// UpdateJournalEntry replaces an entry
func (h *Handlers) UpdateJournalEntry(w http.ResponseWriter, req *http.Request) {
	var e journal.Entry
	if err := decodeBody(w, req, &e); err != nil {
		h.fail(w, req, http.StatusBadRequest, "malformed journal entry: "+err.Error())
		return
	}
	e.ID = mux.Vars(req)["id"]

	updated, err := h.controller.store.Update(req.Context(), userFromContext(req.Context()), e)
	if err != nil {
		h.storeError(w, req, err)
		return
	}
	h.write(w, req, http.StatusOK, updated)
}

// DeleteJournalEntry removes an entry
func (h *Handlers) DeleteJournalEntry(w http.ResponseWriter, req *http.Request) {
	if err := h.controller.store.Delete(req.Context(), userFromContext(req.Context()), mux.Vars(req)["id"]); err != nil {
		h.storeError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAnalysis returns the foil analysis of an entry, computing it from the
// stored streams when it was never cached.
func (h *Handlers) GetAnalysis(w http.ResponseWriter, req *http.Request) {
	e, err := h.controller.store.Get(req.Context(), userFromContext(req.Context()), mux.Vars(req)["id"])
	if err != nil {
		h.storeError(w, req, err)
		return
	}

	view := journal.SessionView(*e, h.controller.params)
	if view.FoilAnalysis == nil {
		h.fail(w, req, http.StatusNotFound, "no analysis available")
		return
	}
	h.write(w, req, http.StatusOK, view.FoilAnalysis)
}

// GetRoute decodes the entry's encoded polyline into [lat, lng] pairs
func (h *Handlers) GetRoute(w http.ResponseWriter, req *http.Request) {
	e, err := h.controller.store.Get(req.Context(), userFromContext(req.Context()), mux.Vars(req)["id"])
	if err != nil {
		h.storeError(w, req, err)
		return
	}
	if e.MapPolyline == "" {
		h.fail(w, req, http.StatusNotFound, "no route available")
		return
	}

	coords, _, err := polyline.DecodeCoords([]byte(e.MapPolyline))
	if err != nil {
		h.controller.logger.Warnw("undecodable route polyline", "entry", e.ID, "error", err)
		h.fail(w, req, http.StatusUnprocessableEntity, "route polyline is corrupt")
		return
	}
	h.write(w, req, http.StatusOK, routeResponse{Coordinates: coords})
}

// GetGear returns the rider's quiver
func (h *Handlers) GetGear(w http.ResponseWriter, req *http.Request) {
	gear, err := h.controller.store.GetGear(req.Context(), userFromContext(req.Context()))
	if err != nil {
		h.storeError(w, req, err)
		return
	}
	if gear == nil {
		gear = []recommend.Gear{}
	}
	h.write(w, req, http.StatusOK, gear)
}

// SaveGear replaces the rider's quiver
func (h *Handlers) SaveGear(w http.ResponseWriter, req *http.Request) {
	var gear []recommend.Gear
	if err := decodeBody(w, req, &gear); err != nil {
		h.fail(w, req, http.StatusBadRequest, "malformed gear list: "+err.Error())
		return
	}
	for _, g := range gear {
		if g.Type == "" || g.Size < 0 {
			h.fail(w, req, http.StatusBadRequest, "every gear item needs a type and a non-negative size")
			return
		}
	}

	if err := h.controller.store.SaveGear(req.Context(), userFromContext(req.Context()), gear); err != nil {
		h.storeError(w, req, err)
		return
	}
	h.write(w, req, http.StatusOK, gear)
}

// GetLocations returns the rider's spots, or the configured ones when they
// haven't saved any.
func (h *Handlers) GetLocations(w http.ResponseWriter, req *http.Request) {
	locations, err := h.controller.store.GetLocations(req.Context(), userFromContext(req.Context()))
	if err != nil {
		h.storeError(w, req, err)
		return
	}
	if len(locations) == 0 {
		locations = h.controller.cfg.Locations
	}
	if locations == nil {
		locations = []config.LocationData{}
	}
	h.write(w, req, http.StatusOK, locations)
}

// SaveLocations replaces the rider's spots
func (h *Handlers) SaveLocations(w http.ResponseWriter, req *http.Request) {
	var locations []config.LocationData
	if err := decodeBody(w, req, &locations); err != nil {
		h.fail(w, req, http.StatusBadRequest, "malformed location list: "+err.Error())
		return
	}
	seen := map[string]bool{}
	for _, loc := range locations {
		if loc.ID == "" || seen[loc.ID] {
			h.fail(w, req, http.StatusBadRequest, "every location needs a unique id")
			return
		}
		seen[loc.ID] = true
	}

	if err := h.controller.store.SaveLocations(req.Context(), userFromContext(req.Context()), locations); err != nil {
		h.storeError(w, req, err)
		return
	}
	h.write(w, req, http.StatusOK, locations)
}

// GetCurrentLocation returns the id of the spot the rider last selected
func (h *Handlers) GetCurrentLocation(w http.ResponseWriter, req *http.Request) {
	id, err := h.controller.store.GetCurrentLocation(req.Context(), userFromContext(req.Context()))
	if err != nil {
		h.storeError(w, req, err)
		return
	}
	h.write(w, req, http.StatusOK, currentLocationBody{ID: id})
}

// SaveCurrentLocation selects a spot
func (h *Handlers) SaveCurrentLocation(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	user := userFromContext(ctx)

	var body currentLocationBody
	if err := decodeBody(w, req, &body); err != nil || body.ID == "" {
		h.fail(w, req, http.StatusBadRequest, "location id required")
		return
	}

	_, ok, err := h.controller.findLocation(ctx, user, body.ID)
	if err != nil {
		h.storeError(w, req, err)
		return
	}
	if !ok {
		h.fail(w, req, http.StatusNotFound, "unknown location: "+body.ID)
		return
	}

	if err := h.controller.store.SaveCurrentLocation(ctx, user, body.ID); err != nil {
		h.storeError(w, req, err)
		return
	}
	h.write(w, req, http.StatusOK, body)
}

// StravaAuthorize returns the URL the rider visits to connect Strava
func (h *Handlers) StravaAuthorize(w http.ResponseWriter, req *http.Request) {
	if h.controller.strava == nil {
		h.fail(w, req, http.StatusNotFound, "strava is not configured")
		return
	}
	state := uuid.NewString()
	h.write(w, req, http.StatusOK, map[string]string{
		"url":   h.controller.strava.AuthorizeURL(state),
		"state": state,
	})
}

// StravaCallback completes the OAuth handshake with the code Strava returned
func (h *Handlers) StravaCallback(w http.ResponseWriter, req *http.Request) {
	if h.controller.strava == nil {
		h.fail(w, req, http.StatusNotFound, "strava is not configured")
		return
	}

	var body stravaCallbackBody
	if err := decodeBody(w, req, &body); err != nil || body.Code == "" {
		h.fail(w, req, http.StatusBadRequest, "authorization code required")
		return
	}

	athlete, err := h.controller.strava.Connect(req.Context(), userFromContext(req.Context()), body.Code)
	if err != nil {
		h.controller.logger.Warnw("strava connect failed", "error", err)
		h.fail(w, req, http.StatusBadGateway, "failed to connect strava")
		return
	}
	h.write(w, req, http.StatusOK, map[string]any{"athlete": athlete})
}

// Backup exports everything the rider has stored
func (h *Handlers) Backup(w http.ResponseWriter, req *http.Request) {
	b, err := journal.Export(req.Context(), h.controller.store, userFromContext(req.Context()))
	if err != nil {
		h.storeError(w, req, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="foilcast-backup.json"`)
	h.write(w, req, http.StatusOK, b)
}

// Restore imports a backup file
func (h *Handlers) Restore(w http.ResponseWriter, req *http.Request) {
	var b journal.Backup
	if err := decodeBody(w, req, &b); err != nil {
		h.fail(w, req, http.StatusBadRequest, "malformed backup: "+err.Error())
		return
	}

	summary, err := journal.Import(req.Context(), h.controller.store, userFromContext(req.Context()), b)
	if err != nil {
		h.storeError(w, req, err)
		return
	}
	h.write(w, req, http.StatusOK, summary)
}
