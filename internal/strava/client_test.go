package strava

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/foilcast/internal/foil"
	"github.com/chrissnell/foilcast/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTokenStore struct {
	mu     sync.Mutex
	tokens map[string]Token
}

func (m *memTokenStore) LoadStravaToken(_ context.Context, userID string) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[userID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *memTokenStore) SaveStravaToken(_ context.Context, userID string, token Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = map[string]Token{}
	}
	m.tokens[userID] = token
	return nil
}

func newTestClient(t *testing.T, h http.Handler, store TokenStore) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return NewClient(config.StravaData{
		ClientID:      "123",
		ClientSecret:  "shh",
		RedirectURI:   "http://localhost/strava/callback",
		APIEndpoint:   srv.URL + "/api/v3",
		OAuthEndpoint: srv.URL + "/oauth",
	}, store)
}

func TestAuthorizeURL(t *testing.T) {
	c := NewClient(config.StravaData{ClientID: "123", RedirectURI: "http://localhost/cb"}, nil)

	u, err := url.Parse(c.AuthorizeURL("xyz"))
	require.NoError(t, err)

	assert.Equal(t, "www.strava.com", u.Host)
	assert.Equal(t, "/oauth/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "123", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "force", q.Get("approval_prompt"))
	assert.Equal(t, "read,activity:read_all", q.Get("scope"))
	assert.Equal(t, "xyz", q.Get("state"))
}

func TestConnectStoresToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "authorization_code", body["grant_type"])
		assert.Equal(t, "the-code", body["code"])
		assert.Equal(t, "shh", body["client_secret"])

		w.Write([]byte(`{"access_token":"a1","refresh_token":"r1","expires_at":4102444800,"athlete":{"id":42,"firstname":"Kai"}}`))
	})

	store := &memTokenStore{}
	c := newTestClient(t, mux, store)

	athlete, err := c.Connect(context.Background(), "user-1", "the-code")
	require.NoError(t, err)
	require.NotNil(t, athlete)
	assert.Equal(t, int64(42), athlete.ID)

	tok, _ := store.LoadStravaToken(context.Background(), "user-1")
	require.NotNil(t, tok)
	assert.Equal(t, "a1", tok.AccessToken)
}

func TestAccessTokenRefreshesExpired(t *testing.T) {
	var refreshes int
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		refreshes++
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh_token", body["grant_type"])
		assert.Equal(t, "r-old", body["refresh_token"])
		w.Write([]byte(`{"access_token":"a-new","refresh_token":"r-new","expires_at":4102444800}`))
	})

	store := &memTokenStore{}
	store.SaveStravaToken(context.Background(), "u", Token{
		AccessToken:  "a-old",
		RefreshToken: "r-old",
		ExpiresAt:    time.Now().Add(-time.Minute).Unix(),
		Athlete:      &Athlete{ID: 7},
	})

	c := newTestClient(t, mux, store)

	access, err := c.AccessToken(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, "a-new", access)
	assert.Equal(t, 1, refreshes)

	saved, _ := store.LoadStravaToken(context.Background(), "u")
	assert.Equal(t, "r-new", saved.RefreshToken)
	require.NotNil(t, saved.Athlete, "athlete should survive a refresh")
	assert.Equal(t, int64(7), saved.Athlete.ID)

	// Fresh token is reused without another round trip
	access, err = c.AccessToken(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, "a-new", access)
	assert.Equal(t, 1, refreshes)
}

func TestAccessTokenWithoutConnection(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler(), &memTokenStore{})
	_, err := c.AccessToken(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestListActivities(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/athlete/activities", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "5", r.URL.Query().Get("per_page"))
		w.Write([]byte(`[
			{"id":1001,"name":"Morning Wing","sport_type":"Windsurf","start_date":"2024-03-02T08:15:00Z",
			 "distance":12345.6,"moving_time":3600,"elapsed_time":4000,"max_speed":9.1,"average_speed":5.2,
			 "map":{"summary_polyline":"_p~iF~ps|U_ulLnnqC"}}
		]`))
	})

	c := newTestClient(t, mux, nil)
	acts, err := c.ListActivities(context.Background(), "tok", 5)
	require.NoError(t, err)
	require.Len(t, acts, 1)

	a := acts[0]
	assert.Equal(t, int64(1001), a.ID)
	assert.Equal(t, "Windsurf", a.SportType)
	assert.Equal(t, 3600, a.MovingTime)
	assert.Equal(t, time.Date(2024, 3, 2, 8, 15, 0, 0, time.UTC), a.StartDate)
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC", a.Map.SummaryPolyline)
}

func TestGetStreams(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/activities/1001/streams", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "true", q.Get("key_by_type"))
		assert.Contains(t, q.Get("keys"), "velocity_smooth")
		w.Write([]byte(`{
			"time":{"data":[0,1,2]},
			"velocity_smooth":{"data":[0,1.2,3.4]},
			"altitude":{"data":[1.0,0.9,0.5]}
		}`))
	})

	c := newTestClient(t, mux, nil)
	bundle, err := c.GetStreams(context.Background(), "tok", 1001)
	require.NoError(t, err)

	s, err := foil.Normalize(bundle)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1.2, 3.4}, s.Velocity)
	assert.Equal(t, 3, s.Len())
}

func TestUnauthorizedIsMapped(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/athlete/activities", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Authorization Error"}`, http.StatusUnauthorized)
	})

	c := newTestClient(t, mux, nil)
	_, err := c.ListActivities(context.Background(), "stale", 1)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
