// Package strava talks to the Strava activity API: OAuth token handling,
// listing a rider's recent activities and downloading their sensor streams.
package strava

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/foilcast/internal/apiclient"
	"github.com/chrissnell/foilcast/internal/foil"
	"github.com/chrissnell/foilcast/pkg/config"
)

const (
	DefaultAPIEndpoint   = "https://www.strava.com/api/v3"
	DefaultOAuthEndpoint = "https://www.strava.com/oauth"

	// Strava's default application limit
	defaultRequestsPer15Min = 100

	scope = "read,activity:read_all"
)

var (
	// ErrUnauthorized means the stored token was rejected and the rider must reconnect.
	ErrUnauthorized = errors.New("strava rejected the access token")

	// ErrNoToken means the user has never connected a Strava account.
	ErrNoToken = errors.New("no strava token stored for user")
)

// Athlete is the subset of the athlete profile returned with a token
type Athlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
}

// Token is an OAuth token pair. ExpiresAt is a Unix timestamp.
type Token struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresAt    int64    `json:"expires_at"`
	Athlete      *Athlete `json:"athlete,omitempty"`
}

// Expired reports whether the access token can no longer be used at now
func (t Token) Expired(now time.Time) bool {
	return !now.Before(time.Unix(t.ExpiresAt, 0))
}

// Activity is a recorded outing as listed by the athlete activities endpoint
type Activity struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	SportType    string    `json:"sport_type"`
	StartDate    time.Time `json:"start_date"`
	Distance     float64   `json:"distance"`    // meters
	MovingTime   int       `json:"moving_time"` // seconds
	ElapsedTime  int       `json:"elapsed_time"`
	MaxSpeed     float64   `json:"max_speed"` // m/s
	AverageSpeed float64   `json:"average_speed"`
	Map          struct {
		SummaryPolyline string `json:"summary_polyline"`
	} `json:"map"`
}

// TokenStore persists tokens per user
type TokenStore interface {
	LoadStravaToken(ctx context.Context, userID string) (*Token, error)
	SaveStravaToken(ctx context.Context, userID string, token Token) error
}

// Client is a Strava API client
type Client struct {
	cfg   config.StravaData
	api   *apiclient.Client
	store TokenStore
	now   func() time.Time
}

// NewClient creates a Strava client. store may be nil if only raw token
// operations are used.
func NewClient(cfg config.StravaData, store TokenStore, opts ...apiclient.Option) *Client {
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = DefaultAPIEndpoint
	}
	if cfg.OAuthEndpoint == "" {
		cfg.OAuthEndpoint = DefaultOAuthEndpoint
	}
	if cfg.RequestsPer15Min == 0 {
		cfg.RequestsPer15Min = defaultRequestsPer15Min
	}

	opts = append([]apiclient.Option{apiclient.WithRateLimit(cfg.RequestsPer15Min, 15*time.Minute)}, opts...)

	return &Client{
		cfg:   cfg,
		api:   apiclient.New("strava", opts...),
		store: store,
		now:   time.Now,
	}
}

// AuthorizeURL is where the rider is sent to grant access
func (c *Client) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", c.cfg.RedirectURI)
	q.Set("approval_prompt", "force")
	q.Set("scope", scope)
	if state != "" {
		q.Set("state", state)
	}
	return strings.TrimRight(c.cfg.OAuthEndpoint, "/") + "/authorize?" + q.Encode()
}

// ExchangeCode trades an authorization code for a token
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	return c.tokenRequest(ctx, map[string]string{
		"code":       code,
		"grant_type": "authorization_code",
	})
}

// Refresh obtains a new access token from a refresh token
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	return c.tokenRequest(ctx, map[string]string{
		"refresh_token": refreshToken,
		"grant_type":    "refresh_token",
	})
}

func (c *Client) tokenRequest(ctx context.Context, params map[string]string) (*Token, error) {
	params["client_id"] = c.cfg.ClientID
	params["client_secret"] = c.cfg.ClientSecret

	payload, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(c.cfg.OAuthEndpoint, "/")+"/token", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.api.Do(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("failed to exchange token: response carried no access token")
	}
	return &token, nil
}

// Connect completes the OAuth flow for a user and stores the token
func (c *Client) Connect(ctx context.Context, userID, code string) (*Athlete, error) {
	token, err := c.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := c.store.SaveStravaToken(ctx, userID, *token); err != nil {
		return nil, fmt.Errorf("saving strava token: %w", err)
	}
	return token.Athlete, nil
}

// AccessToken returns a usable access token for the user, refreshing and
// storing a new one when the current token has expired.
func (c *Client) AccessToken(ctx context.Context, userID string) (string, error) {
	token, err := c.store.LoadStravaToken(ctx, userID)
	if err != nil {
		return "", err
	}
	if token == nil {
		return "", ErrNoToken
	}

	if !token.Expired(c.now()) {
		return token.AccessToken, nil
	}

	refreshed, err := c.Refresh(ctx, token.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refreshing strava token: %w", err)
	}
	// Refresh responses don't include the athlete
	if refreshed.Athlete == nil {
		refreshed.Athlete = token.Athlete
	}
	if err := c.store.SaveStravaToken(ctx, userID, *refreshed); err != nil {
		return "", fmt.Errorf("saving refreshed strava token: %w", err)
	}
	return refreshed.AccessToken, nil
}

// ListActivities returns the athlete's most recent activities, newest first
func (c *Client) ListActivities(ctx context.Context, accessToken string, perPage int) ([]Activity, error) {
	if perPage <= 0 {
		perPage = 10
	}

	q := url.Values{}
	q.Set("per_page", strconv.Itoa(perPage))

	var activities []Activity
	if err := c.get(ctx, accessToken, "/athlete/activities?"+q.Encode(), &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// GetStreams downloads the time, speed, altitude and position streams of an activity
func (c *Client) GetStreams(ctx context.Context, accessToken string, activityID int64) (*foil.StreamBundle, error) {
	q := url.Values{}
	q.Set("keys", strings.Join([]string{foil.StreamTime, foil.StreamVelocity, foil.StreamAltitude, foil.StreamLatLng}, ","))
	q.Set("key_by_type", "true")

	var bundle foil.StreamBundle
	path := fmt.Sprintf("/activities/%d/streams?%s", activityID, q.Encode())
	if err := c.get(ctx, accessToken, path, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (c *Client) get(ctx context.Context, accessToken, path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(c.cfg.APIEndpoint, "/")+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	body, err := c.api.Do(ctx, req)
	if err != nil {
		return mapError(err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding strava response for %s: %w", req.URL.Path, err)
	}
	return nil
}

func mapError(err error) error {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return err
}
