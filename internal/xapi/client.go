// Package xapi is a read-only client for the PBX administrative REST API
// (the "XAPI"). It only issues the GETs the prompt audit needs, each with a
// narrow OData $select so responses stay small.
package xapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/time/rate"
)

// Client talks to one PBX instance with a fixed bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Client for the given base URL (scheme included, no
// trailing slash) and bearer token. Requests are paced so a snapshot run
// never hammers the admin API, and the token's claims are inspected once so
// an already-expired token is called out before the first request fails.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(10), 5),
	}
	c.inspectToken()
	return c
}

// inspectToken decodes the bearer token without verifying its signature
// (the PBX holds the key, not us) and logs when it is expired or opaque.
func (c *Client) inspectToken() {
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(c.token, &claims)
	if err != nil {
		slog.Debug("bearer token is not a decodable jwt", "error", err)
		return
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		slog.Warn("bearer token is expired, requests will likely be rejected",
			"expired_at", claims.ExpiresAt.Time)
	}
}

// get issues a single GET against path with the given query parameters and
// decodes the JSON response into out. Any non-2xx status is an error; the
// caller treats that as fatal to the run.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response for %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, snippet(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response for %s: %w", path, err)
	}
	return nil
}

// snippet trims an error response body down to something loggable.
func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// CustomPrompts lists the custom prompt files known to the PBX.
func (c *Client) CustomPrompts(ctx context.Context) ([]Prompt, error) {
	params := url.Values{"$select": {"DisplayName"}}
	var out list[Prompt]
	if err := c.get(ctx, "/xapi/v1/CustomPrompts", params, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// Playlists lists music-on-hold playlists and their member files.
func (c *Client) Playlists(ctx context.Context) ([]Playlist, error) {
	params := url.Values{"$select": {"Name,Files"}}
	var out list[Playlist]
	if err := c.get(ctx, "/xapi/v1/Playlists", params, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// Receptionists lists digital receptionists with their forwards expanded.
func (c *Client) Receptionists(ctx context.Context) ([]Receptionist, error) {
	params := url.Values{
		"$select": {"Name,Number,PromptFilename"},
		"$expand": {"Forwards($select=Input,CustomData)"},
	}
	var out list[Receptionist]
	if err := c.get(ctx, "/xapi/v1/Receptionists", params, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// Queues lists call queues with their audio fields and condition routes.
func (c *Client) Queues(ctx context.Context) ([]Queue, error) {
	params := url.Values{
		"$select": {"Name,Number,IntroFile,OnHoldFile,GreetingFile,HolidaysRoute/Prompt,OutOfOfficeRoute/Prompt,BreakRoute/Prompt"},
	}
	var out list[Queue]
	if err := c.get(ctx, "/xapi/v1/Queues", params, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// Groups lists extension groups with their condition routes. The synthetic
// favourites group the PBX maintains internally is filtered out server-side.
func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	params := url.Values{
		"$select": {"Name,Number,OfficeRoute/Prompt,OutOfOfficeRoute/Prompt,BreakRoute/Prompt,HolidaysRoute/Prompt"},
		"$filter": {"not startsWith(Name, '___FAVORITES___')"},
	}
	var out list[Group]
	if err := c.get(ctx, "/xapi/v1/Groups", params, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// ConferenceSettings fetches the conference bridge settings object.
func (c *Client) ConferenceSettings(ctx context.Context) (*ConferenceSettings, error) {
	params := url.Values{"$select": {"Extension,MusicOnHold"}}
	var out ConferenceSettings
	if err := c.get(ctx, "/xapi/v1/ConferenceSettings", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MusicOnHoldSettings fetches the system music-on-hold slot assignments.
func (c *Client) MusicOnHoldSettings(ctx context.Context) (MusicOnHoldSettings, error) {
	fields := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		fields = append(fields, fmt.Sprintf("MusicOnHold%d", i))
	}
	params := url.Values{"$select": {strings.Join(fields, ",")}}
	var out MusicOnHoldSettings
	if err := c.get(ctx, "/xapi/v1/MusicOnHoldSettings", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CallParkingSettings fetches the call parking settings object.
func (c *Client) CallParkingSettings(ctx context.Context) (*CallParkingSettings, error) {
	params := url.Values{"$select": {"MusicOnHold"}}
	var out CallParkingSettings
	if err := c.get(ctx, "/xapi/v1/CallParkingSettings", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EmergencyNotificationsSettings fetches the emergency notification prompt
// settings object.
func (c *Client) EmergencyNotificationsSettings(ctx context.Context) (*EmergencyNotificationsSettings, error) {
	params := url.Values{"$select": {"EmergencyPlayPrompt"}}
	var out EmergencyNotificationsSettings
	if err := c.get(ctx, "/xapi/v1/EmergencyNotificationsSettings", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CallFlowApps lists call flow designer apps and, for each app with an ID,
// follows up with the Pbx.GetFiles() action so the app's deployed files come
// back on the same record. Apps without an ID get an empty file list.
func (c *Client) CallFlowApps(ctx context.Context) ([]CallFlowApp, error) {
	params := url.Values{"$select": {"Id,Name,Number"}}
	var out list[CallFlowApp]
	if err := c.get(ctx, "/xapi/v1/CallFlowApps", params, &out); err != nil {
		return nil, err
	}

	for i := range out.Value {
		app := &out.Value[i]
		if app.ID == nil {
			app.Files = []string{}
			continue
		}
		var files list[string]
		path := fmt.Sprintf("/xapi/v1/CallFlowApps(%d)/Pbx.GetFiles()", *app.ID)
		if err := c.get(ctx, path, nil, &files); err != nil {
			return nil, err
		}
		app.Files = files.Value
		if app.Files == nil {
			app.Files = []string{}
		}
	}
	return out.Value, nil
}
