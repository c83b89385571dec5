package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// ErrStatus is returned when the API answers with a non-OK status field.
type ErrStatus struct {
	Status string
}

func (e *ErrStatus) Error() string {
	return fmt.Sprintf("maps api returned status %q", e.Status)
}

// Client talks to the Google Maps geocoding and places endpoints. Calls are
// bounded by the HTTP client timeout and are never retried; callers degrade
// the affected source instead.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithBaseURL points the client at a different host, used in tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode resolves a free-text address to coordinates and address parts.
func (c *Client) Geocode(ctx context.Context, address string) (*LocationDetails, error) {
	params := url.Values{
		"address": {address},
		"key":     {c.apiKey},
	}
	return c.geocodeRequest(ctx, params)
}

// ReverseGeocode resolves coordinates to a formatted address.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (*LocationDetails, error) {
	params := url.Values{
		"latlng": {fmt.Sprintf("%f,%f", lat, lng)},
		"key":    {c.apiKey},
	}
	return c.geocodeRequest(ctx, params)
}

func (c *Client) geocodeRequest(ctx context.Context, params url.Values) (*LocationDetails, error) {
	var resp geocodeResponse
	if err := c.getJSON(ctx, "/geocode/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" || len(resp.Results) == 0 {
		return nil, &ErrStatus{Status: resp.Status}
	}

	result := resp.Results[0]
	details := &LocationDetails{
		Latitude:         result.Geometry.Location.Lat,
		Longitude:        result.Geometry.Location.Lng,
		FormattedAddress: result.FormattedAddress,
	}
	for _, comp := range result.AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "locality":
				details.City = comp.LongName
			case "administrative_area_level_1":
				details.State = comp.LongName
			case "country":
				details.Country = comp.LongName
			}
		}
	}
	return details, nil
}

// SearchNearby queries the places nearby-search endpoint around a point.
func (c *Client) SearchNearby(ctx context.Context, lat, lng float64, radius int, keyword string) ([]Place, error) {
	params := url.Values{
		"location": {fmt.Sprintf("%f,%f", lat, lng)},
		"radius":   {fmt.Sprintf("%d", radius)},
		"keyword":  {keyword},
		"key":      {c.apiKey},
	}

	var resp nearbyResponse
	if err := c.getJSON(ctx, "/place/nearbysearch/json", params, &resp); err != nil {
		return nil, err
	}
	// ZERO_RESULTS is a successful search that found nothing.
	if resp.Status != "OK" && resp.Status != "ZERO_RESULTS" {
		return nil, &ErrStatus{Status: resp.Status}
	}
	return resp.Results, nil
}

// Autocomplete proxies the places autocomplete endpoint and returns the raw
// payload for the frontend to consume untouched.
func (c *Client) Autocomplete(ctx context.Context, input string) (json.RawMessage, error) {
	params := url.Values{
		"input":      {input},
		"types":      {"establishment|geocode"},
		"components": {"country:ng"},
		"key":        {c.apiKey},
	}
	return c.getRaw(ctx, "/place/autocomplete/json", params)
}

// PlaceDetails proxies the place details endpoint, returning the raw payload.
func (c *Client) PlaceDetails(ctx context.Context, placeID string) (json.RawMessage, error) {
	params := url.Values{
		"place_id": {placeID},
		"fields":   {"geometry,formatted_address"},
		"key":      {c.apiKey},
	}
	return c.getRaw(ctx, "/place/details/json", params)
}

// RawGeocode proxies reverse geocoding, returning the raw payload.
func (c *Client) RawGeocode(ctx context.Context, lat, lng float64) (json.RawMessage, error) {
	params := url.Values{
		"latlng": {fmt.Sprintf("%f,%f", lat, lng)},
		"key":    {c.apiKey},
	}
	return c.getRaw(ctx, "/geocode/json", params)
}

// PhotoURL builds a fully-formed image URL from a places photo reference.
// No network call is made.
func (c *Client) PhotoURL(photoReference string) string {
	if photoReference == "" {
		return ""
	}
	return fmt.Sprintf("%s/place/photo?maxwidth=400&photo_reference=%s&key=%s",
		c.baseURL, url.QueryEscape(photoReference), url.QueryEscape(c.apiKey))
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	raw, err := c.getRaw(ctx, path, params)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) getRaw(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("maps api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("maps api responded with %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode maps api response: %w", err)
	}
	return raw, nil
}
