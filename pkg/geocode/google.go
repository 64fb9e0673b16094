package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultGoogleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results []googleResult `json:"results"`
	Status  string         `json:"status"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// GoogleClient geocodes through the Google Geocoding API.
type GoogleClient struct {
	apiKey     string
	baseURL    string
	region     string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// GoogleOption configures a GoogleClient.
type GoogleOption func(*GoogleClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) GoogleOption {
	return func(g *GoogleClient) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit for provider calls.
// Sub-1 rates keep a burst of one so single requests can still pass.
func WithRateLimit(rps float64) GoogleOption {
	return func(g *GoogleClient) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(u string) GoogleOption {
	return func(g *GoogleClient) {
		g.baseURL = u
	}
}

// WithRegion sets the region bias code sent with every request.
func WithRegion(region string) GoogleOption {
	return func(g *GoogleClient) {
		g.region = region
	}
}

// NewGoogleClient creates a Google geocoding client. The client biases
// results to Israel and requests Hebrew output by default.
func NewGoogleClient(apiKey string, opts ...GoogleOption) *GoogleClient {
	g := &GoogleClient{
		apiKey:     apiKey,
		baseURL:    defaultGoogleGeocodeURL,
		region:     "il",
		language:   "iw",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode implements Client. A zero-match answer returns (nil, nil); quota,
// auth and transport failures return ErrServiceUnavailable so they are never
// mistaken for a stable no-match.
func (g *GoogleClient) Geocode(ctx context.Context, address string) (*Point, error) {
	if g.apiKey == "" {
		return nil, eris.Wrap(ErrServiceUnavailable, "google api key not configured")
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit wait")
	}

	params := url.Values{
		"address":  {address},
		"key":      {g.apiKey},
		"region":   {g.region},
		"language": {g.language},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(ErrServiceUnavailable, "request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Wrapf(ErrServiceUnavailable, "provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(ErrServiceUnavailable, "read body: %v", err)
	}

	var googleResp googleGeocodeResponse
	if err := json.Unmarshal(body, &googleResp); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}

	switch googleResp.Status {
	case "OK":
		if len(googleResp.Results) == 0 {
			return nil, nil
		}
		// First result only. The provider returns multiple results just on
		// ambiguous queries.
		loc := googleResp.Results[0].Geometry.Location
		return &Point{Lat: loc.Lat, Lng: loc.Lng}, nil
	case "ZERO_RESULTS":
		return nil, nil
	default:
		// OVER_QUERY_LIMIT, OVER_DAILY_LIMIT, REQUEST_DENIED, UNKNOWN_ERROR, ...
		return nil, eris.Wrapf(ErrServiceUnavailable, "provider status %s", googleResp.Status)
	}
}
