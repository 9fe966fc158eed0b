// Package geocode provides forward geocoding of listing addresses via
// Nominatim (default) or the Google Geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client geocodes free-form addresses.
type Client interface {
	// Geocode resolves an address to coordinates. A nil error with
	// Matched=false means the provider answered but found nothing.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude  float64
	Longitude float64
	Matched   bool
	Source    string          // provider name
	Raw       json.RawMessage // full provider response, stored as geocoded_payload
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second budget for provider calls.
// Nominatim's usage policy asks for at most one request per second.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBaseURL overrides the provider endpoint, used by tests.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = u
	}
}

// WithAPIKey sets the provider API key (required for google).
func WithAPIKey(key string) Option {
	return func(g *geocoder) {
		g.apiKey = key
	}
}

type geocoder struct {
	provider   string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Client for the named provider ("nominatim" or
// "google").
func NewClient(provider string, opts ...Option) (Client, error) {
	g := &geocoder{
		provider:   provider,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(g)
	}

	switch provider {
	case "nominatim", "":
		g.provider = "nominatim"
		if g.baseURL == "" {
			g.baseURL = nominatimBaseURL
		}
	case "google":
		if g.apiKey == "" {
			return nil, eris.New("geocode: google provider requires an api key")
		}
		if g.baseURL == "" {
			g.baseURL = googleBaseURL
		}
	default:
		return nil, eris.Errorf("geocode: unknown provider %q", provider)
	}
	return g, nil
}

// Geocode implements Client.
func (g *geocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	if address == "" {
		return &Result{Matched: false, Source: g.provider}, nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	switch g.provider {
	case "google":
		return g.geocodeGoogle(ctx, address)
	default:
		return g.geocodeNominatim(ctx, address)
	}
}
