// Package geocode resolves free-text addresses to coordinates via the Google
// Geocoding API, fronted by the durable memo cache.
package geocode

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// Point is a resolved coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// Client resolves a free-text address to a coordinate.
// A nil Point with a nil error means the provider found no match.
type Client interface {
	Geocode(ctx context.Context, address string) (*Point, error)
}

// ErrServiceUnavailable marks transport, auth or quota failures from the
// provider. These are retryable and must never be conflated with a no-match.
var ErrServiceUnavailable = eris.New("geocode: service unavailable")

// Hebrew letters plus latin alphanumerics; everything else collapses to a space.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9\x{0590}-\x{05ff}]+`)

// CleanAddress normalizes a raw address string: punctuation and separator
// runs become single spaces, surrounding whitespace is dropped.
func CleanAddress(address string) string {
	return strings.TrimSpace(nonAlphanumeric.ReplaceAllString(address, " "))
}
