package geocode

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/zachmoshe/il-elections/internal/store"
)

// memoOp is the cache namespace for address geocoding.
const memoOp = "geocode_address"

// cachedResult is the serialized memo payload. A no-match is cached as a
// stable negative result; provider failures are never cached.
type cachedResult struct {
	Found bool    `json:"found"`
	Lat   float64 `json:"lat,omitempty"`
	Lng   float64 `json:"lng,omitempty"`
}

// CachedClient composes a provider with the durable memo store and an
// optional known-addresses override table.
type CachedClient struct {
	client Client
	memo   *store.Memo
	known  map[string]Point
}

// CachedOption configures a CachedClient.
type CachedOption func(*CachedClient)

// WithKnownAddresses supplies manually curated address overrides that are
// consulted before both the cache and the provider.
func WithKnownAddresses(known map[string]Point) CachedOption {
	return func(c *CachedClient) {
		c.known = known
	}
}

// NewCachedClient wraps client with the memo cache. With cacheOnly set, any
// address absent from the cache fails with store.ErrCacheMissForbidden
// instead of reaching the provider.
func NewCachedClient(client Client, s *store.Store, cacheOnly bool, opts ...CachedOption) *CachedClient {
	c := &CachedClient{
		client: client,
		memo:   store.NewMemo(s, memoOp, cacheOnly),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode implements Client.
func (c *CachedClient) Geocode(ctx context.Context, address string) (*Point, error) {
	address = CleanAddress(address)
	if address == "" {
		return nil, nil
	}

	if p, ok := c.known[address]; ok {
		return &Point{Lat: p.Lat, Lng: p.Lng}, nil
	}

	data, err := c.memo.GetOrCompute(ctx, address, func(ctx context.Context) ([]byte, error) {
		p, err := c.client.Geocode(ctx, address)
		if err != nil {
			return nil, err
		}
		res := cachedResult{}
		if p != nil {
			res = cachedResult{Found: true, Lat: p.Lat, Lng: p.Lng}
		} else {
			zap.L().Debug("geocode no match", zap.String("address", address))
		}
		return json.Marshal(res)
	})
	if err != nil {
		return nil, err
	}

	var res cachedResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, eris.Wrap(err, "geocode: decode cached result")
	}
	if !res.Found {
		return nil, nil
	}
	return &Point{Lat: res.Lat, Lng: res.Lng}, nil
}
