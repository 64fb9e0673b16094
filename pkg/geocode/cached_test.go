package geocode

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zachmoshe/il-elections/internal/store"
)

// fakeClient serves from a fixed address table and counts provider calls.
type fakeClient struct {
	points map[string]Point
	err    error
	calls  int
}

func (f *fakeClient) Geocode(_ context.Context, address string) (*Point, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.points[address]; ok {
		return &Point{Lat: p.Lat, Lng: p.Lng}, nil
	}
	return nil, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCachedClient_ProviderCalledOnce(t *testing.T) {
	s := newTestStore(t)
	fake := &fakeClient{points: map[string]Point{"כהן רם יהוד": {Lat: 32.03, Lng: 34.89}}}
	c := NewCachedClient(fake, s, false)
	ctx := context.Background()

	p1, err := c.Geocode(ctx, "כהן רם, יהוד")
	require.NoError(t, err)
	p2, err := c.Geocode(ctx, "כהן רם יהוד")
	require.NoError(t, err)

	require.NotNil(t, p1)
	require.NotNil(t, p2)
	assert.Equal(t, *p1, *p2)
	assert.Equal(t, 1, fake.calls, "structurally equal addresses share a cache entry")
}

func TestCachedClient_NoMatchIsCached(t *testing.T) {
	s := newTestStore(t)
	fake := &fakeClient{}
	c := NewCachedClient(fake, s, false)
	ctx := context.Background()

	p, err := c.Geocode(ctx, "nowhere")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = c.Geocode(ctx, "nowhere")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, 1, fake.calls, "negative results are stable and cached")
}

func TestCachedClient_ServiceErrorNotCached(t *testing.T) {
	s := newTestStore(t)
	fake := &fakeClient{err: eris.Wrap(ErrServiceUnavailable, "quota")}
	c := NewCachedClient(fake, s, false)
	ctx := context.Background()

	_, err := c.Geocode(ctx, "addr")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrServiceUnavailable))

	// Provider recovers; the failure must not have been cached.
	fake.err = nil
	fake.points = map[string]Point{"addr": {Lat: 1, Lng: 2}}
	p, err := c.Geocode(ctx, "addr")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 2, fake.calls)
}

func TestCachedClient_CacheOnly_NoExternalCalls(t *testing.T) {
	s := newTestStore(t)
	fake := &fakeClient{points: map[string]Point{"addr": {Lat: 1, Lng: 2}}}
	c := NewCachedClient(fake, s, true)

	_, err := c.Geocode(context.Background(), "addr")
	require.Error(t, err)
	assert.True(t, eris.Is(err, store.ErrCacheMissForbidden))
	assert.Zero(t, fake.calls)
}

func TestCachedClient_KnownAddressesBypassProvider(t *testing.T) {
	s := newTestStore(t)
	fake := &fakeClient{}
	known := map[string]Point{"ככר רבין תל אביב": {Lat: 32.08, Lng: 34.781}}
	c := NewCachedClient(fake, s, false, WithKnownAddresses(known))

	p, err := c.Geocode(context.Background(), "ככר רבין, תל אביב")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.InDelta(t, 32.08, p.Lat, 1e-9)
	assert.Zero(t, fake.calls)
}

func TestCachedClient_EmptyAddress(t *testing.T) {
	s := newTestStore(t)
	fake := &fakeClient{}
	c := NewCachedClient(fake, s, false)

	p, err := c.Geocode(context.Background(), " , ")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Zero(t, fake.calls)
}

func TestLoadKnownAddresses(t *testing.T) {
	csv := strings.Join([]string{
		"# curated overrides",
		`32.08,34.781,"ככר רבין, תל אביב"`,
		"31.778,35.235,כיכר ספרא ירושלים",
	}, "\n")

	known, err := LoadKnownAddresses(strings.NewReader(csv), "יישוב")
	require.NoError(t, err)

	p, ok := known["ככר רבין תל אביב"]
	require.True(t, ok)
	assert.InDelta(t, 32.08, p.Lat, 1e-9)

	_, ok = known["יישוב ככר רבין תל אביב"]
	assert.True(t, ok, "prefixed duplicate present")

	_, ok = known["כיכר ספרא ירושלים"]
	assert.True(t, ok)
}

func TestLoadKnownAddresses_BadCoordinate(t *testing.T) {
	_, err := LoadKnownAddresses(strings.NewReader("north,east,addr"))
	assert.Error(t, err)
}
