package pipeline

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zachmoshe/il-elections/internal/boundary"
	"github.com/zachmoshe/il-elections/internal/model"
	"github.com/zachmoshe/il-elections/pkg/geocode"
)

// Locality ids that carry no geography (duplicate and external votes).
// Ballots under these ids are expected to stay unresolved.
var nonGeographicalLocalityIDs = map[int]bool{
	0:     true,
	875:   true,
	9999:  true,
	99999: true,
}

// Prefix used to retry a locality lookup when the bare name does not resolve.
const villagePrefix = "יישוב"

// Fake ballot id assigned to synthesized metadata rows for localities that
// appear in the votes file only.
const syntheticBallotID = "0.0"

const defaultLocalityConcurrency = 8

// Stats counts what happened to each ballot during enrichment.
type Stats struct {
	NumBallots            int `json:"num_ballots"`
	NumExact              int `json:"num_exact"`
	NumFallback           int `json:"num_fallback"`
	NumUnresolved         int `json:"num_unresolved"`
	ServiceErrors         int `json:"service_errors"`
	SynthesizedLocalities int `json:"synthesized_localities"`
}

// Enricher joins ballot votes with their metadata and resolves each ballot to
// a validated coordinate.
type Enricher struct {
	geocoder      geocode.Client
	boundaries    *boundary.Index
	maxDistanceKM float64
	concurrency   int
	log           *zap.Logger
}

// NewEnricher builds an Enricher. boundaries may hold zero localities, in
// which case validation falls back to locality-center distance only.
func NewEnricher(geocoder geocode.Client, boundaries *boundary.Index, maxDistanceKM float64) *Enricher {
	return &Enricher{
		geocoder:      geocoder,
		boundaries:    boundaries,
		maxDistanceKM: maxDistanceKM,
		concurrency:   defaultLocalityConcurrency,
		log:           zap.L().With(zap.String("component", "enricher")),
	}
}

// Enrich resolves every vote record to an enriched ballot, in input order.
// Ballots that cannot be placed are returned with a nil coordinate, never
// dropped.
func (e *Enricher) Enrich(ctx context.Context, votes []model.BallotVotes, metadata []model.BallotMetadata) ([]model.EnrichedBallot, *Stats, error) {
	stats := &Stats{NumBallots: len(votes)}

	metadata = e.withSynthesizedLocalities(votes, metadata, stats)

	coords, err := e.resolveMetadata(ctx, metadata, stats)
	if err != nil {
		return nil, nil, err
	}

	metaByKey := make(map[model.BallotKey]model.BallotMetadata, len(metadata))
	for _, m := range metadata {
		if _, ok := metaByKey[m.Key()]; !ok {
			metaByKey[m.Key()] = m
		}
	}
	means := localityMeans(metadata, coords)

	enriched := make([]model.EnrichedBallot, 0, len(votes))
	for _, v := range votes {
		eb := model.EnrichedBallot{BallotVotes: v, Source: model.GeocodeUnresolved}

		key := v.Key()
		m, ok := metaByKey[key]
		p, resolved := coords[key]
		if !resolved {
			// Split ballots ("3.1", "3.2") often share the parent's
			// metadata row ("3.0").
			truncated := key.TruncateSubBallot()
			if tm, tok := metaByKey[truncated]; tok {
				m, ok = tm, true
				p, resolved = coords[truncated]
			}
		}
		if ok {
			eb.LocationName = m.LocationName
			eb.Address = m.Address
		}

		switch {
		case resolved:
			lat, lng := p.Lat, p.Lng
			eb.Lat, eb.Lng = &lat, &lng
			eb.Source = model.GeocodeExact
			stats.NumExact++
		default:
			if mean, mok := means[v.LocalityID]; mok {
				lat, lng := mean.Lat, mean.Lng
				eb.Lat, eb.Lng = &lat, &lng
				eb.Source = model.GeocodeFallback
				stats.NumFallback++
			} else {
				stats.NumUnresolved++
			}
		}

		enriched = append(enriched, eb)
	}
	return enriched, stats, nil
}

// withSynthesizedLocalities appends a placeholder metadata row for every
// geographical locality that appears in the votes but has no metadata at all,
// so those ballots can at least resolve to the locality center.
func (e *Enricher) withSynthesizedLocalities(votes []model.BallotVotes, metadata []model.BallotMetadata, stats *Stats) []model.BallotMetadata {
	known := make(map[int]bool, len(metadata))
	for _, m := range metadata {
		known[m.LocalityID] = true
	}

	out := metadata
	added := make(map[int]bool)
	for _, v := range votes {
		if known[v.LocalityID] || added[v.LocalityID] || nonGeographicalLocalityIDs[v.LocalityID] {
			continue
		}
		added[v.LocalityID] = true
		out = append(out, model.BallotMetadata{
			LocalityID:   v.LocalityID,
			BallotID:     syntheticBallotID,
			LocalityName: v.LocalityName,
		})
		e.log.Info("synthesized metadata for locality missing from metadata file",
			zap.Int("locality_id", v.LocalityID),
			zap.String("locality_name", v.LocalityName))
	}
	stats.SynthesizedLocalities = len(added)
	return out
}

// resolveMetadata geocodes every metadata row, one worker per locality.
func (e *Enricher) resolveMetadata(ctx context.Context, metadata []model.BallotMetadata, stats *Stats) (map[model.BallotKey]geocode.Point, error) {
	byLocality := make(map[int][]model.BallotMetadata)
	for _, m := range metadata {
		byLocality[m.LocalityID] = append(byLocality[m.LocalityID], m)
	}

	var mu sync.Mutex
	coords := make(map[model.BallotKey]geocode.Point, len(metadata))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for id, rows := range byLocality {
		g.Go(func() error {
			region, err := e.localityRegion(gctx, id, rows[0].LocalityName, stats, &mu)
			if err != nil {
				return err
			}
			for _, m := range rows {
				p, err := e.resolveRow(gctx, m, region, stats, &mu)
				if err != nil {
					return err
				}
				if p != nil {
					mu.Lock()
					coords[m.Key()] = *p
					mu.Unlock()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return coords, nil
}

// resolveRow tries the row's candidate queries in order and returns the first
// geocode hit that passes validation, or nil when none does.
func (e *Enricher) resolveRow(ctx context.Context, m model.BallotMetadata, region *localityRegion, stats *Stats, mu *sync.Mutex) (*geocode.Point, error) {
	for _, candidate := range GeocodeCandidates(m) {
		p, err := e.geocode(ctx, candidate, stats, mu)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		if e.validPoint(region, *p) {
			return p, nil
		}
		e.log.Debug("discarded geocode hit outside the locality region",
			zap.String("ballot", m.Key().String()),
			zap.String("candidate", candidate),
			zap.Float64("lat", p.Lat),
			zap.Float64("lng", p.Lng))
	}
	return nil, nil
}

// geocode wraps the client call with the enrichment error policy: provider
// outages are counted and skipped, a forbidden cache miss aborts the run.
func (e *Enricher) geocode(ctx context.Context, query string, stats *Stats, mu *sync.Mutex) (*geocode.Point, error) {
	p, err := e.geocoder.Geocode(ctx, query)
	switch {
	case err == nil:
		return p, nil
	case eris.Is(err, geocode.ErrServiceUnavailable):
		mu.Lock()
		stats.ServiceErrors++
		mu.Unlock()
		e.log.Warn("geocoding service unavailable, skipping candidate",
			zap.String("query", query), zap.Error(err))
		return nil, nil
	default:
		return nil, err
	}
}

// localityRegion describes the reference area a ballot's coordinate is
// validated against. Either field may be unset.
type localityRegion struct {
	bounds *boundary.LocalityBoundary
	center *geocode.Point
}

func (e *Enricher) localityRegion(ctx context.Context, localityID int, localityName string, stats *Stats, mu *sync.Mutex) (*localityRegion, error) {
	region := &localityRegion{}

	if b := e.boundaries.Boundary(localityID); b != nil {
		lng, lat := b.Centroid()
		region.bounds = b
		region.center = &geocode.Point{Lat: lat, Lng: lng}
		return region, nil
	}

	if geocode.CleanAddress(localityName) == "" {
		return region, nil
	}

	p, err := e.geocode(ctx, localityName, stats, mu)
	if err != nil {
		return nil, err
	}
	if p == nil || !e.boundaries.WithinNationalBounds(p.Lng, p.Lat) {
		p, err = e.geocode(ctx, villagePrefix+" "+localityName, stats, mu)
		if err != nil {
			return nil, err
		}
	}
	if p == nil || !e.boundaries.WithinNationalBounds(p.Lng, p.Lat) {
		e.log.Warn("could not place locality, validating against national bounds only",
			zap.Int("locality_id", localityID),
			zap.String("locality_name", localityName))
		return region, nil
	}
	region.center = p
	return region, nil
}

// validPoint checks a geocode hit against the ballot's locality region. A
// locality polygon is authoritative; the center-distance check applies only
// when no polygon exists.
func (e *Enricher) validPoint(region *localityRegion, p geocode.Point) bool {
	if !e.boundaries.WithinNationalBounds(p.Lng, p.Lat) {
		return false
	}
	if region.bounds != nil {
		return region.bounds.Contains(p.Lng, p.Lat)
	}
	if region.center != nil {
		return boundary.DistanceKM(region.center.Lng, region.center.Lat, p.Lng, p.Lat) <= e.maxDistanceKM
	}
	return true
}

// localityMeans averages the resolved metadata coordinates per locality, used
// as the last-resort placement for ballots whose own rows stayed unresolved.
func localityMeans(metadata []model.BallotMetadata, coords map[model.BallotKey]geocode.Point) map[int]geocode.Point {
	sums := make(map[int]*struct {
		lat, lng float64
		n        int
	})
	for _, m := range metadata {
		p, ok := coords[m.Key()]
		if !ok {
			continue
		}
		s := sums[m.LocalityID]
		if s == nil {
			s = &struct {
				lat, lng float64
				n        int
			}{}
			sums[m.LocalityID] = s
		}
		s.lat += p.Lat
		s.lng += p.Lng
		s.n++
	}

	means := make(map[int]geocode.Point, len(sums))
	for id, s := range sums {
		means[id] = geocode.Point{Lat: s.lat / float64(s.n), Lng: s.lng / float64(s.n)}
	}
	return means
}
