package pipeline

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/zachmoshe/il-elections/internal/boundary"
	"github.com/zachmoshe/il-elections/internal/config"
	"github.com/zachmoshe/il-elections/internal/model"
	"github.com/zachmoshe/il-elections/internal/parser"
	"github.com/zachmoshe/il-elections/internal/store"
	"github.com/zachmoshe/il-elections/pkg/geocode"
)

// Runner wires the preprocessing dependencies together and executes
// campaigns. Create with NewRunner, close when done.
type Runner struct {
	cfg        *config.Config
	store      *store.Store
	enricher   *Enricher
	boundaries *boundary.Index
	log        *zap.Logger
}

// NewRunner opens the cache store, builds the geocoding chain and loads
// boundary reference data per the configuration.
func NewRunner(ctx context.Context, cfg *config.Config) (*Runner, error) {
	s, err := store.Open(cfg.Cache.Path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}

	boundaries, err := loadBoundaries(cfg.Boundaries)
	if err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}

	geocoder, err := buildGeocoder(cfg.Geocoder, s)
	if err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}

	return &Runner{
		cfg:        cfg,
		store:      s,
		enricher:   NewEnricher(geocoder, boundaries, cfg.Geocoder.MaxDistanceKM),
		boundaries: boundaries,
		log:        zap.L().With(zap.String("component", "pipeline")),
	}, nil
}

// Close releases the underlying store.
func (r *Runner) Close() error {
	return r.store.Close()
}

// Store exposes the run-history store.
func (r *Runner) Store() *store.Store {
	return r.store
}

// Geocoder exposes the cached geocoding client.
func (r *Runner) Geocoder() geocode.Client {
	return r.enricher.geocoder
}

func loadBoundaries(cfg config.BoundariesConfig) (*boundary.Index, error) {
	var localities map[int]*boundary.LocalityBoundary
	if cfg.LocalitiesPath != "" {
		var err error
		localities, err = boundary.LoadLocalityShapefile(cfg.LocalitiesPath, cfg.LocalityIDField)
		if err != nil {
			return nil, err
		}
	}

	var national *geom.MultiPolygon
	if cfg.NationalPath != "" {
		var err error
		national, err = boundary.LoadNationalBoundary(cfg.NationalPath)
		if err != nil {
			return nil, err
		}
	}

	return boundary.NewIndex(localities, national), nil
}

func buildGeocoder(cfg config.GeocoderConfig, s *store.Store) (geocode.Client, error) {
	provider := geocode.NewGoogleClient(cfg.APIKey, geocode.WithRateLimit(cfg.RateLimit))

	var opts []geocode.CachedOption
	if cfg.KnownAddressesPath != "" {
		known, err := geocode.LoadKnownAddressesFile(cfg.KnownAddressesPath, cfg.KnownAddressPrefixes...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, geocode.WithKnownAddresses(known))
	}

	return geocode.NewCachedClient(provider, s, cfg.CacheOnly, opts...), nil
}

// PrepareOutputDir creates the output folder. An existing folder is an error
// unless override is set, in which case it is replaced.
func PrepareOutputDir(dir string, override bool) error {
	if _, err := os.Stat(dir); err == nil {
		if !override {
			return eris.Errorf("pipeline: output folder %s already exists (use override to replace)", dir)
		}
		if err := os.RemoveAll(dir); err != nil {
			return eris.Wrapf(err, "pipeline: clear output folder %s", dir)
		}
	} else if !os.IsNotExist(err) {
		return eris.Wrapf(err, "pipeline: stat output folder %s", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "pipeline: create output folder %s", dir)
	}
	return nil
}

// RunCampaign preprocesses a single campaign end to end and writes its
// artifacts to outDir. The human-readable report goes to reportW.
func (r *Runner) RunCampaign(ctx context.Context, cc config.CampaignConfig, outDir string, reportW io.Writer) (err error) {
	campaign, err := cc.Campaign()
	if err != nil {
		return err
	}
	log := r.log.With(zap.String("campaign", campaign.Name))

	run, err := r.store.StartRun(ctx, campaign.Name)
	if err != nil {
		return err
	}
	var stats *Stats
	defer func() {
		status := store.RunStatusComplete
		if err != nil {
			status = store.RunStatusFailed
		}
		if ferr := r.store.FinishRun(ctx, run.ID, status, stats); ferr != nil {
			log.Warn("could not record run result", zap.Error(ferr))
		}
	}()

	log.Info("loading campaign data",
		zap.String("votes", cc.Data.BallotsVotes.Filename),
		zap.String("metadata", cc.Data.BallotsMetadata.Filename))

	votes, metadata, err := loadCampaignData(cc)
	if err != nil {
		return err
	}
	for _, v := range votes {
		if verr := v.Validate(); verr != nil {
			log.Warn("inconsistent ballot counts", zap.String("ballot", v.Key().String()), zap.Error(verr))
		}
	}

	log.Info("enriching ballots with locations",
		zap.Int("num_votes", len(votes)), zap.Int("num_metadata", len(metadata)))

	enriched, enrichStats, err := r.enricher.Enrich(ctx, votes, metadata)
	if err != nil {
		return err
	}
	stats = enrichStats

	aggs, missing := AggregateByLocation(enriched, r.cfg.Aggregate.Precision)
	log.Info("aggregated ballots by location",
		zap.Int("num_locations", len(aggs)), zap.Int("num_missing_geo", len(missing)))

	analysis := Analyze(enriched)
	if err := WriteCampaignOutput(outDir, campaign, enriched, aggs, analysis, stats); err != nil {
		return err
	}
	if reportW != nil {
		WriteReport(reportW, campaign, analysis, stats)
	}
	return nil
}

func loadCampaignData(cc config.CampaignConfig) ([]model.BallotVotes, []model.BallotMetadata, error) {
	votesParser, err := parser.NewVotesParser(cc.Data.BallotsVotes.Format)
	if err != nil {
		return nil, nil, err
	}
	votes, err := votesParser.ParseVotes(cc.Data.BallotsVotes.Filename)
	if err != nil {
		return nil, nil, err
	}

	metadataParser, err := parser.NewMetadataParser(cc.Data.BallotsMetadata.Format)
	if err != nil {
		return nil, nil, err
	}
	metadata, err := metadataParser.ParseMetadata(cc.Data.BallotsMetadata.Filename)
	if err != nil {
		return nil, nil, err
	}
	return votes, metadata, nil
}
