package dwd

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/retrowetter/retrowetter/internal/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// productMemberPrefix identifies the data table inside a daily climate
// archive, e.g. produkt_klima_tag_19690101_20241231_00078.txt.
const productMemberPrefix = "produkt_klima_tag"

// Store persists full fetched series across process restarts. The provider
// treats it as a second cache layer behind the in-memory one.
type Store interface {
	SaveSeries(ts types.TimeSeries) error
	LoadSeries(stationID string) (types.TimeSeries, bool, error)
	DeleteSeries(stationID string) error
	CachedStations() ([]string, error)
}

// ProviderConfig holds the remote endpoints and transport settings.
type ProviderConfig struct {
	HistoricalURL string
	RecentURL     string
	Timeout       time.Duration
}

// Provider retrieves and parses the remote historical-observation archives.
// All operations are blocking; a failed fetch surfaces a typed error and is
// never retried automatically.
type Provider struct {
	cfg     ProviderConfig
	index   *StationIndex
	store   Store // optional
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.SugaredLogger

	cache *seriesCache

	catalogMu sync.Mutex
	catalog   map[string]archiveRef
}

// NewProvider creates a provider backed by the given station index and an
// optional persistent store.
func NewProvider(cfg ProviderConfig, index *StationIndex, store Store, logger *zap.SugaredLogger) *Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if !strings.HasSuffix(cfg.HistoricalURL, "/") {
		cfg.HistoricalURL += "/"
	}
	if cfg.RecentURL != "" && !strings.HasSuffix(cfg.RecentURL, "/") {
		cfg.RecentURL += "/"
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dwd-opendata",
		MaxRequests: 3,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Provider{
		cfg:     cfg,
		index:   index,
		store:   store,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		logger:  logger,
		cache:   newSeriesCache(),
	}
}

// Stations returns the station index backing this provider.
func (p *Provider) Stations() *StationIndex {
	return p.index
}

// Fetch downloads, extracts, and parses the observation archive for the
// station, returning the observations within the inclusive date range. An
// empty series is a valid result. The station must exist in the index.
func (p *Provider) Fetch(ctx context.Context, stationID string, dateRange types.DateRange) (types.TimeSeries, error) {
	station, err := p.index.Find(stationID)
	if err != nil {
		return types.TimeSeries{}, err
	}

	archiveURL, err := p.resolveArchiveURL(ctx, station.ID)
	if err != nil {
		return types.TimeSeries{}, err
	}

	p.logger.Debugf("downloading archive for station %s: %s", station.ID, archiveURL)
	body, err := p.download(ctx, archiveURL)
	if err != nil {
		return types.TimeSeries{}, err
	}

	p.logger.Debugf("extracting data table for station %s (%d bytes)", station.ID, len(body))
	table, err := extractProductTable(body)
	if err != nil {
		return types.TimeSeries{}, fmt.Errorf("station %s: %w", station.ID, err)
	}

	observations, skipped, err := parseObservations(bytes.NewReader(table), p.logger)
	if err != nil {
		return types.TimeSeries{}, fmt.Errorf("station %s: %w", station.ID, err)
	}
	if skipped > 0 {
		p.logger.Warnf("station %s: skipped %d unparseable rows, kept %d", station.ID, skipped, len(observations))
	}

	full := types.TimeSeries{StationID: station.ID, Observations: normalizeObservations(observations)}
	return full.Filter(dateRange), nil
}

// FetchCached wraps Fetch with the cache layers. The cache is keyed by
// station ID only: on a miss the full available series is fetched once and
// range-filtered for this and subsequent calls. An unknown station fails
// with ErrNotFound before any network activity.
func (p *Provider) FetchCached(ctx context.Context, stationID string, dateRange types.DateRange) (types.TimeSeries, error) {
	station, err := p.index.Find(stationID)
	if err != nil {
		return types.TimeSeries{}, err
	}

	if ts, ok := p.cache.get(station.ID); ok {
		return ts.Filter(dateRange), nil
	}

	if p.store != nil {
		ts, ok, err := p.store.LoadSeries(station.ID)
		if err != nil {
			p.logger.Warnf("station %s: loading persisted series: %v", station.ID, err)
		} else if ok {
			p.cache.put(ts)
			return ts.Filter(dateRange), nil
		}
	}

	full, err := p.Fetch(ctx, station.ID, types.DateRange{})
	if err != nil {
		return types.TimeSeries{}, err
	}

	p.cache.put(full)
	p.persist(full)
	return full.Filter(dateRange), nil
}

// Refresh re-fetches the full series for a station and replaces both cache
// layers. Used by the periodic refresh job.
func (p *Provider) Refresh(ctx context.Context, stationID string) error {
	full, err := p.Fetch(ctx, stationID, types.DateRange{})
	if err != nil {
		return err
	}
	p.cache.put(full)
	p.persist(full)

	// The catalog may list a newer archive next time; drop the cached copy.
	p.catalogMu.Lock()
	p.catalog = nil
	p.catalogMu.Unlock()
	return nil
}

// Invalidate removes a station's series from both cache layers.
func (p *Provider) Invalidate(stationID string) error {
	norm, err := NormalizeStationID(stationID)
	if err != nil {
		return fmt.Errorf("%w: station %q", ErrNotFound, stationID)
	}
	p.cache.delete(norm)
	if p.store != nil {
		return p.store.DeleteSeries(norm)
	}
	return nil
}

// InvalidateAll removes every cached series from both cache layers.
func (p *Provider) InvalidateAll() error {
	p.cache.clear()
	if p.store == nil {
		return nil
	}
	ids, err := p.store.CachedStations()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := p.store.DeleteSeries(id); err != nil {
			return err
		}
	}
	return nil
}

// CachedStations lists the station IDs currently held in the in-memory cache.
func (p *Provider) CachedStations() []string {
	return p.cache.stations()
}

// WarmCache loads every persisted series into the in-memory cache. Called at
// startup; failures are logged and skipped.
func (p *Provider) WarmCache() {
	if p.store == nil {
		return
	}
	ids, err := p.store.CachedStations()
	if err != nil {
		p.logger.Warnf("listing persisted series: %v", err)
		return
	}
	for _, id := range ids {
		ts, ok, err := p.store.LoadSeries(id)
		if err != nil {
			p.logger.Warnf("station %s: loading persisted series: %v", id, err)
			continue
		}
		if ok {
			p.cache.put(ts)
		}
	}
	if len(ids) > 0 {
		p.logger.Infof("warmed series cache with %d persisted stations", len(ids))
	}
}

func (p *Provider) persist(ts types.TimeSeries) {
	if p.store == nil {
		return
	}
	if err := p.store.SaveSeries(ts); err != nil {
		p.logger.Warnf("station %s: persisting series: %v", ts.StationID, err)
	}
}

// resolveArchiveURL finds the archive for a station: the historical archive
// from the catalog listing when one exists, otherwise the recent-file naming
// convention. ErrNotFound when neither can apply.
func (p *Provider) resolveArchiveURL(ctx context.Context, stationID string) (string, error) {
	catalog, err := p.loadCatalog(ctx)
	if err != nil {
		return "", err
	}

	if ref, ok := catalog[stationID]; ok {
		return ref.URL, nil
	}
	if p.cfg.RecentURL != "" {
		return fmt.Sprintf("%stageswerte_KL_%s_akt.zip", p.cfg.RecentURL, stationID), nil
	}
	return "", fmt.Errorf("%w: no archive for station %s", ErrNotFound, stationID)
}

// loadCatalog fetches and parses the historical directory listing once,
// then serves it from memory.
func (p *Provider) loadCatalog(ctx context.Context) (map[string]archiveRef, error) {
	p.catalogMu.Lock()
	defer p.catalogMu.Unlock()

	if p.catalog != nil {
		return p.catalog, nil
	}

	p.logger.Debugf("loading archive catalog from %s", p.cfg.HistoricalURL)
	body, err := p.download(ctx, p.cfg.HistoricalURL)
	if err != nil {
		return nil, fmt.Errorf("loading archive catalog: %w", err)
	}

	catalog, err := parseCatalog(bytes.NewReader(body), p.cfg.HistoricalURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing archive catalog: %v", ErrFormat, err)
	}

	p.logger.Debugf("archive catalog lists %d stations", len(catalog))
	p.catalog = catalog
	return catalog, nil
}

// download retrieves a remote resource through the circuit breaker. A 404
// maps to ErrNotFound; every other failure, including a truncated body, is
// ErrNetwork.
func (p *Provider) download(ctx context.Context, url string) ([]byte, error) {
	body, err := p.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: building request for %s: %v", ErrNetwork, url, err)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: requesting %s: %v", ErrNetwork, url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: remote resource %s", ErrNotFound, url)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: %s returned status %d", ErrNetwork, url, resp.StatusCode)
		}

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: reading body from %s: %v", ErrNetwork, url, err)
		}
		return raw, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: circuit breaker open for %s", ErrNetwork, url)
		}
		return nil, err
	}
	return body.([]byte), nil
}

// extractProductTable opens the zip archive and returns the contents of the
// embedded product data table.
func extractProductTable(archive []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, productMemberPrefix) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: opening %s: %v", ErrFormat, f.Name, err)
		}
		defer rc.Close()

		table, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrFormat, f.Name, err)
		}
		return table, nil
	}

	return nil, fmt.Errorf("%w: archive has no %s* member", ErrFormat, productMemberPrefix)
}

// normalizeObservations sorts by date and drops duplicate dates so the
// series invariant (unique, strictly increasing dates) holds.
func normalizeObservations(observations []types.Observation) []types.Observation {
	sort.SliceStable(observations, func(i, j int) bool {
		return observations[i].Date.Before(observations[j].Date)
	})

	out := observations[:0]
	var last time.Time
	for _, obs := range observations {
		if !last.IsZero() && obs.Date.Equal(last) {
			continue
		}
		out = append(out, obs)
		last = obs.Date
	}
	return out
}
