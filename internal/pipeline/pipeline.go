package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marshbird/sightings-etl/internal/domain"
	"github.com/marshbird/sightings-etl/internal/observability"
	"github.com/marshbird/sightings-etl/internal/reference"
)

// PageText is one archive page reduced to section-delimited plain text,
// ready for candidate extraction.
type PageText struct {
	ID   string
	Year int
	Text string
}

// PageResult holds everything produced from one page: the built records in
// extraction order plus the tokens that matched neither vocabulary.
type PageResult struct {
	PageID           string
	Records          []domain.SightingRecord
	UnknownSpecies   map[string]int
	UnknownLocations map[string]int
}

// RecordSink receives completed page results. Implementations write CSV
// files, publish to Kafka, or capture results in tests.
type RecordSink interface {
	WritePage(ctx context.Context, result PageResult) error
}

// Pipeline orchestrates the extract-parse-build cycle over archive pages.
// The heavy lifting lives in the domain package; the pipeline wires pages
// through it, fans work across a bounded worker pool, and aggregates the
// unknown-token reports.
type Pipeline struct {
	store   *reference.Store
	rules   domain.ExtractRules
	opts    domain.ParseOptions
	logger  *slog.Logger
	metrics *observability.Metrics
	workers int
	ready   atomic.Bool

	unknownSpecies   *UnknownTokens
	unknownLocations *UnknownTokens
}

// New creates a Pipeline over the given reference store.
func New(store *reference.Store, rules domain.ExtractRules, logger *slog.Logger, metrics *observability.Metrics, workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		store:            store,
		rules:            rules,
		opts:             domain.ParseOptions{IsSexStage: store.IsSexStage},
		logger:           logger,
		metrics:          metrics,
		workers:          workers,
		unknownSpecies:   NewUnknownTokens(),
		unknownLocations: NewUnknownTokens(),
	}
}

// CheckReadiness returns nil once the pipeline has processed at least one
// page, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any pages yet")
	}
	return nil
}

// UnknownSpecies returns the aggregated unknown species tokens.
func (p *Pipeline) UnknownSpecies() *UnknownTokens { return p.unknownSpecies }

// UnknownLocations returns the aggregated unknown location tokens.
func (p *Pipeline) UnknownLocations() *UnknownTokens { return p.unknownLocations }

// Run processes every page and hands each result to the sink. Pages are
// processed concurrently but results reach the sink in input order, so
// output files are reproducible run to run. Returns the first sink error.
func (p *Pipeline) Run(ctx context.Context, pages []PageText, sink RecordSink) error {
	p.logger.Info("pipeline started", "pages", len(pages), "workers", p.workers)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	results := make([]PageResult, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.ProcessPage(gctx, page)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("process pages: %w", err)
	}

	for _, result := range results {
		if err := sink.WritePage(ctx, result); err != nil {
			p.metrics.PageErrors.Inc()
			return fmt.Errorf("write page %s: %w", result.PageID, err)
		}
	}

	p.logger.Info("pipeline finished",
		"pages", len(pages),
		"unknown_species", len(p.unknownSpecies.Counts()),
		"unknown_locations", len(p.unknownLocations.Counts()),
	)
	return nil
}

// ProcessPage runs one page through extraction, parsing, and record
// building. It never fails: malformed lines become records flagged for
// review rather than errors.
func (p *Pipeline) ProcessPage(_ context.Context, page PageText) PageResult {
	start := time.Now()

	// ExtractCandidates cleans the text itself; cleaning here as well would
	// run the non-idempotent stop/section collapse twice.
	candidates := domain.ExtractCandidates(page.ID, page.Text, page.Year, p.rules)

	result := PageResult{
		PageID:           page.ID,
		Records:          make([]domain.SightingRecord, 0, len(candidates)),
		UnknownSpecies:   make(map[string]int),
		UnknownLocations: make(map[string]int),
	}

	for _, candidate := range candidates {
		draft := domain.ParseCandidate(candidate, p.opts)
		record := domain.BuildRecord(draft, p.store.Species(), p.store.Locations(), p.store)
		p.observeRecord(record, &result)
		result.Records = append(result.Records, record)
	}

	p.unknownSpecies.Merge(result.UnknownSpecies)
	p.unknownLocations.Merge(result.UnknownLocations)

	p.metrics.PagesProcessed.Inc()
	p.metrics.CandidateLines.Add(float64(len(candidates)))
	p.metrics.CandidatesPerPage.Observe(float64(len(candidates)))
	p.metrics.PageProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)

	p.logger.Debug("page processed",
		"page_id", page.ID,
		"candidates", len(candidates),
		"records", len(result.Records),
	)
	return result
}

func (p *Pipeline) observeRecord(record domain.SightingRecord, result *PageResult) {
	p.metrics.RecordsBuilt.WithLabelValues(record.Status).Inc()
	p.metrics.MatchResults.WithLabelValues("species", string(record.Species.Result.Status)).Inc()
	p.metrics.MatchResults.WithLabelValues("locations", string(record.Location.Result.Status)).Inc()

	if record.Species.Result.Status == domain.MatchUnmatched && record.Species.Raw != "" {
		result.UnknownSpecies[record.Species.Raw]++
		p.metrics.UnknownTokens.WithLabelValues("species").Inc()
	}
	if record.Location.Result.Status == domain.MatchUnmatched && record.Location.Raw != "" {
		result.UnknownLocations[record.Location.Raw]++
		p.metrics.UnknownTokens.WithLabelValues("locations").Inc()
	}
}
