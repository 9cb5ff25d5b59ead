// Package pipeline orchestrates one ingestion run: fetch the listing
// page, parse and normalize its rows, assign identities, optionally
// enrich from detail pages, and reconcile against the store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/prevostgo/prevostgo/internal/enricher"
	"github.com/prevostgo/prevostgo/internal/fetcher"
	"github.com/prevostgo/prevostgo/internal/inventory"
	"github.com/prevostgo/prevostgo/internal/logger"
	"github.com/prevostgo/prevostgo/internal/parser"
	"github.com/prevostgo/prevostgo/internal/store"
)

// EnrichPolicy selects which listings get the detail-page pass.
type EnrichPolicy string

const (
	// EnrichAll fetches every available listing's detail page.
	EnrichAll EnrichPolicy = "all"
	// EnrichMissingPrice only enriches listings that still lack a price.
	EnrichMissingPrice EnrichPolicy = "missing-price"
	// EnrichNone skips the detail pass entirely.
	EnrichNone EnrichPolicy = "none"
)

// Config is the explicit run context for a pipeline: everything a run
// needs is passed in rather than read from process-wide state, so test
// and production configurations can coexist.
type Config struct {
	ListingURL string
	Source     string // provenance tag stored on every record
	Brand      string // brand token, also used for legacy row cleanup

	ListingBand parser.PriceBand // listing-page price sanity band
	DetailBand  parser.PriceBand // detail-page backfill band
	Rules       *parser.Rules    // nil means built-in tables

	Enrich      EnrichPolicy
	DetailDelay time.Duration // politeness pause between detail fetches
	Limit       int           // max listings per run, 0 = no limit
}

// Pipeline runs the full ingestion sequence. A Pipeline is reusable;
// identity collision state is fresh per run.
type Pipeline struct {
	fetch      fetcher.Fetcher
	parser     *parser.Parser
	normalizer *parser.Normalizer
	enricher   *enricher.Enricher
	reconciler *Reconciler
	store      store.Store
	cfg        Config
}

// New wires a Pipeline from its collaborators.
func New(f fetcher.Fetcher, st store.Store, cfg Config) *Pipeline {
	if cfg.Brand == "" {
		cfg.Brand = "Prevost"
	}
	if cfg.Enrich == "" {
		cfg.Enrich = EnrichMissingPrice
	}
	return &Pipeline{
		fetch:  f,
		parser: parser.New(parser.Config{BaseURL: siteRoot(cfg.ListingURL), Brand: cfg.Brand}),
		normalizer: parser.NewNormalizer(parser.NormalizerConfig{
			Source: cfg.Source,
			Band:   cfg.ListingBand,
			Rules:  cfg.Rules,
		}),
		enricher: enricher.New(f, enricher.Config{
			Band:  cfg.DetailBand,
			Delay: cfg.DetailDelay,
		}),
		reconciler: NewReconciler(st),
		store:      st,
		cfg:        cfg,
	}
}

// Run executes one full synchronous pass and returns the batch summary.
// Only a failed listing-page fetch aborts the run; every per-listing
// problem is logged and skipped.
func (p *Pipeline) Run(ctx context.Context) (inventory.Summary, error) {
	var summary inventory.Summary

	logger.Info("scrape starting", "url", p.cfg.ListingURL)

	content, err := p.fetch.Fetch(ctx, p.cfg.ListingURL)
	if err != nil {
		return summary, fmt.Errorf("listing page: %w", err)
	}

	blocks, err := p.parser.Blocks(content.HTML)
	if err != nil {
		return summary, fmt.Errorf("parse listing page: %w", err)
	}

	assigner := parser.NewIdentityAssigner()
	var records []*inventory.Record
	for _, block := range blocks {
		rec := p.normalizer.Normalize(block)
		if rec == nil {
			continue
		}
		rec.Identity = assigner.Assign(rec.Year, rec.Converter, rec.Model, rec.Title)
		records = append(records, rec)
		if p.cfg.Limit > 0 && len(records) >= p.cfg.Limit {
			break
		}
	}
	summary.ListingsFound = len(records)
	logger.Info("listing page parsed", "found", len(records))

	for _, rec := range records {
		if !p.shouldEnrich(rec) {
			continue
		}
		if err := p.enricher.Enrich(ctx, rec); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return summary, err
			}
			logger.Warn("detail enrichment skipped", "id", rec.Identity, "url", rec.ListingURL, "error", err)
		}
	}

	if cleaner, ok := p.store.(store.Cleaner); ok {
		if n, err := cleaner.DeleteInvalid(ctx, p.cfg.Brand); err != nil {
			logger.Warn("invalid row cleanup failed", "error", err)
		} else if n > 0 {
			logger.Info("invalid legacy rows removed", "count", n)
		}
	}

	for _, rec := range records {
		outcome, err := p.reconciler.Reconcile(ctx, rec)
		if err != nil {
			logger.Error("record write failed", "id", rec.Identity, "title", rec.Title, "error", err)
			summary.Skipped++
			continue
		}
		switch outcome {
		case OutcomeInserted:
			summary.Inserted++
		case OutcomeUpdated:
			summary.Updated++
		default:
			summary.Skipped++
		}
	}

	logger.Info("scrape complete",
		"found", summary.ListingsFound,
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"skipped", summary.Skipped)
	return summary, nil
}

func (p *Pipeline) shouldEnrich(rec *inventory.Record) bool {
	if rec.Status != inventory.StatusAvailable || rec.ListingURL == "" {
		return false
	}
	switch p.cfg.Enrich {
	case EnrichAll:
		return true
	case EnrichMissingPrice:
		return !rec.HasPrice()
	default:
		return false
	}
}

// siteRoot reduces the listing URL to its scheme://host root so
// relative links resolve against the site, not the listing directory.
func siteRoot(listingURL string) string {
	u, err := url.Parse(listingURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return listingURL
	}
	return u.Scheme + "://" + u.Host + "/"
}

// ErrRunInProgress is returned by Runner when a run is already active.
var ErrRunInProgress = errors.New("scrape run already in progress")

// Overrides adjusts a single triggered run without touching the base
// configuration.
type Overrides struct {
	Limit  int          // > 0 replaces the configured limit
	Enrich EnrichPolicy // non-empty replaces the configured policy
}

// Runner builds and executes pipeline runs one at a time: overlapping
// triggers are rejected rather than queued, so a slow scheduled run and
// a manual trigger can never interleave writes.
type Runner struct {
	mu    sync.Mutex
	fetch fetcher.Fetcher
	store store.Store
	cfg   Config
}

// NewRunner creates a single-flight run executor.
func NewRunner(f fetcher.Fetcher, st store.Store, cfg Config) *Runner {
	return &Runner{fetch: f, store: st, cfg: cfg}
}

// Run executes one pipeline run, or fails fast with ErrRunInProgress.
func (r *Runner) Run(ctx context.Context, ov Overrides) (inventory.Summary, error) {
	if !r.mu.TryLock() {
		return inventory.Summary{}, ErrRunInProgress
	}
	defer r.mu.Unlock()

	cfg := r.cfg
	if ov.Limit > 0 {
		cfg.Limit = ov.Limit
	}
	if ov.Enrich != "" {
		cfg.Enrich = ov.Enrich
	}
	return New(r.fetch, r.store, cfg).Run(ctx)
}
