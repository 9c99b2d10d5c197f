// Package monitor orchestrates the scan pipeline over monitored pages:
// fetch, platform detection, extraction, persistence and change diffing.
// Pages are independent, so a run fans them out over a bounded worker
// pool; a page-level failure is counted, never propagated.
package monitor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/centinela-io/centinela/diff"
	"github.com/centinela-io/centinela/extractor"
	"github.com/centinela-io/centinela/fetch"
	"github.com/centinela-io/centinela/platform"
	"github.com/centinela-io/centinela/store"
)

// RunStatus aggregates one run's page outcomes.
type RunStatus string

const (
	RunSuccess RunStatus = "SUCCESS"
	RunPartial RunStatus = "FAILED_PARTIAL"
	RunFailed  RunStatus = "FAILED"
)

// RunResult summarizes one monitoring run.
type RunResult struct {
	Status    RunStatus
	Pages     int
	Successes int
	Failures  int
	Events    int
	Duration  time.Duration
}

// Fetcher retrieves page HTML. *fetch.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// Options tunes a Monitor. Zero values select defaults.
type Options struct {
	Workers int
	Logger  *slog.Logger
	Metrics *Metrics
}

// Monitor drives the scan pipeline.
type Monitor struct {
	store   *store.Store
	fetcher Fetcher
	engine  *diff.Engine
	metrics *Metrics
	logger  *slog.Logger
	workers int
	now     func() time.Time
}

// New creates a monitor over the given store and fetcher.
func New(st *store.Store, fetcher Fetcher, opts Options) *Monitor {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	return &Monitor{
		store:   st,
		fetcher: fetcher,
		engine:  diff.NewEngine(st, opts.Logger),
		metrics: opts.Metrics,
		logger:  opts.Logger,
		workers: opts.Workers,
		now:     time.Now,
	}
}

// Run processes every active page once and aggregates the outcomes.
// Individual page failures are counted, not returned; Run itself fails
// only when the page list cannot be loaded.
func (m *Monitor) Run(ctx context.Context) (RunResult, error) {
	started := m.now()

	pages, err := m.store.ActivePages(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("loading active pages: %w", err)
	}
	m.logger.Info("monitoring run started", "pages", len(pages), "workers", m.workers)

	var successes, failures, events atomic.Int64
	queue := make(chan store.Page)

	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := range queue {
				pageEvents, err := m.ProcessPage(ctx, page)
				if err != nil {
					m.logger.Warn("page failed this cycle", "url", page.URL, "error", err)
					failures.Add(1)
					continue
				}
				successes.Add(1)
				events.Add(int64(len(pageEvents)))
			}
		}()
	}

	queued := 0
feed:
	for _, page := range pages {
		select {
		case <-ctx.Done():
			break feed
		case queue <- page:
			queued++
		}
	}
	close(queue)
	wg.Wait()

	// Pages never handed to a worker count as failed for this run.
	failures.Add(int64(len(pages) - queued))

	result := RunResult{
		Pages:     len(pages),
		Successes: int(successes.Load()),
		Failures:  int(failures.Load()),
		Events:    int(events.Load()),
		Duration:  m.now().Sub(started),
	}
	switch {
	case result.Failures == 0:
		result.Status = RunSuccess
	case result.Successes > 0:
		result.Status = RunPartial
	default:
		result.Status = RunFailed
	}

	m.logger.Info("monitoring run finished",
		"status", string(result.Status),
		"successes", result.Successes,
		"failures", result.Failures,
		"events", result.Events,
		"duration", result.Duration)
	return result, nil
}

// ProcessPage runs one page through the full pipeline and returns the
// change events it produced. Extraction never fails; fetch and
// persistence errors mean "page unavailable this cycle".
func (m *Monitor) ProcessPage(ctx context.Context, page store.Page) ([]diff.ChangeEvent, error) {
	fetchStart := m.now()
	fetched, err := m.fetcher.Fetch(ctx, page.URL)
	if err != nil {
		m.metrics.PagesFailed.Inc()
		return nil, fmt.Errorf("fetching %s: %w", page.URL, err)
	}
	m.metrics.FetchDuration.Observe(m.now().Sub(fetchStart).Seconds())

	detected := platform.Detect(fetched.HTML, fetched.Headers)
	ext := extractor.New(detected, fetched.HTML, fetched.Headers, page.URL, m.logger)
	result := ext.ExtractAll()
	m.metrics.SignalsExtracted.Add(float64(result.SignalCount()))
	m.logger.Debug("page extracted",
		"url", page.URL,
		"platform", detected.String(),
		"promos", len(result.Promos),
		"financing", len(result.Financing),
		"ctas", len(result.CTAs),
		"products", len(result.Products))

	snapshot := store.Snapshot{
		ID:          uuid.NewString(),
		PageID:      page.ID,
		Platform:    detected,
		ContentHash: contentHash(fetched.HTML),
		ObservedAt:  m.now().UTC(),
	}
	if err := m.store.SaveSnapshot(ctx, snapshot, result); err != nil {
		m.metrics.PagesFailed.Inc()
		return nil, fmt.Errorf("persisting snapshot for %s: %w", page.URL, err)
	}

	events, err := m.engine.AnalyzeChanges(ctx, page.ID, page.CompetitorID)
	if err != nil {
		m.metrics.PagesFailed.Inc()
		return nil, fmt.Errorf("diffing %s: %w", page.URL, err)
	}
	if err := m.store.AppendEvents(ctx, events); err != nil {
		m.metrics.PagesFailed.Inc()
		return nil, fmt.Errorf("persisting events for %s: %w", page.URL, err)
	}

	m.metrics.PagesProcessed.Inc()
	for _, e := range events {
		m.metrics.EventsDetected.WithLabelValues(string(e.Severity)).Inc()
	}
	return events, nil
}

// contentHash fingerprints a fetched body for snapshot bookkeeping.
func contentHash(html string) string {
	sum := sha256.Sum256([]byte(html))
	return hex.EncodeToString(sum[:])
}
