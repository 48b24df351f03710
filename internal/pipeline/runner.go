package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/estat-data-etl/internal/domain"
	"github.com/couchcryptid/estat-data-etl/internal/observability"
)

// RunMode labels how a run ended. The set is closed: callers switch on it
// instead of inferring the mode from error text.
type RunMode string

const (
	// ModeSuccess: the search succeeded and every candidate table was
	// attempted (individual tables may still have failed).
	ModeSuccess RunMode = "success"
	// ModeAuthFallback: the search was rejected as unauthorized and the run
	// emitted the sample dataset instead.
	ModeAuthFallback RunMode = "auth_fallback"
	// ModeErrorFallback: the search failed for another reason; an error item
	// was emitted, then the sample dataset.
	ModeErrorFallback RunMode = "error_fallback"
)

// RunOutcome is the result of one pipeline run.
type RunOutcome struct {
	Mode       RunMode            `json:"mode"`
	Summary    domain.RunSummary  `json:"summary"`
	Diagnostic string             `json:"diagnostic,omitempty"`
}

// authClassified is implemented by fetch-collaborator errors that can say
// whether they are an authentication/authorization condition.
type authClassified interface {
	Authish() bool
}

func isAuthError(err error) bool {
	var ac authClassified
	return errors.As(err, &ac) && ac.Authish()
}

// Runner drives one pipeline run: search, bounded sequential table
// processing, summary emission, and the sample-data fallback.
type Runner struct {
	searcher  Searcher
	processor *TableProcessor
	emitter   Emitter
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options
	started   atomic.Bool
	last      atomic.Pointer[RunOutcome]
}

// NewRunner creates a Runner with the given collaborators and options.
func NewRunner(s Searcher, p *TableProcessor, e Emitter, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Runner {
	return &Runner{
		searcher:  s,
		processor: p,
		emitter:   e,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// LastOutcome returns the most recent completed run's outcome, or nil if no
// run has finished yet.
func (r *Runner) LastOutcome() any {
	if o := r.last.Load(); o != nil {
		return o
	}
	return nil
}

// CheckReadiness returns nil once the run has started.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.started.Load() {
		return errors.New("pipeline run has not started yet")
	}
	return nil
}

// Run executes one run to completion. It never returns an error: an
// auth-rejected search degrades to the sample dataset, any other search
// failure emits an error item and then also degrades, and per-table failures
// are reported as error items while the run continues. The run always emits
// something; worst case is the sample dataset plus a diagnostic item.
func (r *Runner) Run(ctx context.Context) RunOutcome {
	r.started.Store(true)
	r.metrics.RunActive.Set(1)
	defer r.metrics.RunActive.Set(0)

	r.logger.Info("pipeline run starting",
		"keyword", r.opts.Criteria.Keyword,
		"max_items", r.opts.Criteria.Limit,
		"format", r.opts.OutputFormat,
		"include_metadata", r.opts.IncludeMetadata,
	)

	tables, err := r.searcher.Search(ctx, r.opts.Criteria)
	if err != nil {
		if isAuthError(err) {
			r.logger.Warn("search rejected as unauthorized, switching to sample data", "error", err)
			return r.fallback(ctx, ModeAuthFallback, "")
		}
		r.logger.Error("search failed", "error", err)
		r.emit(ctx, "run", domain.ItemTypeError, domain.NewErrorItem("", "", err))
		return r.fallback(ctx, ModeErrorFallback, err.Error())
	}

	// Cap the candidate list before any table is touched.
	if len(tables) > r.opts.Criteria.Limit {
		tables = tables[:r.opts.Criteria.Limit]
	}

	summary := domain.RunSummary{
		Type:     domain.ItemTypeSummary,
		Criteria: r.opts.Criteria,
	}

	for i, table := range tables {
		emitted, err := r.processor.Process(ctx, table)
		summary.TablesAttempted++
		summary.RecordsEmitted += emitted
		if err != nil {
			r.logger.Warn("table processing failed",
				"table_id", table.ID,
				"title", table.Title.String(),
				"error", err,
			)
			r.metrics.TablesFailed.Inc()
			r.emit(ctx, table.ID, domain.ItemTypeError, domain.NewErrorItem(table.ID, table.Title.String(), err))
		} else {
			summary.TablesSucceeded++
			r.metrics.TablesProcessed.Inc()
		}

		// Fixed inter-request delay toward the upstream API, applied
		// regardless of the table's outcome.
		if i < len(tables)-1 && !sleepWithContext(ctx, r.opts.RequestDelay) {
			break
		}
	}

	summary.CompletedAt = domain.Now()
	r.emit(ctx, "summary", domain.ItemTypeSummary, summary)

	r.logger.Info("pipeline run complete",
		"tables_attempted", summary.TablesAttempted,
		"tables_succeeded", summary.TablesSucceeded,
		"records_emitted", summary.RecordsEmitted,
	)
	return r.finish(RunOutcome{Mode: ModeSuccess, Summary: summary})
}

// fallback emits the keyword-filtered sample dataset and a demo summary.
func (r *Runner) fallback(ctx context.Context, mode RunMode, diagnostic string) RunOutcome {
	label := "auth"
	if mode == ModeErrorFallback {
		label = "error"
	}
	r.metrics.FallbackRuns.WithLabelValues(label).Inc()

	records := SampleRecords(r.opts.Criteria.Keyword)
	for _, rec := range records {
		r.emit(ctx, rec.SourceTableID, domain.ItemTypeRecord, rec)
	}

	summary := domain.RunSummary{
		Type:           domain.ItemTypeDemoSummary,
		RecordsEmitted: len(records),
		Criteria:       r.opts.Criteria,
		CompletedAt:    domain.Now(),
	}
	r.emit(ctx, "summary", domain.ItemTypeDemoSummary, summary)

	r.logger.Info("sample-data fallback complete", "mode", mode, "records_emitted", len(records))
	return r.finish(RunOutcome{Mode: mode, Summary: summary, Diagnostic: diagnostic})
}

func (r *Runner) finish(outcome RunOutcome) RunOutcome {
	r.last.Store(&outcome)
	return outcome
}

// emit writes one item to the sink. Emission failures are logged, not
// propagated: a dead sink must not abort the accounting of a run.
func (r *Runner) emit(ctx context.Context, key, itemType string, item any) {
	if err := r.emitter.Emit(ctx, key, item); err != nil {
		r.logger.Error("emit failed", "item_type", itemType, "key", key, "error", err)
		return
	}
	r.metrics.ItemsEmitted.WithLabelValues(itemType).Inc()
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
