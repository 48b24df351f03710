package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/couchcryptid/estat-data-etl/internal/domain"
	"github.com/couchcryptid/estat-data-etl/internal/estat"
	"github.com/couchcryptid/estat-data-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSearcher struct {
	tables   []domain.TableDescriptor
	err      error
	lastSeen domain.SearchCriteria
}

func (m *mockSearcher) Search(_ context.Context, criteria domain.SearchCriteria) ([]domain.TableDescriptor, error) {
	m.lastSeen = criteria
	if m.err != nil {
		return nil, m.err
	}
	return m.tables, nil
}

func newRunner(s *mockSearcher, f *mockFetcher, e *mockEmitter, opts pipeline.Options) *pipeline.Runner {
	metrics := testMetrics()
	proc := pipeline.NewTableProcessor(f, e, discardLogger(), metrics, opts)
	return pipeline.NewRunner(s, proc, e, discardLogger(), metrics, opts)
}

func tables(ids ...string) []domain.TableDescriptor {
	out := make([]domain.TableDescriptor, len(ids))
	for i, id := range ids {
		out[i] = testTable(id)
	}
	return out
}

func structuredOpts(limit int) pipeline.Options {
	return pipeline.Options{
		Criteria:     domain.SearchCriteria{Keyword: "人口", Limit: limit},
		OutputFormat: pipeline.FormatStructured,
	}
}

func itemTypes(items []emitted) []string {
	out := make([]string, len(items))
	for i, it := range items {
		switch v := it.item.(type) {
		case domain.StatRecord:
			out[i] = domain.ItemTypeRecord
		case domain.RawItem:
			out[i] = v.Type
		case domain.ErrorItem:
			out[i] = v.Type
		case domain.RunSummary:
			out[i] = v.Type
		default:
			out[i] = "unexpected"
		}
	}
	return out
}

func TestRunner_Run_HappyPath(t *testing.T) {
	searcher := &mockSearcher{tables: tables("t1", "t2")}
	fetcher := &mockFetcher{data: map[string]json.RawMessage{
		"t1": statsDataDoc(`[{"@area":"00000","@unit":"人","$":"1"},{"@area":"01000","@unit":"人","$":"2"}]`),
		"t2": statsDataDoc(`{"@area":"00000","@unit":"人","$":"3"}`),
	}}
	emitter := &mockEmitter{}

	outcome := newRunner(searcher, fetcher, emitter, structuredOpts(10)).Run(context.Background())

	assert.Equal(t, pipeline.ModeSuccess, outcome.Mode)
	assert.Equal(t, 2, outcome.Summary.TablesAttempted)
	assert.Equal(t, 2, outcome.Summary.TablesSucceeded)
	assert.Equal(t, 3, outcome.Summary.RecordsEmitted)
	assert.Empty(t, outcome.Diagnostic)

	types := itemTypes(emitter.items)
	assert.Equal(t, []string{"record", "record", "record", "summary"}, types)

	summary := emitter.items[len(emitter.items)-1].item.(domain.RunSummary)
	assert.Equal(t, domain.ItemTypeSummary, summary.Type)
	assert.Equal(t, "人口", summary.Criteria.Keyword)
	assert.NotEmpty(t, summary.CompletedAt)
}

func TestRunner_Run_CapsCandidateList(t *testing.T) {
	searcher := &mockSearcher{tables: tables("t1", "t2", "t3", "t4", "t5")}
	fetcher := &mockFetcher{data: map[string]json.RawMessage{
		"t1": statsDataDoc(`{"@area":"00000","@unit":"人","$":"1"}`),
		"t2": statsDataDoc(`{"@area":"00000","@unit":"人","$":"2"}`),
	}}
	emitter := &mockEmitter{}

	outcome := newRunner(searcher, fetcher, emitter, structuredOpts(2)).Run(context.Background())

	assert.Equal(t, 2, outcome.Summary.TablesAttempted)
	assert.Equal(t, 2, fetcher.dataCalls, "tables beyond the cap are never fetched")
}

func TestRunner_Run_TableFailureDoesNotAbortRun(t *testing.T) {
	searcher := &mockSearcher{tables: tables("t1", "t2")}
	fetcher := &mockFetcher{
		data:    map[string]json.RawMessage{"t2": statsDataDoc(`{"@area":"00000","@unit":"人","$":"3"}`)},
		dataErr: map[string]error{"t1": errors.New("gateway timeout")},
	}
	emitter := &mockEmitter{}

	outcome := newRunner(searcher, fetcher, emitter, structuredOpts(10)).Run(context.Background())

	assert.Equal(t, pipeline.ModeSuccess, outcome.Mode)
	assert.Equal(t, 2, outcome.Summary.TablesAttempted)
	assert.Equal(t, 1, outcome.Summary.TablesSucceeded)

	types := itemTypes(emitter.items)
	assert.Equal(t, []string{"error", "record", "summary"}, types)

	errItem := emitter.items[0].item.(domain.ErrorItem)
	assert.Equal(t, "t1", errItem.TableID)
	assert.Contains(t, errItem.Error, "gateway timeout")
}

func TestRunner_Run_AuthFallback(t *testing.T) {
	searcher := &mockSearcher{err: &estat.APIError{Endpoint: "getStatsList", StatusCode: 403, Message: "Forbidden"}}
	emitter := &mockEmitter{}

	outcome := newRunner(searcher, &mockFetcher{}, emitter, structuredOpts(10)).Run(context.Background())

	assert.Equal(t, pipeline.ModeAuthFallback, outcome.Mode)
	assert.Empty(t, outcome.Diagnostic)
	assert.Equal(t, 2, outcome.Summary.RecordsEmitted)

	types := itemTypes(emitter.items)
	assert.Equal(t, []string{"record", "record", "demo_summary"}, types,
		"no error item on the auth path")

	rec := emitter.items[0].item.(domain.StatRecord)
	assert.Contains(t, rec.StatName, "人口")
	assert.Equal(t, domain.DataTypePopulation, rec.DataType)
}

func TestRunner_Run_AuthFallbackViaResultCode(t *testing.T) {
	searcher := &mockSearcher{err: &estat.APIError{Endpoint: "getStatsList", ResultCode: 100, Message: "アプリケーションIDが正しくありません。"}}
	emitter := &mockEmitter{}

	outcome := newRunner(searcher, &mockFetcher{}, emitter, structuredOpts(10)).Run(context.Background())

	assert.Equal(t, pipeline.ModeAuthFallback, outcome.Mode)
}

func TestRunner_Run_ErrorFallback(t *testing.T) {
	searcher := &mockSearcher{err: errors.New("upstream 502")}
	emitter := &mockEmitter{}

	outcome := newRunner(searcher, &mockFetcher{}, emitter, structuredOpts(10)).Run(context.Background())

	assert.Equal(t, pipeline.ModeErrorFallback, outcome.Mode)
	assert.Equal(t, "upstream 502", outcome.Diagnostic)

	types := itemTypes(emitter.items)
	assert.Equal(t, []string{"error", "record", "record", "demo_summary"}, types,
		"diagnostic error item precedes the sample dataset")
}

func TestRunner_Run_FallbackFiltersByKeyword(t *testing.T) {
	searcher := &mockSearcher{err: &estat.APIError{StatusCode: 401}}
	emitter := &mockEmitter{}
	opts := pipeline.Options{
		Criteria:     domain.SearchCriteria{Keyword: "推計", Limit: 10},
		OutputFormat: pipeline.FormatStructured,
	}

	outcome := newRunner(searcher, &mockFetcher{}, emitter, opts).Run(context.Background())

	assert.Equal(t, 1, outcome.Summary.RecordsEmitted)
	rec := emitter.items[0].item.(domain.StatRecord)
	assert.Contains(t, rec.StatName, "推計")
}

func TestRunner_CheckReadiness(t *testing.T) {
	searcher := &mockSearcher{tables: nil}
	r := newRunner(searcher, &mockFetcher{}, &mockEmitter{}, structuredOpts(1))

	require.Error(t, r.CheckReadiness(context.Background()))
	r.Run(context.Background())
	require.NoError(t, r.CheckReadiness(context.Background()))
}

func TestRunner_LastOutcome(t *testing.T) {
	searcher := &mockSearcher{tables: nil}
	r := newRunner(searcher, &mockFetcher{}, &mockEmitter{}, structuredOpts(1))

	assert.Nil(t, r.LastOutcome())

	outcome := r.Run(context.Background())

	got, ok := r.LastOutcome().(*pipeline.RunOutcome)
	require.True(t, ok)
	assert.Equal(t, outcome, *got)
}

func TestSampleRecords(t *testing.T) {
	t.Run("empty keyword matches everything", func(t *testing.T) {
		assert.Len(t, pipeline.SampleRecords(""), 2)
	})

	t.Run("keyword filters", func(t *testing.T) {
		assert.Len(t, pipeline.SampleRecords("人口"), 2)
		assert.Len(t, pipeline.SampleRecords("推計"), 1)
		assert.Empty(t, pipeline.SampleRecords("貿易"))
	})
}
