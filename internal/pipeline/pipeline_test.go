package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshbird/sightings-etl/internal/domain"
	"github.com/marshbird/sightings-etl/internal/observability"
	"github.com/marshbird/sightings-etl/internal/pipeline"
	"github.com/marshbird/sightings-etl/internal/reference"
)

// --- fixtures ---

func newTestStore(t *testing.T) *reference.Store {
	t.Helper()
	store, err := reference.NewStore(
		[]domain.ReferenceEntry{
			{Canonical: "Shelduck", Meta: map[string]string{domain.MetaScientific: "Tadorna tadorna"}},
			{Canonical: "Curlew"},
			{Canonical: "Wheatear"},
		},
		[]domain.ReferenceEntry{
			{Canonical: "Mostyn Bank", Meta: map[string]string{domain.MetaGridRef: "SJ1580"}},
			{Canonical: "Point of Ayr"},
		},
		reference.DefaultSynonyms(),
		reference.DefaultThreshold,
	)
	require.NoError(t, err)
	return store
}

func newTestPipeline(t *testing.T, workers int) *pipeline.Pipeline {
	t.Helper()
	return pipeline.New(
		newTestStore(t),
		domain.DefaultExtractRules(),
		slog.Default(),
		observability.NewMetricsForTesting(),
		workers,
	)
}

// captureSink records every page result it receives, in arrival order.
type captureSink struct {
	results []pipeline.PageResult
	err     error
}

func (s *captureSink) WritePage(_ context.Context, result pipeline.PageResult) error {
	if s.err != nil {
		return s.err
	}
	s.results = append(s.results, result)
	return nil
}

// --- tests ---

func TestPipeline_ProcessPage(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	p := newTestPipeline(t, 1)

	page := pipeline.PageText{
		ID:   "l2008aug",
		Year: 2008,
		Text: "Archived Sightings.August 31 2008|2 Shelduck (drake) Mostyn Bank 4 Curlew at Point of Ayr.1 Doodlebird at Mostyn Bank.Click here for previous records.",
	}

	result := p.ProcessPage(context.Background(), page)
	require.Len(t, result.Records, 3)

	first := result.Records[0]
	assert.Equal(t, "l2008aug", first.PageID)
	assert.Equal(t, time.Date(2008, time.August, 31, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "2", first.CountText)
	assert.Equal(t, 2, first.Count)
	assert.Equal(t, domain.SexMale, first.SexStage)
	assert.Equal(t, "Shelduck", first.Species.Result.Canonical)
	assert.Equal(t, "Tadorna tadorna", first.Scientific)
	assert.Equal(t, "Mostyn Bank", first.Location.Result.Canonical)
	assert.Equal(t, "SJ1580", first.GridRef)
	assert.Equal(t, domain.StatusOK, first.Status)
	assert.Equal(t, time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC), first.ProcessedAt)

	second := result.Records[1]
	assert.Equal(t, "Curlew", second.Species.Result.Canonical)
	assert.Equal(t, "Point of Ayr", second.Location.Result.Canonical)
	assert.Equal(t, domain.StatusOK, second.Status)

	third := result.Records[2]
	assert.Equal(t, domain.StatusCheckSpecies, third.Status)
	assert.Equal(t, "Doodlebird", third.Species.Raw)
	assert.Equal(t, domain.MatchUnmatched, third.Species.Result.Status)

	// Boilerplate records never surface, but unknown tokens do.
	assert.Equal(t, map[string]int{"Doodlebird": 1}, result.UnknownSpecies)
	assert.Empty(t, result.UnknownLocations)
}

func TestPipeline_ProcessPage_CleansTextOnce(t *testing.T) {
	p := newTestPipeline(t, 1)

	// Stop/section collapse is not idempotent for runs like ".|.|.|"; the
	// page must come out exactly as a single extraction pass leaves it.
	page := pipeline.PageText{
		ID:   "p1",
		Year: 2008,
		Text: "August 1 2008|2 Shelduck at Mostyn Bank.|.|.|2 Curlew at Point of Ayr.",
	}

	want := domain.ExtractCandidates(page.ID, page.Text, page.Year, domain.DefaultExtractRules())
	require.NotEmpty(t, want)

	result := p.ProcessPage(context.Background(), page)
	require.Len(t, result.Records, len(want))
	for i, c := range want {
		assert.Equal(t, c.Text, result.Records[i].RecordText)
	}
}

func TestPipeline_ProcessPage_EmptyPage(t *testing.T) {
	p := newTestPipeline(t, 1)

	result := p.ProcessPage(context.Background(), pipeline.PageText{ID: "empty", Year: 2008})
	assert.Equal(t, "empty", result.PageID)
	assert.Empty(t, result.Records)
	assert.Empty(t, result.UnknownSpecies)
	assert.Empty(t, result.UnknownLocations)
}

func TestPipeline_Run_HappyPath(t *testing.T) {
	p := newTestPipeline(t, 2)
	sink := &captureSink{}

	pages := []pipeline.PageText{
		{ID: "p1", Year: 2008, Text: "August 1 2008|2 Shelduck at Mostyn Bank."},
		{ID: "p2", Year: 2008, Text: "August 2 2008|1 Curlew at Point of Ayr."},
	}

	err := p.Run(context.Background(), pages, sink)
	require.NoError(t, err)
	require.Len(t, sink.results, 2)
	assert.Len(t, sink.results[0].Records, 1)
	assert.Len(t, sink.results[1].Records, 1)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ResultsInInputOrder(t *testing.T) {
	p := newTestPipeline(t, 4)
	sink := &captureSink{}

	var pages []pipeline.PageText
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		pages = append(pages, pipeline.PageText{
			ID:   id,
			Year: 2008,
			Text: "August 1 2008|2 Shelduck at Mostyn Bank.",
		})
	}

	require.NoError(t, p.Run(context.Background(), pages, sink))
	require.Len(t, sink.results, len(pages))
	for i, page := range pages {
		assert.Equal(t, page.ID, sink.results[i].PageID)
	}
}

func TestPipeline_Run_SinkError(t *testing.T) {
	p := newTestPipeline(t, 1)
	sinkErr := errors.New("disk full")
	sink := &captureSink{err: sinkErr}

	pages := []pipeline.PageText{
		{ID: "p1", Year: 2008, Text: "August 1 2008|2 Shelduck at Mostyn Bank."},
	}

	err := p.Run(context.Background(), pages, sink)
	require.Error(t, err)
	assert.ErrorIs(t, err, sinkErr)
	assert.Contains(t, err.Error(), "p1")
}

func TestPipeline_Run_CancelledContext(t *testing.T) {
	p := newTestPipeline(t, 2)
	sink := &captureSink{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pages := []pipeline.PageText{
		{ID: "p1", Year: 2008, Text: "August 1 2008|2 Shelduck at Mostyn Bank."},
	}

	err := p.Run(ctx, pages, sink)
	require.Error(t, err)
	assert.Empty(t, sink.results)
}

func TestPipeline_CheckReadiness(t *testing.T) {
	p := newTestPipeline(t, 1)

	err := p.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not processed any pages")

	p.ProcessPage(context.Background(), pipeline.PageText{ID: "p1", Year: 2008})
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_AggregatesUnknownTokens(t *testing.T) {
	p := newTestPipeline(t, 1)
	sink := &captureSink{}

	pages := []pipeline.PageText{
		{ID: "p1", Year: 2008, Text: "August 1 2008|1 Doodlebird at Mostyn Bank."},
		{ID: "p2", Year: 2008, Text: "August 2 2008|2 Doodlebird at Mostyn Bank.1 Shelduck at Atlantis."},
	}

	require.NoError(t, p.Run(context.Background(), pages, sink))

	assert.Equal(t, map[string]int{"Doodlebird": 2}, p.UnknownSpecies().Counts())
	assert.Equal(t, map[string]int{"Atlantis": 1}, p.UnknownLocations().Counts())
	assert.Equal(t, []string{"Doodlebird"}, p.UnknownSpecies().Tokens())
}

func TestMultiSink_FansOut(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}
	sink := pipeline.MultiSink(a, b)

	result := pipeline.PageResult{PageID: "l2008aug"}
	require.NoError(t, sink.WritePage(context.Background(), result))

	require.Len(t, a.results, 1)
	require.Len(t, b.results, 1)
	assert.Equal(t, "l2008aug", a.results[0].PageID)
}

func TestMultiSink_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	a := &captureSink{err: boom}
	b := &captureSink{}
	sink := pipeline.MultiSink(a, b)

	err := sink.WritePage(context.Background(), pipeline.PageResult{PageID: "l2008aug"})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, b.results)
}
