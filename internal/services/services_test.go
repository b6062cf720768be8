package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"nasa-explorer/internal/domain"
	"nasa-explorer/internal/filter"
	"nasa-explorer/internal/query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubFetcher answers each call with the next queued result
type stubFetcher struct {
	mu      sync.Mutex
	results []domain.FetchResult
	calls   []domain.QueryDescriptor
}

func (f *stubFetcher) Fetch(_ context.Context, q domain.QueryDescriptor) domain.FetchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q)
	if len(f.results) == 0 {
		return domain.ErrResult(domain.Network(errors.New("no stub result")))
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r
}

type memHistory struct {
	mu      sync.Mutex
	entries []domain.LoadEntry
	failing bool
}

func (h *memHistory) Insert(_ context.Context, e domain.LoadEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failing {
		return errors.New("db down")
	}
	e.ID = int64(len(h.entries) + 1)
	h.entries = append(h.entries, e)
	return nil
}

func (h *memHistory) ListRecent(_ context.Context, limit int) ([]domain.LoadEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []domain.LoadEntry{}
	for i := len(h.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.entries[i])
	}
	return out, nil
}

func (h *memHistory) Latest(_ context.Context, r domain.Resource) (*domain.LoadEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].Resource == r {
			e := h.entries[i]
			return &e, nil
		}
	}
	return nil, nil
}

func ok(body string) domain.FetchResult {
	return domain.OkResult(json.RawMessage(body))
}

var fixedNow = time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

func newService(f Fetcher, opts ...Option) *ExplorerService {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewExplorerService(query.NewBuilder(), f, zap.NewNop(), opts...)
}

const neoBody = `{"near_earth_objects":{
	"2024-01-02":[{"id":"a","absolute_magnitude_h":5,"is_potentially_hazardous_asteroid":true,
	               "close_approach_data":[{"miss_distance":{"kilometers":"900"}}]}],
	"2024-01-01":[{"id":"b","close_approach_data":[{"miss_distance":{"kilometers":"n/a"}}]},
	              {"id":"c","absolute_magnitude_h":3,"is_potentially_hazardous_asteroid":true,
	               "close_approach_data":[{"miss_distance":{"kilometers":"100"}}]}]
}}`

var neoControls = query.Controls{StartDate: "2024-01-01", EndDate: "2024-01-02"}

func recordIDs(v domain.ViewState) []string {
	out := []string{}
	for _, r := range v.LastRecords {
		out = append(out, r.ID)
	}
	return out
}

func TestLoadNeoDefaultOrder(t *testing.T) {
	f := &stubFetcher{results: []domain.FetchResult{ok(neoBody)}}
	s := newService(f)

	view, err := s.Load(context.Background(), domain.ResourceNeoFeed, LoadRequest{Controls: neoControls})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, recordIDs(view))
	assert.False(t, view.IsLoading)
	assert.False(t, view.NoResults)
	assert.Empty(t, view.LastError)
	require.NotNil(t, view.LastQuery)
	assert.Equal(t, "2024-01-01", view.LastQuery.Param("start_date"))
	assert.Len(t, f.calls, 1)
}

func TestLoadNeoFilterAndSort(t *testing.T) {
	f := &stubFetcher{results: []domain.FetchResult{ok(neoBody)}}
	s := newService(f)

	view, err := s.Load(context.Background(), domain.ResourceNeoFeed, LoadRequest{
		Controls: neoControls,
		Filters:  filter.Filters{HazardousOnly: true},
		Sort:     filter.SortClosestApproach,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, recordIDs(view))

	all, err := s.View(domain.ResourceNeoFeed, filter.Filters{}, filter.SortClosestApproach)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, recordIDs(all))
	assert.Len(t, f.calls, 1, "re-filtering must not fetch")
}

func TestValidationNeverFetches(t *testing.T) {
	f := &stubFetcher{}
	h := &memHistory{}
	s := newService(f, WithHistory(h))

	view, err := s.Load(context.Background(), domain.ResourceNeoFeed, LoadRequest{
		Controls: query.Controls{StartDate: "2024-01-01", EndDate: "2024-01-09"},
	})
	require.Error(t, err)
	fail, isFailure := domain.AsFailure(err)
	require.True(t, isFailure)
	assert.Equal(t, domain.KindValidation, fail.Kind)
	assert.Equal(t, "The range cannot exceed 7 days.", view.LastError)
	assert.False(t, view.IsLoading)
	assert.Empty(t, f.calls)

	require.Len(t, h.entries, 1)
	assert.Equal(t, domain.OutcomeError, h.entries[0].Outcome)
	assert.Equal(t, domain.KindValidation, h.entries[0].FailureKind)
}

func TestHTTPErrorKeepsPreviousRecords(t *testing.T) {
	f := &stubFetcher{results: []domain.FetchResult{
		ok(neoBody),
		domain.ErrResult(domain.HTTPStatus(429, "OVER_RATE_LIMIT")),
	}}
	s := newService(f)
	ctx := context.Background()

	_, err := s.Load(ctx, domain.ResourceNeoFeed, LoadRequest{Controls: neoControls})
	require.NoError(t, err)

	view, err := s.Load(ctx, domain.ResourceNeoFeed, LoadRequest{Controls: neoControls})
	require.Error(t, err)
	fail, _ := domain.AsFailure(err)
	assert.Equal(t, domain.KindHTTP, fail.Kind)
	assert.Equal(t, 429, fail.Status)

	assert.Equal(t, domain.KindHTTP, view.FailureKind)
	assert.Contains(t, view.LastError, "rate-limited")
	assert.Equal(t, []string{"c", "b", "a"}, recordIDs(view))
	assert.False(t, view.IsLoading)
}

func TestMalformedBody(t *testing.T) {
	f := &stubFetcher{results: []domain.FetchResult{ok(`{"unexpected":true}`)}}
	s := newService(f)

	view, err := s.Load(context.Background(), domain.ResourceMarsPhotos, LoadRequest{})
	require.Error(t, err)
	fail, _ := domain.AsFailure(err)
	assert.Equal(t, domain.KindMalformed, fail.Kind)
	assert.Equal(t, domain.KindMalformed, view.FailureKind)
	assert.Empty(t, view.LastRecords)
}

func TestEmptyPhotosIsNoResultsNotError(t *testing.T) {
	f := &stubFetcher{results: []domain.FetchResult{ok(`{"photos":[]}`)}}
	h := &memHistory{}
	s := newService(f, WithHistory(h))

	view, err := s.Load(context.Background(), domain.ResourceMarsPhotos, LoadRequest{
		Controls: query.Controls{Rover: "curiosity", Camera: "MAST", EarthDate: "2024-01-01"},
	})
	require.NoError(t, err)
	assert.True(t, view.NoResults)
	assert.Empty(t, view.LastError)
	assert.Empty(t, view.LastRecords)

	require.Len(t, h.entries, 1)
	assert.Equal(t, domain.OutcomeEmpty, h.entries[0].Outcome)
}

func TestSearchCursor(t *testing.T) {
	items := make([]map[string]interface{}, 100)
	for i := range items {
		items[i] = map[string]interface{}{"data": []map[string]string{{"nasa_id": "x"}}}
	}
	body, err := json.Marshal(map[string]interface{}{
		"collection": map[string]interface{}{"items": items, "metadata": map[string]int{"total_hits": 250}},
	})
	require.NoError(t, err)

	f := &stubFetcher{results: []domain.FetchResult{ok(string(body))}}
	s := newService(f)

	view, err := s.Load(context.Background(), domain.ResourceImageSearch, LoadRequest{
		Controls: query.Controls{Query: "moon", Page: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PageCursor{Page: 2, TotalHits: 250, EstimatedPages: 3, HasPrev: true, HasNext: true}, view.PageCursor)
}

func TestFailedLoadKeepsQueryMatchingRecords(t *testing.T) {
	f := &stubFetcher{results: []domain.FetchResult{
		ok(`{"collection":{"items":[{"data":[{"nasa_id":"p1"}]}],"metadata":{"total_hits":150}}}`),
		domain.ErrResult(domain.HTTPStatus(500, "")),
	}}
	s := newService(f)
	ctx := context.Background()

	_, err := s.Load(ctx, domain.ResourceImageSearch, LoadRequest{Controls: query.Controls{Query: "moon", Page: 1}})
	require.NoError(t, err)

	view, err := s.Load(ctx, domain.ResourceImageSearch, LoadRequest{Controls: query.Controls{Query: "moon", Page: 2}})
	require.Error(t, err)

	require.NotNil(t, view.LastQuery)
	assert.Equal(t, 1, view.LastQuery.Page())
	assert.Equal(t, 1, view.PageCursor.Page)
	assert.Equal(t, []string{"p1"}, recordIDs(view))

	require.NotNil(t, view.FailedQuery)
	assert.Equal(t, 2, view.FailedQuery.Page())
	assert.Equal(t, domain.KindHTTP, view.FailureKind)
}

func TestSuccessClearsFailedQuery(t *testing.T) {
	f := &stubFetcher{results: []domain.FetchResult{
		domain.ErrResult(domain.Network(errors.New("refused"))),
		ok(neoBody),
	}}
	s := newService(f)
	ctx := context.Background()

	view, err := s.Load(ctx, domain.ResourceNeoFeed, LoadRequest{Controls: neoControls})
	require.Error(t, err)
	assert.Nil(t, view.LastQuery)
	assert.NotNil(t, view.FailedQuery)

	view, err = s.Load(ctx, domain.ResourceNeoFeed, LoadRequest{Controls: neoControls})
	require.NoError(t, err)
	assert.NotNil(t, view.LastQuery)
	assert.Nil(t, view.FailedQuery)
	assert.Empty(t, view.LastError)
}

func TestHistoryFailureDoesNotFailLoad(t *testing.T) {
	f := &stubFetcher{results: []domain.FetchResult{ok(`{"title":"t","date":"2024-01-01","media_type":"image","url":"https://x/y.jpg"}`)}}
	s := newService(f, WithHistory(&memHistory{failing: true}))

	view, err := s.Load(context.Background(), domain.ResourceApod, LoadRequest{})
	require.NoError(t, err)
	assert.Len(t, view.LastRecords, 1)
}

func TestHistoryDisabled(t *testing.T) {
	s := newService(&stubFetcher{})
	entries, err := s.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	latest, err := s.LatestLoad(context.Background(), domain.ResourceApod)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

// gatedFetcher blocks each call until its gate is released
type gatedFetcher struct {
	gates   map[string]chan struct{}
	started chan string
	bodies  map[string]string
}

func (g *gatedFetcher) Fetch(ctx context.Context, q domain.QueryDescriptor) domain.FetchResult {
	key := q.Param("start_date")
	g.started <- key
	select {
	case <-g.gates[key]:
	case <-ctx.Done():
		return domain.ErrResult(domain.Network(ctx.Err()))
	}
	return ok(g.bodies[key])
}

// Two overlapping loads are not sequenced. The one that commits last wins,
// even when it was issued first. This documents a known race rather than a
// guarantee.
func TestOverlappingLoadsLastCommitWins(t *testing.T) {
	g := &gatedFetcher{
		gates:   map[string]chan struct{}{"2024-01-01": make(chan struct{}), "2024-02-01": make(chan struct{})},
		started: make(chan string, 2),
		bodies: map[string]string{
			"2024-01-01": `{"near_earth_objects":{"2024-01-01":[{"id":"first"}]}}`,
			"2024-02-01": `{"near_earth_objects":{"2024-02-01":[{"id":"second"}]}}`,
		},
	}
	s := newService(g)
	ctx := context.Background()

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = s.Load(ctx, domain.ResourceNeoFeed, LoadRequest{Controls: query.Controls{StartDate: "2024-01-01", EndDate: "2024-01-02"}})
	}()
	require.Equal(t, "2024-01-01", <-g.started)

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		_, _ = s.Load(ctx, domain.ResourceNeoFeed, LoadRequest{Controls: query.Controls{StartDate: "2024-02-01", EndDate: "2024-02-02"}})
	}()
	require.Equal(t, "2024-02-01", <-g.started)

	close(g.gates["2024-02-01"])
	<-secondDone

	mid, err := s.View(domain.ResourceNeoFeed, filter.Filters{}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, recordIDs(mid))
	assert.True(t, mid.IsLoading, "first load is still outstanding")

	close(g.gates["2024-01-01"])
	<-firstDone

	final, err := s.View(domain.ResourceNeoFeed, filter.Filters{}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, recordIDs(final))
	assert.False(t, final.IsLoading)
}

func TestSummaryLoadsBothViews(t *testing.T) {
	g := &routeFetcher{bodies: map[domain.Resource]domain.FetchResult{
		domain.ResourceApod:    ok(`{"title":"t","date":"2024-01-05","media_type":"image","url":"https://x/y.jpg"}`),
		domain.ResourceNeoFeed: domain.ErrResult(domain.HTTPStatus(503, "")),
	}}
	s := newService(g)

	sum, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Len(t, sum.Apod.LastRecords, 1)
	assert.Equal(t, domain.KindHTTP, sum.Neo.FailureKind)

	g.mu.Lock()
	defer g.mu.Unlock()
	require.Contains(t, g.seen, domain.ResourceNeoFeed)
	neo := g.seen[domain.ResourceNeoFeed]
	assert.Equal(t, "2024-01-02", neo.Param("start_date"))
	assert.Equal(t, "2024-01-05", neo.Param("end_date"))
}

func TestSummaryFailureDoesNotCancelSibling(t *testing.T) {
	neoFailed := make(chan struct{})
	f := fetchFunc(func(ctx context.Context, q domain.QueryDescriptor) domain.FetchResult {
		if q.Resource() == domain.ResourceNeoFeed {
			defer close(neoFailed)
			return domain.ErrResult(domain.HTTPStatus(503, ""))
		}
		<-neoFailed
		if ctx.Err() != nil {
			return domain.ErrResult(domain.Network(ctx.Err()))
		}
		return ok(`{"title":"t","date":"2024-01-05","media_type":"image","url":"https://x/y.jpg"}`)
	})
	s := newService(f)

	sum, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sum.Apod.LastError)
	assert.Len(t, sum.Apod.LastRecords, 1)
	assert.Equal(t, domain.KindHTTP, sum.Neo.FailureKind)
}

type fetchFunc func(ctx context.Context, q domain.QueryDescriptor) domain.FetchResult

func (f fetchFunc) Fetch(ctx context.Context, q domain.QueryDescriptor) domain.FetchResult {
	return f(ctx, q)
}

type routeFetcher struct {
	mu     sync.Mutex
	bodies map[domain.Resource]domain.FetchResult
	seen   map[domain.Resource]domain.QueryDescriptor
}

func (r *routeFetcher) Fetch(_ context.Context, q domain.QueryDescriptor) domain.FetchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen == nil {
		r.seen = map[domain.Resource]domain.QueryDescriptor{}
	}
	r.seen[q.Resource()] = q
	return r.bodies[q.Resource()]
}

func TestUnknownResource(t *testing.T) {
	s := newService(&stubFetcher{})
	_, err := s.Load(context.Background(), domain.Resource("donki"), LoadRequest{})
	require.Error(t, err)
	_, err = s.View(domain.Resource("donki"), filter.Filters{}, "")
	require.Error(t, err)
}
