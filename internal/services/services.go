// Package services provides business logic
package services

import (
	"context"
	"sync"
	"time"

	"nasa-explorer/internal/domain"
	"nasa-explorer/internal/filter"
	"nasa-explorer/internal/normalize"
	"nasa-explorer/internal/query"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// searchPageSize is the number of items the image library returns per full page
const searchPageSize = 100

// Fetcher issues one upstream request per descriptor
type Fetcher interface {
	Fetch(ctx context.Context, q domain.QueryDescriptor) domain.FetchResult
}

// HistoryStore persists load outcomes
type HistoryStore interface {
	Insert(ctx context.Context, e domain.LoadEntry) error
	ListRecent(ctx context.Context, limit int) ([]domain.LoadEntry, error)
	Latest(ctx context.Context, resource domain.Resource) (*domain.LoadEntry, error)
}

// LoadRequest is one user load action
type LoadRequest struct {
	Controls query.Controls
	Filters  filter.Filters
	Sort     filter.SortKey
}

// Option configures an ExplorerService
type Option func(*ExplorerService)

// WithHistory enables load history
func WithHistory(h HistoryStore) Option {
	return func(s *ExplorerService) { s.history = h }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *ExplorerService) { s.now = now }
}

// ExplorerService runs the build, fetch, normalize, filter pipeline for every resource
type ExplorerService struct {
	builder *query.Builder
	fetcher Fetcher
	history HistoryStore
	logger  *zap.Logger
	now     func() time.Time
	pages   map[domain.Resource]*Page
}

// NewExplorerService creates a new explorer service with one page per resource
func NewExplorerService(builder *query.Builder, fetcher Fetcher, logger *zap.Logger, opts ...Option) *ExplorerService {
	s := &ExplorerService{
		builder: builder,
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
		pages:   make(map[domain.Resource]*Page, len(domain.Resources)),
	}
	for _, r := range domain.Resources {
		s.pages[r] = &Page{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load runs one load action. The returned view lists records in display
// order. A failure is also returned as error; the view then keeps the
// records of the previous successful load.
func (s *ExplorerService) Load(ctx context.Context, resource domain.Resource, req LoadRequest) (domain.ViewState, error) {
	page, ok := s.pages[resource]
	if !ok {
		return domain.ViewState{}, domain.Validation("resource", "Unknown resource "+string(resource)+".")
	}

	q, err := s.builder.Build(resource, req.Controls)
	if err != nil {
		f, _ := domain.AsFailure(err)
		view := page.reject(f, s.now())
		s.logger.Info("load rejected",
			zap.String("resource", string(resource)),
			zap.String("field", f.Field),
			zap.String("reason", f.Detail))
		s.record(ctx, domain.LoadEntry{
			Resource:    resource,
			Outcome:     domain.OutcomeError,
			FailureKind: f.Kind,
			LoadedAt:    s.now(),
		})
		return display(resource, view, req), f
	}

	page.begin()
	started := s.now()
	res := s.fetcher.Fetch(ctx, q)

	var norm domain.Normalized
	failure := res.Err
	if failure == nil {
		norm, err = normalize.Normalize(resource, res.Body)
		if err != nil {
			failure, _ = domain.AsFailure(err)
		}
	}

	elapsed := s.now().Sub(started)
	entry := domain.LoadEntry{Resource: resource, Query: q.Encode(), LoadedAt: s.now()}

	if failure != nil {
		view := page.fail(q, failure, s.now())
		s.logger.Warn("load failed",
			zap.String("resource", string(resource)),
			zap.String("query", q.Encode()),
			zap.String("kind", string(failure.Kind)),
			zap.Int("status", failure.Status),
			zap.Error(failure),
			zap.Duration("elapsed", elapsed))
		entry.Outcome = domain.OutcomeError
		entry.FailureKind = failure.Kind
		entry.Status = failure.Status
		s.record(ctx, entry)
		return display(resource, view, req), failure
	}

	view := page.succeed(q, norm, s.now())
	s.logger.Info("load complete",
		zap.String("resource", string(resource)),
		zap.String("query", q.Encode()),
		zap.Int("records", len(norm.Records)),
		zap.Duration("elapsed", elapsed))
	entry.Outcome = domain.OutcomeOK
	if view.NoResults {
		entry.Outcome = domain.OutcomeEmpty
	}
	entry.RecordCount = len(norm.Records)
	s.record(ctx, entry)
	return display(resource, view, req), nil
}

// View re-applies filters and ordering to the last loaded records without fetching
func (s *ExplorerService) View(resource domain.Resource, f filter.Filters, sort filter.SortKey) (domain.ViewState, error) {
	page, ok := s.pages[resource]
	if !ok {
		return domain.ViewState{}, domain.Validation("resource", "Unknown resource "+string(resource)+".")
	}
	return display(resource, page.Snapshot(), LoadRequest{Filters: f, Sort: sort}), nil
}

// Summary loads APOD and the default NEO range concurrently. Each is an
// independent load action on its own page; a failure lands in that page's
// view and never cancels the other load.
func (s *ExplorerService) Summary(ctx context.Context) (domain.Summary, error) {
	start, end := query.DefaultNeoRange(s.now())

	var sum domain.Summary
	var g errgroup.Group
	g.Go(func() error {
		sum.Apod, _ = s.Load(ctx, domain.ResourceApod, LoadRequest{})
		return nil
	})
	g.Go(func() error {
		sum.Neo, _ = s.Load(ctx, domain.ResourceNeoFeed, LoadRequest{
			Controls: query.Controls{StartDate: start, EndDate: end},
		})
		return nil
	})
	_ = g.Wait()
	return sum, ctx.Err()
}

// History lists recent load actions; empty when history is disabled
func (s *ExplorerService) History(ctx context.Context, limit int) ([]domain.LoadEntry, error) {
	if s.history == nil {
		return []domain.LoadEntry{}, nil
	}
	return s.history.ListRecent(ctx, limit)
}

// LatestLoad returns the last recorded load action for a resource
func (s *ExplorerService) LatestLoad(ctx context.Context, resource domain.Resource) (*domain.LoadEntry, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.Latest(ctx, resource)
}

func (s *ExplorerService) record(ctx context.Context, e domain.LoadEntry) {
	if s.history == nil {
		return
	}
	if err := s.history.Insert(ctx, e); err != nil {
		s.logger.Warn("history insert failed", zap.String("resource", string(e.Resource)), zap.Error(err))
	}
}

// display returns a copy of view whose records are filtered and sorted for presentation
func display(resource domain.Resource, view domain.ViewState, req LoadRequest) domain.ViewState {
	key := req.Sort
	if key == "" {
		key = filter.DefaultSort(resource)
	}
	view.LastRecords = filter.Apply(view.LastRecords, req.Filters, key)
	return view
}

// Page holds the ViewState of one resource. Concurrent loads are not
// sequenced: whichever commits last wins.
type Page struct {
	mu       sync.Mutex
	inflight int
	state    domain.ViewState
}

// Snapshot returns the current state
func (p *Page) Snapshot() domain.ViewState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *Page) snapshot() domain.ViewState {
	v := p.state
	v.LastRecords = append([]domain.Record(nil), p.state.LastRecords...)
	if v.LastRecords == nil {
		v.LastRecords = []domain.Record{}
	}
	return v
}

func (p *Page) begin() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight++
	p.state.IsLoading = true
}

// commit replaces the state with a fresh one derived from the previous state
func (p *Page) commit(next func(prev domain.ViewState) domain.ViewState, fetched bool) domain.ViewState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fetched {
		p.inflight--
	}
	p.state = next(p.state)
	p.state.IsLoading = p.inflight > 0
	return p.snapshot()
}

func (p *Page) succeed(q domain.QueryDescriptor, norm domain.Normalized, at time.Time) domain.ViewState {
	return p.commit(func(domain.ViewState) domain.ViewState {
		return domain.ViewState{
			LastQuery:   &q,
			LastRecords: norm.Records,
			NoResults:   len(norm.Records) == 0,
			PageCursor:  cursor(q, norm),
			UpdatedAt:   at,
		}
	}, true)
}

// fail keeps the previous query, records and cursor together and reports
// the failed query separately
func (p *Page) fail(q domain.QueryDescriptor, f *domain.Failure, at time.Time) domain.ViewState {
	return p.commit(func(prev domain.ViewState) domain.ViewState {
		return domain.ViewState{
			LastQuery:   prev.LastQuery,
			FailedQuery: &q,
			LastRecords: prev.LastRecords,
			NoResults:   prev.NoResults,
			PageCursor:  prev.PageCursor,
			LastError:   f.Message(),
			FailureKind: f.Kind,
			UpdatedAt:   at,
		}
	}, true)
}

// reject surfaces a validation error without touching the loading state
func (p *Page) reject(f *domain.Failure, at time.Time) domain.ViewState {
	return p.commit(func(prev domain.ViewState) domain.ViewState {
		next := prev
		next.LastError = f.Message()
		next.FailureKind = f.Kind
		next.UpdatedAt = at
		return next
	}, false)
}

func cursor(q domain.QueryDescriptor, norm domain.Normalized) domain.PageCursor {
	if q.Resource() != domain.ResourceImageSearch {
		return domain.PageCursor{Page: 1, TotalHits: len(norm.Records), EstimatedPages: 1}
	}
	pages := (norm.TotalHits + searchPageSize - 1) / searchPageSize
	if pages < 1 {
		pages = 1
	}
	return domain.PageCursor{
		Page:           q.Page(),
		TotalHits:      norm.TotalHits,
		EstimatedPages: pages,
		HasPrev:        q.Page() > 1,
		HasNext:        len(norm.Records) >= searchPageSize,
	}
}
