// Package console holds the screen-side controllers of the admin console:
// the paginated fetch controller driving each list screen and the mutation
// controller that submits changes and reconciles the list afterwards.
package console

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tambolaadmin/internal/api"
	"tambolaadmin/internal/logger"
)

// Status is the request lifecycle of a list screen.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Params are the list parameters sent with each fetch.
type Params struct {
	Page    int
	Limit   int
	Search  string
	Filters map[string]string
}

func (p Params) clone() Params {
	c := p
	if p.Filters != nil {
		c.Filters = make(map[string]string, len(p.Filters))
		for k, v := range p.Filters {
			c.Filters[k] = v
		}
	}
	return c
}

// Page is one server page of records.
type Page[T any] struct {
	Items      []T
	Total      int
	TotalPages int
}

// FetchFunc performs the remote fetch for one set of parameters.
type FetchFunc[T any] func(ctx context.Context, p Params) (Page[T], error)

// State is a snapshot of a query for rendering.
type State[T any] struct {
	Page         int
	Limit        int
	Search       string
	Filters      map[string]string
	Status       Status
	Items        []T
	Total        int
	TotalPages   int
	ErrorMessage string
}

// Query drives one paginated, filterable list screen. Parameter changes
// trigger a fetch; when fetches overlap, only the most recently issued
// request's response is applied (last-request-wins, tracked by an explicit
// generation counter). A failed fetch keeps the previous items so the screen
// stays stale-but-valid.
type Query[T any] struct {
	mu     sync.Mutex
	fetch  FetchFunc[T]
	name   string
	fallbk string

	params Params
	status Status
	items  []T
	total  int
	pages  int
	errMsg string

	// gen is the generation of the most recently issued request; responses
	// carrying an older generation are discarded on arrival.
	gen uint64
	// version increments on every applied state change.
	version  uint64
	watchers []chan struct{}
}

// QueryOption configures a Query.
type QueryOption func(*queryOpts)

type queryOpts struct {
	name    string
	fallbk  string
	limit   int
	filters map[string]string
}

// WithName names the query in log lines.
func WithName(name string) QueryOption {
	return func(o *queryOpts) { o.name = name }
}

// WithErrorFallback sets the message shown when a failure carries none.
func WithErrorFallback(msg string) QueryOption {
	return func(o *queryOpts) { o.fallbk = msg }
}

// WithLimit sets the initial page size.
func WithLimit(limit int) QueryOption {
	return func(o *queryOpts) {
		if limit > 0 {
			o.limit = limit
		}
	}
}

// WithFilters sets the initial filter set.
func WithFilters(filters map[string]string) QueryOption {
	return func(o *queryOpts) { o.filters = filters }
}

// NewQuery creates an idle query starting at page 1. No fetch is issued
// until a parameter changes or Refresh/Reload is called.
func NewQuery[T any](fetch FetchFunc[T], opts ...QueryOption) *Query[T] {
	o := queryOpts{name: "query", fallbk: "Error loading data", limit: 10}
	for _, opt := range opts {
		opt(&o)
	}
	return &Query[T]{
		fetch:  fetch,
		name:   o.name,
		fallbk: o.fallbk,
		params: Params{Page: 1, Limit: o.limit, Filters: o.filters},
		status: StatusIdle,
	}
}

// State returns a snapshot of the query.
func (q *Query[T]) State() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	p := q.params.clone()
	return State[T]{
		Page:         p.Page,
		Limit:        p.Limit,
		Search:       p.Search,
		Filters:      p.Filters,
		Status:       q.status,
		Items:        q.items,
		Total:        q.total,
		TotalPages:   q.pages,
		ErrorMessage: q.errMsg,
	}
}

// Version returns the current state version.
func (q *Query[T]) Version() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.version
}

// Watch registers a new subscription and returns its channel, signaled after
// every state change from then on. Each caller gets its own channel so
// consumers never steal one another's signals; the channel is buffered with
// one slot and consumers re-read State after each receive. Callers that stop
// listening should Unwatch to release the subscription.
func (q *Query[T]) Watch() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch := make(chan struct{}, 1)
	q.watchers = append(q.watchers, ch)
	return ch
}

// Unwatch removes a subscription returned by Watch.
func (q *Query[T]) Unwatch(ch <-chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.watchers {
		if (<-chan struct{})(w) == ch {
			q.watchers = append(q.watchers[:i], q.watchers[i+1:]...)
			return
		}
	}
}

// SetPage moves to another page, preserving search and filters.
func (q *Query[T]) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	q.mu.Lock()
	if q.params.Page == page {
		q.mu.Unlock()
		return
	}
	q.params.Page = page
	g, p := q.triggerLocked()
	q.mu.Unlock()
	go q.run(g, p)
}

// SetLimit changes the page size and resets to page 1, since the old page
// index may lie beyond the re-chunked result set.
func (q *Query[T]) SetLimit(limit int) {
	if limit <= 0 {
		return
	}
	q.mu.Lock()
	if q.params.Limit == limit {
		q.mu.Unlock()
		return
	}
	q.params.Limit = limit
	q.params.Page = 1
	g, p := q.triggerLocked()
	q.mu.Unlock()
	go q.run(g, p)
}

// SetSearch changes the search term and resets to page 1 so the request
// never targets a page beyond the narrowed result set.
func (q *Query[T]) SetSearch(search string) {
	q.mu.Lock()
	if q.params.Search == search {
		q.mu.Unlock()
		return
	}
	q.params.Search = search
	q.params.Page = 1
	g, p := q.triggerLocked()
	q.mu.Unlock()
	go q.run(g, p)
}

// SetFilter changes one filter and resets to page 1. An empty value removes
// the filter entirely; a blank filter means unfiltered.
func (q *Query[T]) SetFilter(key, value string) {
	q.mu.Lock()
	if q.params.Filters == nil {
		q.params.Filters = make(map[string]string)
	}
	if q.params.Filters[key] == value {
		q.mu.Unlock()
		return
	}
	if value == "" {
		delete(q.params.Filters, key)
	} else {
		q.params.Filters[key] = value
	}
	q.params.Page = 1
	g, p := q.triggerLocked()
	q.mu.Unlock()
	go q.run(g, p)
}

// Refresh re-issues the fetch with the current parameters, without touching
// the page.
func (q *Query[T]) Refresh() {
	q.mu.Lock()
	g, p := q.triggerLocked()
	q.mu.Unlock()
	go q.run(g, p)
}

// Reload performs the fetch synchronously with the current parameters. The
// result is still subject to last-request-wins against concurrent triggers.
func (q *Query[T]) Reload(ctx context.Context) error {
	q.mu.Lock()
	g, p := q.triggerLocked()
	q.mu.Unlock()
	res, err := q.fetch(ctx, p)
	q.apply(g, res, err)
	return err
}

// triggerLocked issues a new request generation and marks the query loading.
// Callers hold q.mu.
func (q *Query[T]) triggerLocked() (uint64, Params) {
	q.gen++
	q.status = StatusLoading
	q.bumpLocked()
	return q.gen, q.params.clone()
}

func (q *Query[T]) run(gen uint64, p Params) {
	res, err := q.fetch(context.Background(), p)
	q.apply(gen, res, err)
}

// apply reconciles one response. A response whose generation is no longer
// the latest is discarded so out-of-order arrivals cannot clobber newer
// state.
func (q *Query[T]) apply(gen uint64, res Page[T], err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if gen != q.gen {
		logger.Debug(0, "query_stale_response", fmt.Sprintf("query=%s gen=%d latest=%d", q.name, gen, q.gen))
		return
	}
	if err != nil {
		q.status = StatusError
		q.errMsg = api.Message(err, q.fallbk)
		logger.Error(0, "query_fetch_failed", fmt.Sprintf("query=%s error=%v", q.name, err))
	} else {
		q.status = StatusSuccess
		q.items = res.Items
		q.total = res.Total
		q.pages = res.TotalPages
		q.errMsg = ""
		logger.Debug(0, "query_fetch_applied", fmt.Sprintf("query=%s items=%d total=%d", q.name, len(res.Items), res.Total))
	}
	q.bumpLocked()
}

func (q *Query[T]) bumpLocked() {
	q.version++
	for _, w := range q.watchers {
		select {
		case w <- struct{}{}:
		default:
		}
	}
}

// Await blocks until the query settles on Success or Error, or the timeout
// elapses, and returns the state at that point. It is the thin binding layer
// between the asynchronous controller and a synchronous UI handler.
func Await[T any](q *Query[T], timeout time.Duration) State[T] {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ch := q.Watch()
	defer q.Unwatch(ch)
	for {
		st := q.State()
		if st.Status == StatusSuccess || st.Status == StatusError {
			return st
		}
		select {
		case <-ch:
		case <-deadline.C:
			return q.State()
		}
	}
}
