package domain

import (
	"encoding/json"
	"net/url"
	"time"
)

// QueryDescriptor is an immutable, validated description of one load action.
// Build it with the query package; it is never mutated after construction.
type QueryDescriptor struct {
	resource Resource
	rover    string
	params   url.Values
	start    time.Time
	end      time.Time
	page     int
}

// QueryOption sets an optional part of a descriptor at construction time
type QueryOption func(*QueryDescriptor)

// WithRover sets the rover path segment
func WithRover(rover string) QueryOption {
	return func(q *QueryDescriptor) { q.rover = rover }
}

// WithRange sets the date bounds
func WithRange(start, end time.Time) QueryOption {
	return func(q *QueryDescriptor) {
		q.start = start
		q.end = end
	}
}

// WithPage sets the pagination cursor
func WithPage(page int) QueryOption {
	return func(q *QueryDescriptor) { q.page = page }
}

// NewQueryDescriptor creates a descriptor owning a copy of params
func NewQueryDescriptor(resource Resource, params url.Values, opts ...QueryOption) QueryDescriptor {
	q := QueryDescriptor{resource: resource, params: cloneValues(params)}
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

func (q QueryDescriptor) Resource() Resource { return q.resource }
func (q QueryDescriptor) Rover() string      { return q.rover }
func (q QueryDescriptor) Start() time.Time   { return q.start }
func (q QueryDescriptor) End() time.Time     { return q.end }
func (q QueryDescriptor) Page() int          { return q.page }

// Param returns a single query parameter
func (q QueryDescriptor) Param(key string) string {
	return q.params.Get(key)
}

// Params returns a copy of the query parameters
func (q QueryDescriptor) Params() url.Values {
	return cloneValues(q.params)
}

// Encode returns the sorted, URL-encoded parameters
func (q QueryDescriptor) Encode() string {
	return q.params.Encode()
}

func (q QueryDescriptor) MarshalJSON() ([]byte, error) {
	params := make(map[string]string, len(q.params))
	for k := range q.params {
		params[k] = q.params.Get(k)
	}
	out := struct {
		Resource Resource          `json:"resource"`
		Rover    string            `json:"rover,omitempty"`
		Params   map[string]string `json:"params"`
		Start    string            `json:"start,omitempty"`
		End      string            `json:"end,omitempty"`
		Page     int               `json:"page,omitempty"`
	}{
		Resource: q.resource,
		Rover:    q.rover,
		Params:   params,
		Page:     q.page,
	}
	if !q.start.IsZero() {
		out.Start = q.start.Format(DateLayout)
	}
	if !q.end.IsZero() {
		out.End = q.end.Format(DateLayout)
	}
	return json.Marshal(out)
}

// DateLayout is the upstream calendar date format
const DateLayout = "2006-01-02"

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
