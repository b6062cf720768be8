// Package filter applies user predicates and ordering to normalized records
package filter

import (
	"cmp"
	"slices"
	"strings"

	"nasa-explorer/internal/domain"
)

// SortKey selects a comparator
type SortKey string

const (
	// SortNone keeps normalization order
	SortNone SortKey = "none"
	// SortByDate orders by primary date, then brightness with missing values last
	SortByDate SortKey = "date"
	// SortClosestApproach orders by miss distance with missing values last
	SortClosestApproach SortKey = "closest"
)

// ParseSortKey maps a query or flag value to a SortKey. Empty is not a key.
func ParseSortKey(s string) (SortKey, bool) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortNone:
		return SortNone, true
	case SortByDate:
		return SortByDate, true
	case SortClosestApproach:
		return SortClosestApproach, true
	}
	return "", false
}

// DefaultSort is the order used when the caller does not pick one
func DefaultSort(r domain.Resource) SortKey {
	if r == domain.ResourceNeoFeed {
		return SortByDate
	}
	return SortNone
}

// Filters holds the active predicates. All active predicates must match.
type Filters struct {
	HazardousOnly bool             `form:"hazardous" json:"hazardous,omitempty"`
	MediaKind     domain.MediaKind `form:"media" json:"media,omitempty"`
	Keyword       string           `form:"keyword" json:"keyword,omitempty"`
}

// Validate rejects a media kind other than image or video
func (f Filters) Validate() error {
	switch f.MediaKind {
	case "", domain.MediaImage, domain.MediaVideo:
		return nil
	}
	return domain.Validation("media", "media must be image or video.")
}

type predicate func(domain.Record) bool

func (f Filters) predicates() []predicate {
	var preds []predicate
	if f.HazardousOnly {
		preds = append(preds, func(r domain.Record) bool { return r.Hazardous })
	}
	if f.MediaKind != "" {
		kind := f.MediaKind
		preds = append(preds, func(r domain.Record) bool { return r.Media != nil && r.Media.Kind == kind })
	}
	if kw := strings.ToLower(strings.TrimSpace(f.Keyword)); kw != "" {
		preds = append(preds, func(r domain.Record) bool {
			return strings.Contains(strings.ToLower(r.Title), kw)
		})
	}
	return preds
}

// Apply returns a new filtered and sorted sequence. records is not modified,
// so the same normalized sequence may be reused with different filters.
func Apply(records []domain.Record, f Filters, key SortKey) []domain.Record {
	preds := f.predicates()
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if matchAll(r, preds) {
			out = append(out, r)
		}
	}

	switch key {
	case SortByDate:
		slices.SortStableFunc(out, byDateThenBrightness)
	case SortClosestApproach:
		slices.SortStableFunc(out, byClosestApproach)
	}
	return out
}

func matchAll(r domain.Record, preds []predicate) bool {
	for _, p := range preds {
		if !p(r) {
			return false
		}
	}
	return true
}

func byClosestApproach(a, b domain.Record) int {
	return compareMissingLast(a.MissDistanceKm, b.MissDistanceKm)
}

// ISO YYYY-MM-DD dates order correctly as strings
func byDateThenBrightness(a, b domain.Record) int {
	if c := strings.Compare(a.PrimaryDate, b.PrimaryDate); c != 0 {
		return c
	}
	return compareMissingLast(a.Brightness, b.Brightness)
}

func compareMissingLast(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}
