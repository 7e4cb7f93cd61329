// Package query validates and defaults exposure store queries before
// they reach a backend. Backends trust their callers; anything built
// from operator or host input goes through Validate first.
package query

import (
	"fmt"

	"edgelab-hq/tessera/pkg/exposure"
)

const (
	// DefaultLimit is the number of records returned when the query does
	// not specify one.
	DefaultLimit = 100

	// MaxLimit caps how many records a single query may request. Larger
	// reads page with Offset.
	MaxLimit = 10000
)

// ValidSortOrders contains the valid sort orders.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

// Validate checks a query's parameters, returning a QueryError naming
// the first invalid one.
func Validate(q *exposure.Query) error {
	if q.Limit < 0 {
		return exposure.NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return exposure.NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}

	if q.Offset < 0 {
		return exposure.NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}

	if q.SortOrder != "" && !ValidSortOrders[q.SortOrder] {
		return exposure.NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}

	if q.StartTime != nil && q.EndTime != nil {
		if q.StartTime.After(*q.EndTime) {
			return exposure.NewQueryError(q, fmt.Errorf("start_time must be before end_time"))
		}
	}

	return nil
}

// ApplyDefaults fills in the default limit and sort order.
func ApplyDefaults(q *exposure.Query) {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}
