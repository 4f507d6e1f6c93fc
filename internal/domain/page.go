package domain

import "math"

// PageRequest selects a 1-based page of results.
type PageRequest struct {
	Page int
	Per  int
}

// Offset returns the number of rows to skip. Pages too far out to address
// saturate at math.MaxInt, which is past the end of any result set.
func (p PageRequest) Offset() int {
	if p.Page <= 1 || p.Per <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Per {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Per
}

// PageMetadata describes a returned page.
type PageMetadata struct {
	Page  int
	Per   int
	Total int
}

// Page is a stable-ordered slice of a larger result set.
type Page[T any] struct {
	Items    []T
	Metadata PageMetadata
}
