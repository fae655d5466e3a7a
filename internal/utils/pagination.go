package utils

import (
	"context"
	"strconv"
)

// Page is one window of a listing.
type Page[T any] struct {
	Rows        []T  `json:"rows"`
	Number      int  `json:"page"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
	// ShowControls is false for a single complete first page.
	ShowControls bool `json:"show_controls"`
}

// ParsePage reads a page number, falling back to 1 for anything that is not
// a positive integer.
func ParsePage(raw string) int {
	p, err := strconv.Atoi(raw)
	if err != nil || p < 1 {
		return 1
	}
	return p
}

// Paginate fetches limit+1 rows for page. The extra row only proves a next
// page exists and is dropped. A page past the end falls back to page 1.
func Paginate[T any](ctx context.Context, page, limit int, fetch func(ctx context.Context, offset, limit int) ([]T, error)) (Page[T], error) {
	if page < 1 {
		page = 1
	}
	rows, err := fetch(ctx, (page-1)*limit, limit+1)
	if err != nil {
		return Page[T]{}, err
	}
	if len(rows) == 0 && page != 1 {
		page = 1
		if rows, err = fetch(ctx, 0, limit+1); err != nil {
			return Page[T]{}, err
		}
	}

	p := Page[T]{
		Number:      page,
		HasNext:     len(rows) == limit+1,
		HasPrevious: page != 1,
	}
	if p.HasNext {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []T{}
	}
	p.Rows = rows
	p.ShowControls = !(page == 1 && !p.HasNext)
	return p, nil
}
