// Package pagination provides page-based request normalization and a generic
// paginated response envelope for list endpoints and repository finders.
package pagination

// Request carries 1-based page parameters, typically decoded from a query
// string. Zero values are replaced with defaults by Normalize.
type Request struct {
	Page int `query:"page" json:"page"`
	Size int `query:"size" json:"size"`
}

// Normalize applies defaults and constraints to the request in place.
func (r *Request) Normalize(opts ...Option) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if r.Page <= 0 {
		r.Page = 1
	}
	if r.Size <= 0 {
		r.Size = o.DefaultSize
	}
	if r.Size > o.MaxSize {
		r.Size = o.MaxSize
	}
}

// Offset returns the row offset for the request.
func (r Request) Offset() int {
	return (r.Page - 1) * r.Size
}

// Limit returns the row limit for the request.
func (r Request) Limit() int {
	return r.Size
}

// Page is a paginated response envelope.
type Page[T any] struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	PageCount  int   `json:"page_count"`
	TotalCount int64 `json:"total_count"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
	Content    []T   `json:"content"`
}

// NewPage assembles a Page from the fetched items and the total match count.
func NewPage[T any](items []T, totalCount int64, req Request) Page[T] {
	size := req.Size
	if size <= 0 {
		size = 1
	}

	pageCount := int(totalCount) / size
	if int(totalCount)%size > 0 {
		pageCount++
	}

	return Page[T]{
		Page:       req.Page,
		Size:       size,
		PageCount:  pageCount,
		TotalCount: totalCount,
		HasNext:    req.Page < pageCount,
		HasPrev:    req.Page > 1 && totalCount > 0,
		Content:    items,
	}
}
