// Package pagination implements the limit/offset list contract shared by
// the merchant, transaction, and chat message endpoints.
package pagination

import "gorm.io/gorm"

// ListRequest holds limit/offset parameters parsed from query strings.
type ListRequest struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// Defaults fills in the default limit when none was provided.
func (r *ListRequest) Defaults(defaultLimit int) {
	if r.Limit == 0 {
		r.Limit = defaultLimit
	}
}

// PageResponse wraps a window of items with the total count.
type PageResponse[T any] struct {
	Items  []T   `json:"items"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

// NewPageResponse creates a PageResponse, normalizing nil slices.
func NewPageResponse[T any](items []T, req ListRequest, total int64) *PageResponse[T] {
	if items == nil {
		items = []T{}
	}
	return &PageResponse[T]{
		Items:  items,
		Limit:  req.Limit,
		Offset: req.Offset,
		Total:  total,
	}
}

// Window returns a GORM scope applying OFFSET and LIMIT for the request.
func Window(req ListRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.Offset).Limit(req.Limit)
	}
}
