// internal/model/pagination.go
package model

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest is a 1-based page request, normalised by Normalize.
type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p PageRequest) Offset() int { return (p.Page - 1) * p.PageSize }

func (p PageRequest) Limit() int { return p.PageSize }

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

func NewPagination(p PageRequest, total int) Pagination {
	return Pagination{
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalCount: total,
		TotalPages: (total + p.PageSize - 1) / p.PageSize,
	}
}
