package models

import "fmt"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) Validate() error {
	if p.Page < 1 {
		return fmt.Errorf("page must be >= 1, got %d", p.Page)
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		return fmt.Errorf("page_size must be between 1 and %d, got %d", MaxPageSize, p.PageSize)
	}
	return nil
}

func (p PageRequest) Offset() int { return (p.Page - 1) * p.PageSize }

type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func NewPage[T any](items []T, total int64, req PageRequest) *Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := int(total) / req.PageSize
	if int(total)%req.PageSize > 0 {
		totalPages++
	}
	return &Page[T]{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}
}
