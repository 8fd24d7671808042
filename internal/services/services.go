package services

import (
	"slices"

	"storefront/internal/domain"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string   `json:"userId"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

func (p Principal) HasRole(role string) bool { return slices.Contains(p.Roles, role) }

func (p Principal) IsAdmin() bool { return p.HasRole(string(domain.UserTypeAdmin)) }

// Page is one slice of a paginated listing. Page numbers start at zero.
type Page[T any] struct {
	Content       []T `json:"content"`
	Page          int `json:"page"`
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
}

func newPage[T any](content []T, page, size, total int) Page[T] {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return Page[T]{Content: content, Page: page, Size: size, TotalElements: total, TotalPages: pages}
}
