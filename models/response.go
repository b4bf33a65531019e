package models

// APIResponse is the envelope every endpoint writes.
type APIResponse struct {
	Success     bool             `json:"success"`
	Message     string           `json:"message,omitempty"`
	Error       string           `json:"error,omitempty"`
	Count       *int             `json:"count,omitempty"`
	Total       *int64           `json:"total,omitempty"`
	TotalPages  *int             `json:"totalPages,omitempty"`
	CurrentPage *int             `json:"currentPage,omitempty"`
	Pagination  interface{}      `json:"pagination,omitempty"`
	Data        interface{}      `json:"data,omitempty"`
	Errors      ValidationErrors `json:"errors,omitempty"`
}
