package query

type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pagination tells the client which neighbouring pages exist.
type Pagination struct {
	Next *PageRef `json:"next,omitempty"`
	Prev *PageRef `json:"prev,omitempty"`
}

// Paginate computes the neighbouring pages for a result set of total matches.
func (p *Plan) Paginate(total int64) Pagination {
	var pagination Pagination
	startIndex := p.Skip()
	endIndex := int64(p.Page) * int64(p.Limit)

	if endIndex < total {
		pagination.Next = &PageRef{Page: p.Page + 1, Limit: p.Limit}
	}
	if startIndex > 0 {
		pagination.Prev = &PageRef{Page: p.Page - 1, Limit: p.Limit}
	}
	return pagination
}

// TotalPages is ceil(total / limit).
func (p *Plan) TotalPages(total int64) int {
	if p.Limit <= 0 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}
