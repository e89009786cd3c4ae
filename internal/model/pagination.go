package model

const (
	DefaultPageLimit = 12
	MaxPageLimit     = 100
)

// PageRequest is the page/limit pair read from query parameters.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps the request to a valid page and limit.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset is the number of rows to skip for this page.
func (p PageRequest) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Page describes the position of a list response within the full result set.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPage builds pagination metadata for total matching rows.
func NewPage(req PageRequest, total int) Page {
	n := req.Normalize()
	return Page{
		Page:  n.Page,
		Limit: n.Limit,
		Total: total,
		Pages: (total + n.Limit - 1) / n.Limit,
	}
}
