package repository

// Page selects a window of a listing.  Page is 1-based.
type Page struct {
	Page  int
	Limit int
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// Pages returns how many pages hold total rows.
func (p Page) Pages(total int) int {
	p = p.Normalize()
	return (total + p.Limit - 1) / p.Limit
}
