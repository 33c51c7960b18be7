package pagination

const (
	// DefaultPage is the first page when no page is provided.
	DefaultPage = 1
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any page query can request.
	MaxLimit = 100
)

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Meta describes the position of a page within the full result set.
type Meta struct {
	Total           int64 `json:"total"`
	Page            int   `json:"page"`
	Limit           int   `json:"limit"`
	TotalPages      int   `json:"totalPages"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// Normalize enforces the configured defaults and the maximum limit.
func Normalize(p Params) Params {
	if p.Page <= 0 {
		p.Page = DefaultPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Params) Offset() int {
	n := Normalize(p)
	return (n.Page - 1) * n.Limit
}

// NewMeta computes page metadata: totalPages = ceil(total/limit).
func NewMeta(total int64, p Params) Meta {
	n := Normalize(p)
	totalPages := int((total + int64(n.Limit) - 1) / int64(n.Limit))
	return Meta{
		Total:           total,
		Page:            n.Page,
		Limit:           n.Limit,
		TotalPages:      totalPages,
		HasNextPage:     n.Page < totalPages,
		HasPreviousPage: n.Page > 1,
	}
}
