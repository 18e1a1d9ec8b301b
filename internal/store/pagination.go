package store

// OffsetPage is the page envelope shared by every paginated listing.
type OffsetPage[T any] struct {
	TotalItems  int64 `json:"totalItems"`
	TotalPages  int   `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	PageSize    int   `json:"pageSize"`
	Data        []T   `json:"data"`
}

type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// TotalPages returns ceil(total / pageSize).
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	pages := total / int64(pageSize)
	if total%int64(pageSize) > 0 {
		pages++
	}
	return int(pages)
}

func newOffsetPage[T any](items []T, total int64, page PageRequest) *OffsetPage[T] {
	if items == nil {
		items = []T{}
	}
	return &OffsetPage[T]{
		TotalItems:  total,
		TotalPages:  TotalPages(total, page.PageSize),
		CurrentPage: page.Page,
		PageSize:    page.PageSize,
		Data:        items,
	}
}

// sortClause resolves a whitelisted column and direction into an ORDER BY body.
// Unknown keys fall back to fallback; tieBreak is always appended so paging
// over equal sort keys is deterministic.
func sortClause(columns map[string]string, key, fallback, tieBreak string, desc bool) string {
	column, ok := columns[key]
	if !ok {
		column = columns[fallback]
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return column + " " + dir + ", " + tieBreak + " " + dir
}
