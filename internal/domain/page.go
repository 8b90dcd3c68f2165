package domain

import "math"

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PagedResult is one page of an account's transaction history.
type PagedResult struct {
	Records    []*TransactionRecord
	Page       int
	PageSize   int
	TotalPages int
	TotalCount int64
}

// TotalPages is ceil(total/pageSize).
func TotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	size := int64(pageSize)
	return int((total + size - 1) / size)
}

// NormalizePage validates page and pageSize and clamps pageSize to MaxPageSize.
// A page whose offset does not fit in an int is out of range.
func NormalizePage(page, pageSize int) (int, int, error) {
	if page < 1 || pageSize < 1 {
		return 0, 0, ErrPageOutOfRange
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page-1 > (math.MaxInt-pageSize)/pageSize {
		return 0, 0, ErrPageOutOfRange
	}
	return page, pageSize, nil
}

// Offset is the number of records before page.
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}

func (p *PagedResult) HasPrevious() bool {
	return p.Page > 1 && p.TotalPages > 0
}

func (p *PagedResult) HasNext() bool {
	return p.Page < p.TotalPages
}
