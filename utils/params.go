package utils

import (
	"math"
	"net/http"
	"strconv"
	"strings"
)

type QueryOptions struct {
	Page  int
	Limit int
}

// ParseQueryOptions reads ?page= and ?limit=, clamping limit to maxLimit
// and page so that the skip it implies cannot overflow.
func ParseQueryOptions(r *http.Request, defLimit, maxLimit int) QueryOptions {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = defLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if maxPage := math.MaxInt / max(limit, 1); page > maxPage {
		page = maxPage
	}

	return QueryOptions{Page: page, Limit: limit}
}

// Skip is the number of records before the current page.
// It saturates at math.MaxInt rather than overflowing.
func (o QueryOptions) Skip() int {
	if o.Page < 1 || o.Limit < 1 {
		return 0
	}
	if o.Page-1 > math.MaxInt/o.Limit {
		return math.MaxInt
	}
	return (o.Page - 1) * o.Limit
}

func ParseFloat(s string) float64 {
	val, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return val
}
