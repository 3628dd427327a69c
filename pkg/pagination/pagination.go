package pagination

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds limit/offset paging extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads ?limit= and ?offset=, clamping the limit to MaxLimit.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset returns the offset for the previous page, never negative.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}

// Response wraps a page of results.
type Response[T any] struct {
	Data     []T    `json:"data"`
	Total    int    `json:"total"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
	HasMore  bool   `json:"has_more"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
}

// NewResponse builds a page. basePath, when set, is used to render next and
// previous links; other query parameters of the request are preserved.
func NewResponse[T any](data []T, total int, p Params, basePath string, query url.Values) *Response[T] {
	if data == nil {
		data = []T{}
	}
	r := &Response[T]{
		Data:    data,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.HasNext(total),
	}
	if basePath == "" {
		return r
	}
	if r.HasMore {
		r.Next = link(basePath, query, p.NextOffset(), p.Limit)
	}
	if p.HasPrevious() {
		r.Previous = link(basePath, query, p.PreviousOffset(), p.Limit)
	}
	return r
}

func link(basePath string, query url.Values, offset, limit int) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	return fmt.Sprintf("%s?%s", basePath, q.Encode())
}
