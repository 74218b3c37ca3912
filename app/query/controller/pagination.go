package controller

import (
	"net/http"
	"strconv"

	"github.com/canopy-network/gravityx/pkg/reveal"
)

type pageSpec struct {
	Limit  int
	Cursor string
}

// parsePageSpec reads ?cursor=&limit= for the reveal feed. The cursor is opaque here; the
// reveal source validates it.
func parsePageSpec(r *http.Request, defaultLimit int) (pageSpec, error) {
	qs := r.URL.Query()
	limit := reveal.ClampLimit(defaultLimit)
	if v := qs.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return pageSpec{}, errInvalidLimit
		}
		limit = reveal.ClampLimit(n)
	}

	return pageSpec{Limit: limit, Cursor: qs.Get("cursor")}, nil
}

var (
	errInvalidLimit  = &parseError{msg: "invalid limit"}
	errInvalidCursor = &parseError{msg: "invalid cursor"}
)

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }
