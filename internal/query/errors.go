package query

import (
	"fmt"

	"github.com/bft-labs/ladcache/internal/domain"
)

// QueryError reports a failed query. Err wraps one of
// domain.ErrInvalidQuery, domain.ErrStore or domain.ErrDeadline.
type QueryError struct {
	Op     string
	Params domain.QueryParams
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s query [%s]: %v", e.Op, e.Params, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
