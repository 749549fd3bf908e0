package decisions

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/taxon/classify"
	"github.com/JaimeStill/taxon/internal/catalog"
)

// Sentinel errors for run operations.
var (
	ErrNotFound   = errors.New("run not found")
	ErrDuplicate  = errors.New("run already exists")
	ErrInvalidRun = errors.New("invalid classification request")
)

// MapHTTPStatus maps run errors to HTTP status codes. Unrecognized errors
// fall through to the classification error mapping so pipeline failures keep
// their own statuses, retrieval failure as 502 in particular.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRun):
		return http.StatusBadRequest
	default:
		return classify.MapHTTPStatus(err)
	}
}
