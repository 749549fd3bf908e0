package catalog

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/taxon/classify"
)

// Domain errors for class-set operations.
var (
	ErrNotFound   = errors.New("class set not found")
	ErrDuplicate  = errors.New("class set already exists")
	ErrInvalidSet = errors.New("invalid class set")
)

// MapHTTPStatus maps class-set domain errors to appropriate HTTP status
// codes. Rule validation failures surface through the classify mapping.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidSet) {
		return http.StatusBadRequest
	}
	return classify.MapHTTPStatus(err)
}
