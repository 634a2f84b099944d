package shopify

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoLiveTheme is returned when the shop has no theme with role "main",
	// including the case where the theme list is empty.
	ErrNoLiveTheme = errors.New("no live theme found")
	// ErrAssetNotFound is returned by ReadAsset for an absent key.
	ErrAssetNotFound = errors.New("asset not found")
)

// APIError is a non-2xx response from the Admin API.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("shopify: %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsNotFound reports whether err is, or wraps, a 404 from the Admin API or
// ErrAssetNotFound.  It is the only place that knows how not-found is shaped.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAssetNotFound) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
