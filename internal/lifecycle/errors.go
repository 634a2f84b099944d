package lifecycle

import (
	"errors"
	"fmt"

	"github.com/iliyamo/theme-section-installer/internal/shopify"
)

var (
	// ErrUnknownSection is returned when a slug is not in the catalog.
	ErrUnknownSection = errors.New("unknown section")
	// ErrNoLiveTheme is returned when the shop has no published theme.
	ErrNoLiveTheme = shopify.ErrNoLiveTheme
	// ErrAlreadyInstalled is returned by Install when the asset already
	// exists in the live theme.
	ErrAlreadyInstalled = errors.New("section already installed")
	// ErrEmptySelection is returned by CreateLandingPage without sections.
	ErrEmptySelection = errors.New("no sections selected")
)

// GatewayError is a remote failure other than a recognised not-found.
type GatewayError struct {
	Op  string
	Key string
	Err error
}

func (e *GatewayError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gateway %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsGatewayError reports whether err carries a *GatewayError.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
