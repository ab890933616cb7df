package navigation

import "errors"

var (
	// ErrNoNavigation is returned when no menu is available for a principal.
	// It is a recoverable condition, not a fault.
	ErrNoNavigation = errors.New("navigation: no navigation available")

	// ErrMenuNotFound is returned for an unknown menu id.
	ErrMenuNotFound = errors.New("navigation: menu not found")

	// ErrNodeNotFound is returned when no menu contains the node.
	ErrNodeNotFound = errors.New("navigation: node not found")

	// ErrNotStarted is returned by Stop on a service that is not running.
	ErrNotStarted = errors.New("navigation: not started")

	// ErrNoSource is returned by Sync when the service has no source.
	ErrNoSource = errors.New("navigation: no menu source")

	// ErrInvalidMenu is returned by Register for a nil or unnamed menu.
	ErrInvalidMenu = errors.New("navigation: invalid menu")
)
