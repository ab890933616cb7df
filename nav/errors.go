package nav

import "errors"

// Sentinel errors for menu construction.
var (
	// ErrInvalidScope indicates a node or menu declared an unknown scope.
	ErrInvalidScope = errors.New("nav: invalid scope")

	// ErrDuplicateNodeID indicates two nodes in one tree share an identifier.
	ErrDuplicateNodeID = errors.New("nav: duplicate node id")

	// ErrInvalidParent indicates a node was attached to a parent that does not exist.
	ErrInvalidParent = errors.New("nav: invalid parent node")

	// ErrMissingID indicates a node or menu without an identifier.
	ErrMissingID = errors.New("nav: id is required")
)
