package jbeamsync

import "errors"

// Lifecycle errors
var (
	// ErrNotLoaded indicates that no document has been loaded yet.
	ErrNotLoaded = errors.New("jbeamsync: no document loaded")

	// ErrConfirmationPending indicates that a new sync cycle was requested
	// while a duplicate-name confirmation is still unresolved.
	ErrConfirmationPending = errors.New("jbeamsync: duplicate-name confirmation pending")

	// ErrNoPendingConfirmation indicates a resolution was supplied with
	// nothing to resolve.
	ErrNoPendingConfirmation = errors.New("jbeamsync: no confirmation pending")

	// ErrUnknownDecision indicates a resolution outside the supported set.
	ErrUnknownDecision = errors.New("jbeamsync: unknown confirmation decision")
)

// Document shape errors
var (
	// ErrPartNotFound indicates that a snapshot addressed a part the
	// document does not contain.
	ErrPartNotFound = errors.New("jbeamsync: part not found")

	// ErrMalformedSection indicates a geometry section that does not follow
	// the list-of-rows convention (missing header row, non-array rows where
	// required, section value of the wrong kind).
	ErrMalformedSection = errors.New("jbeamsync: malformed geometry section")
)

// Input errors
var (
	// ErrSnapshot indicates an undecodable or internally inconsistent
	// geometry snapshot.
	ErrSnapshot = errors.New("jbeamsync: invalid geometry snapshot")

	// ErrInvalidSymmetryScheme indicates a symmetry naming scheme that
	// could not be parsed. Callers that hit this during configuration fall
	// back to the default left/right pairing.
	ErrInvalidSymmetryScheme = errors.New("jbeamsync: invalid symmetry naming scheme")
)
