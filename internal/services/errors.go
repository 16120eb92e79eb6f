// internal/services/errors.go
package services

import (
	"errors"
)

// Business-rule errors surfaced to callers. Handlers map these to HTTP
// status codes; anything else is treated as an infrastructure failure.
var (
	// ErrInvalidRut is returned when the taxpayer identifier fails its
	// checksum.
	ErrInvalidRut = errors.New("invalid RUT: check digit does not match")

	// ErrQuotaExceeded is returned when a contribuyente already has the
	// maximum number of pending requests.
	ErrQuotaExceeded = errors.New("pending request limit reached")

	// ErrAlreadyProcessed is returned when a review action targets a
	// request that is no longer pending, including the case where a
	// concurrent reviewer won the race.
	ErrAlreadyProcessed = errors.New("request has already been processed")

	// ErrNotFound is returned when a lookup matches no live row.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a write collides with an existing
	// record, such as a duplicated catalog code.
	ErrConflict = errors.New("record already exists")

	// ErrForbidden is returned when the actor may not operate on the
	// target record.
	ErrForbidden = errors.New("operation not allowed for this user")

	// errStaleState is the store-level signal that a guarded update
	// matched zero rows. It never leaves the service layer; callers see
	// ErrAlreadyProcessed.
	errStaleState = errors.New("state changed since read")
)
