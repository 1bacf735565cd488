// Package services defines the business logic for connection resolution:
// saving and reading the service↔channel connections of a versioned
// entity, and projecting their change history. This file centralizes
// common service-level error values so that they can be consistently
// returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes is
// performed at the handler layer.
package services

import "errors"

var (
	// ErrMainRootRequired is returned when a save or read request names
	// no main unific root id.
	ErrMainRootRequired = errors.New("main unific root id is required")

	// ErrDuplicatePair is returned when the desired set contains the
	// same (main, connected) composite key twice. The save is aborted
	// before any row is touched.
	ErrDuplicatePair = errors.New("duplicate connection pair in desired set")

	// ErrUnknownChargeType is returned when a desired connection names a
	// charge type code missing from the type cache.
	ErrUnknownChargeType = errors.New("unknown charge type")

	// ErrUnknownLanguage is returned when a localized text is keyed by a
	// language code missing from the language cache.
	ErrUnknownLanguage = errors.New("unknown language")
)
