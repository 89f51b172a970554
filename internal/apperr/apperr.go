// Package apperr defines the error kinds surfaced by the store, the issuance
// workflow and the account services. Callers wrap them with fmt.Errorf and
// match with errors.Is.
package apperr

import "errors"

var (
	// ErrUnauthorized is returned when a shared secret or session is missing or wrong.
	// Its message never says which credential failed.
	ErrUnauthorized = errors.New("incorrect api key")
	// ErrForbidden is returned when the access policy denies an operation.
	ErrForbidden = errors.New("access denied")
	// ErrIneligible is returned when a business precondition is not met.
	ErrIneligible = errors.New("not eligible")
	// ErrConflict is returned on uniqueness or multiplicity violations.
	ErrConflict = errors.New("conflict")
	// ErrNotFound is returned when no matching record exists (or none is visible).
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned for malformed input.
	ErrInvalid = errors.New("invalid input")
)
