// Package errors provides the error taxonomy shared across the storefront.
// Every error is terminal for the operation that produced it: nothing is retried.
package errors

import "errors"

var (
	// ErrBackendUnavailable is returned when the product backend cannot be
	// reached or answers with a server error.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrUnauthorized is returned when the backend rejects the credentials or
	// the bearer token attached to a protected request.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is returned when the backend rejects a product form, or
	// when a request fails client-side validation.
	ErrValidation = errors.New("validation failed")

	// ErrProductNotFound is returned for operations on an unknown product.
	ErrProductNotFound = errors.New("product not found")

	// ErrSlotNotFound is returned by the slot store when a key has never been written.
	ErrSlotNotFound = errors.New("state slot not found")
)
