package service

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownPlan    = errors.New("unknown plan")
	ErrForbidden      = errors.New("reviewer is not authorized")
	ErrUnknownPayment = errors.New("payment not found")
	// ErrStoreUnavailable means the record store could not be read or written.
	// No transition happened and the call may be retried.
	ErrStoreUnavailable = errors.New("payment store unavailable")
	ErrDeliveryFailed   = errors.New("delivery failed")
)
