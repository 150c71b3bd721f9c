package vrf

import "errors"

// Sentinel errors
var (
	ErrUnknownRequest   = errors.New("vrf: unknown request")
	ErrDuplicateRequest = errors.New("vrf: request already pending")
	ErrRequestExpired   = errors.New("vrf: request expired")
	ErrRequestCancelled = errors.New("vrf: request cancelled")
	ErrRegistryClosed   = errors.New("vrf: fulfillment stream closed")
)
