package model

import "github.com/m-mizutani/goerr/v2"

// Error taxonomy of the queue core
var (
	ErrTagMalformedPayload   = goerr.NewTag("malformed_payload")
	ErrTagStaleDelta         = goerr.NewTag("stale_delta")
	ErrTagEmptyResult        = goerr.NewTag("empty_result")
	ErrTagTransportFailure   = goerr.NewTag("transport_failure")
	ErrTagInvariantViolation = goerr.NewTag("invariant_violation")
	ErrTagInvalidQuery       = goerr.NewTag("invalid_query")
	ErrTagUnauthorized       = goerr.NewTag("unauthorized")
)

// Sentinel errors for domain operations
var (
	ErrFacilityNotFound = goerr.New("facility not found")
	ErrSnapshotNotFound = goerr.New("snapshot not found")
	ErrSessionNotFound  = goerr.New("session not found")

	ErrSubscriptionNotFound = goerr.New("subscription not found")
)
