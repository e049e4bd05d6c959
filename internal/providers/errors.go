// Curatarr - Personalized Media Watch-list Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package providers defines the contracts Curatarr requires from the
// external catalog and activity providers, plus the resilience wrappers
// (retry, circuit breaker, rate limiting) applied around the injected
// client implementations. The raw HTTP clients themselves live outside
// this repository.
package providers

import (
	"errors"
	"fmt"
)

// The four failure kinds every provider must surface distinctly. The
// retry policy branches on them: auth errors are never retried,
// availability errors are retried with backoff, generic API errors get
// limited retries before propagating.
var (
	// ErrNotAuthenticated means credentials are missing or expired.
	ErrNotAuthenticated = errors.New("provider: not authenticated")

	// ErrNetworkUnreachable means the provider could not be reached.
	ErrNetworkUnreachable = errors.New("provider: network unreachable")

	// ErrUnavailable means the provider is up but refusing work
	// (rate limited, 5xx, maintenance).
	ErrUnavailable = errors.New("provider: service unavailable")
)

// APIError is the generic provider failure carrying call context.
type APIError struct {
	Provider string
	Op       string
	Status   int
	Err      error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s failed with status %d: %v", e.Provider, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// ErrorKind labels a provider error for metrics and retry branching.
type ErrorKind string

const (
	KindAuth        ErrorKind = "auth"
	KindNetwork     ErrorKind = "network"
	KindUnavailable ErrorKind = "unavailable"
	KindGeneric     ErrorKind = "generic"
)

// Classify maps an error to its kind.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return KindAuth
	case errors.Is(err, ErrNetworkUnreachable):
		return KindNetwork
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	default:
		return KindGeneric
	}
}

// Retryable reports whether an error kind may be retried at all.
func Retryable(err error) bool {
	return Classify(err) != KindAuth
}
