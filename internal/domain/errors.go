// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrInvalidArgument indicates a command or query was constructed with
// malformed or missing input.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrInvalidStateTransition indicates an operation is not permitted in the
// entity's current lifecycle state.
var ErrInvalidStateTransition = errors.New("invalid state transition")

// ErrNoHandler indicates no handler is registered for a dispatched
// command or query name.
var ErrNoHandler = errors.New("no handler registered")

// ErrTenantNotFound indicates the request could not be mapped to a known,
// active tenant.
var ErrTenantNotFound = errors.New("tenant not found")

// ErrPoolExhausted indicates no database connection could be acquired
// within the configured wait.
var ErrPoolExhausted = errors.New("connection pool exhausted")

// ErrPersistence indicates an underlying storage failure; the originating
// error is wrapped alongside it.
var ErrPersistence = errors.New("persistence failure")
