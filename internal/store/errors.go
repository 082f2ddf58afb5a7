// Package store defines the storage-facing interfaces and sentinel errors
// shared by store implementations and their collaborators.
package store

import "errors"

// Sentinel errors returned by store implementations. Services translate these
// into coded domain errors; the store layer itself stays storage-flavored.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned on a uniqueness-constraint violation.
	// Callers racing on get-or-create paths treat this as a retry signal,
	// not a failure.
	ErrAlreadyExists = errors.New("already exists")
)
