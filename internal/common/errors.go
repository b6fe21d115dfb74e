// Package common defines shared constants and sentinel errors used across
// CloudVault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrInvalidState marks operations attempted in the wrong lifecycle
	// state: restoring a node that is not trashed, permanently deleting an
	// active node, sharing a resource with its own owner, or moving a
	// folder into its own subtree.
	ErrInvalidState = errors.New("invalid state")

	// ErrorConflict signals a duplicate active share where uniqueness is
	// required. The sharing service normally resolves duplicates by
	// reactivating the existing row instead of surfacing this.
	ErrorConflict = errors.New("conflict")
)
