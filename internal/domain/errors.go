package domain

import "errors"

var (
	// ErrMalformedInput signals an upload whose bytes are not a parseable CSV.
	ErrMalformedInput = errors.New("malformed input")
	// ErrInvalidQuery signals an empty or whitespace-only search query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrForbidden signals a session/index ownership mismatch.
	ErrForbidden = errors.New("forbidden")
	// ErrIndexNotFound signals an absent index at search time.
	ErrIndexNotFound = errors.New("index not found")
	// ErrUnauthorized signals a maintenance call without a valid secret.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBackendUnavailable signals the search backend cannot be reached.
	ErrBackendUnavailable = errors.New("search backend unavailable")
	// ErrSearchBackend signals a failure reported by the search backend.
	ErrSearchBackend = errors.New("search backend error")
	// ErrInvalidIndexName signals a user-supplied index name with characters
	// outside [a-z0-9_-] after normalization.
	ErrInvalidIndexName = errors.New("invalid index name")
)

// KeyPrefix namespaces every key csvsearch writes to the backend.
const KeyPrefix = "csvsearch:"

// TempIndexPrefix marks session-scoped temporary indices. Every index this
// service creates carries it; the reaper recognizes candidates by it.
const TempIndexPrefix = "temp-"
