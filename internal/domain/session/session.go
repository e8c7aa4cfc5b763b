// Package session derives and checks session-scoped index names. Every
// index created through an upload is owned by exactly one session and
// carries its id in the name, so ownership is decidable from the name
// alone without extra state.
package session

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/csvsearch/internal/domain"
)

// NamePrefix marks every session-scoped index as disposable.
const NamePrefix = domain.TempIndexPrefix

// IndexName builds the backend index name for a session and a user-chosen
// name: "temp-{session}-{name}", lowercased. Both parts must be non-empty
// and contain only [a-z0-9_-] after lowercasing.
func IndexName(sessionID, name string) (string, error) {
	sessionID = strings.ToLower(strings.TrimSpace(sessionID))
	name = strings.ToLower(strings.TrimSpace(name))

	if err := validatePart(sessionID, "session id"); err != nil {
		return "", err
	}
	if err := validatePart(name, "index name"); err != nil {
		return "", err
	}

	return NamePrefix + sessionID + "-" + name, nil
}

// Prefix returns the index-name prefix owned by a session.
func Prefix(sessionID string) string {
	return NamePrefix + strings.ToLower(strings.TrimSpace(sessionID)) + "-"
}

// Owns reports whether an index name belongs to the session. The check is
// purely lexical; it is the isolation boundary for search and listing.
func Owns(sessionID, indexName string) bool {
	sessionID = strings.ToLower(strings.TrimSpace(sessionID))
	if sessionID == "" {
		return false
	}
	return strings.HasPrefix(indexName, Prefix(sessionID))
}

func validatePart(s, what string) error {
	if s == "" {
		return fmt.Errorf("%w: %s is empty", domain.ErrInvalidIndexName, what)
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return fmt.Errorf("%w: %s contains %q", domain.ErrInvalidIndexName, what, r)
		}
	}
	return nil
}
