// Package services holds the dashboard's domain logic on top of gorm. The
// sentinel errors below let handlers pick an HTTP status without knowing
// which query failed.
package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a row does not exist or is not owned by
	// the caller. The two cases are not distinguished to avoid leaking ids.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials covers unknown emails, wrong passwords and
	// OAuth-only accounts alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// FieldErrors maps form field names to user-facing messages.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func fieldError(field, msg string) FieldErrors {
	return FieldErrors{field: msg}
}

// AsFieldErrors unwraps err into FieldErrors when it is one.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
