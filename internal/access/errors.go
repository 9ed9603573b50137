package access

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a resource does not exist or is not
	// visible to the requester.
	ErrNotFound = errors.New("not found")

	// ErrNotParticipant is returned when the requester posts into a
	// conversation they do not belong to.
	ErrNotParticipant = errors.New("You are not a participant in this conversation.")

	// ErrUserIDRequired is returned when add_participant is called without a user ID.
	ErrUserIDRequired = errors.New("User ID is required")

	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// ValidationError reports malformed input, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func fieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func doesNotExist(id fmt.Stringer) string {
	return fmt.Sprintf("Invalid pk %q - object does not exist.", id.String())
}
