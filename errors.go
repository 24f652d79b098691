package permit

import (
	"fmt"

	"github.com/google/uuid"
)

// InvalidInputError reports a malformed identifier or a mismatched
// precomputed value. It is always surfaced to the caller, never defaulted.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Reason)
}

// DataNotFoundError reports a referenced record that does not exist.
// Computing permissions for a nonexistent resource is a hard error, not an
// empty-permission result.
type DataNotFoundError struct {
	Kind string
	ID   string
}

func (e *DataNotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// InvalidPermissionGranteeError reports a grant matching zero assignee-kind
// patterns.
type InvalidPermissionGranteeError struct {
	GrantID string
}

func (e *InvalidPermissionGranteeError) Error() string {
	return fmt.Sprintf("permission grant %s has no valid assignee", e.GrantID)
}

func invalidInput(field, reason string) error {
	return &InvalidInputError{Field: field, Reason: reason}
}

func notFound(kind, id string) error {
	return &DataNotFoundError{Kind: kind, ID: id}
}

// validateID rejects malformed identifiers before any query runs
func validateID(field, id string) error {
	if err := uuid.Validate(id); err != nil {
		return invalidInput(field, fmt.Sprintf("malformed id %q", id))
	}
	return nil
}
