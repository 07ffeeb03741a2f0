package application

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist
	// or is not visible to the requesting owner.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyActive is returned when activating an entry that is already active.
	ErrAlreadyActive = errors.New("application: recurring entry already active")
	// ErrAlreadyInactive is returned when deactivating an entry that is already inactive.
	ErrAlreadyInactive = errors.New("application: recurring entry already inactive")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}
