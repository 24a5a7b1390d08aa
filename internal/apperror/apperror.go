package apperror

import "errors"

// Kind is the stable category of a domain failure. Transports map it to a status code.
type Kind string

const (
	Validation        Kind = "validation_error"
	NotFound          Kind = "not_found"
	InvalidHierarchy  Kind = "invalid_hierarchy"
	ImmutableResource Kind = "immutable_resource"
	AlreadyApproved   Kind = "already_approved"
	MinimumItems      Kind = "minimum_items_violation"
	EmptyOrZeroHours  Kind = "empty_or_zero_hours"
	InvalidContract   Kind = "invalid_contract"
	InvalidProject    Kind = "invalid_project"
	Conflict          Kind = "conflict"
	ResourceInUse     Kind = "resource_in_use"
	PermissionDenied  Kind = "permission_denied"
	Unauthenticated   Kind = "unauthenticated"
)

// Error carries a Kind and a human readable message.
type Error struct {
	Kind    Kind
	Message string
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is reports a match when target is the bare sentinel of the same kind (see ErrNotFound etc.),
// so errors.Is(ErrBudgetNotFound, apperror.ErrNotFound) holds.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Kind sentinels, usable with errors.Is.
var (
	ErrValidation        = &Error{Kind: Validation}
	ErrNotFound          = &Error{Kind: NotFound}
	ErrInvalidHierarchy  = &Error{Kind: InvalidHierarchy}
	ErrImmutableResource = &Error{Kind: ImmutableResource}
	ErrAlreadyApproved   = &Error{Kind: AlreadyApproved}
	ErrMinimumItems      = &Error{Kind: MinimumItems}
	ErrEmptyOrZeroHours  = &Error{Kind: EmptyOrZeroHours}
	ErrInvalidContract   = &Error{Kind: InvalidContract}
	ErrInvalidProject    = &Error{Kind: InvalidProject}
	ErrConflict          = &Error{Kind: Conflict}
	ErrResourceInUse     = &Error{Kind: ResourceInUse}
	ErrPermissionDenied  = &Error{Kind: PermissionDenied}
	ErrUnauthenticated   = &Error{Kind: Unauthenticated}
)

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// Validationf is a shorthand for ad-hoc input errors.
func Validationf(message string) *Error {
	return New(Validation, message)
}
