package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Category is the stable, machine-checkable class of a failure. It is what
// callers should branch on; messages are for humans and may change.
type Category string

const (
	CategoryAuthentication Category = "authentication_required"
	CategoryPermission     Category = "permission_denied"
	CategoryNotFound       Category = "not_found"
	CategoryValidation     Category = "validation"
	CategoryConflict       Category = "conflict"
	CategoryInternal       Category = "internal"
)

// Error carries a category plus a user-safe message. The wrapped cause (if
// any) is kept for logs only and never serialized to a response.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func AuthRequired(message string) *Error {
	return &Error{Category: CategoryAuthentication, Message: message}
}

func PermissionDenied(message string) *Error {
	return &Error{Category: CategoryPermission, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Category: CategoryNotFound, Message: message}
}

func Validation(message string) *Error {
	return &Error{Category: CategoryValidation, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Category: CategoryConflict, Message: message}
}

// Internal wraps an unexpected failure. The cause stays server-side; callers
// only ever see the generic message.
func Internal(err error) *Error {
	return &Error{Category: CategoryInternal, Message: "internal server error", Err: err}
}

// CategoryOf extracts the category from any error chain. Unclassified errors
// count as internal so storage-layer errors are never exposed verbatim.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return CategoryInternal
}

// Message returns the user-safe message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Category != CategoryInternal {
		return e.Message
	}
	return "internal server error"
}

// Is reports whether err belongs to the given category.
func Is(err error, cat Category) bool {
	return CategoryOf(err) == cat
}

// HTTPStatus maps an error chain to the response status code.
func HTTPStatus(err error) int {
	switch CategoryOf(err) {
	case CategoryAuthentication:
		return http.StatusUnauthorized
	case CategoryPermission:
		return http.StatusForbidden
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
