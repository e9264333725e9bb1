package services

import (
	"errors"
	"fmt"

	"github.com/diewo77/facturation/validation"
	"gorm.io/gorm"
)

// Error kinds. Use errors.Is against these.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage error")
)

// Error carries the kind of a failure, a stable code for clients and,
// for validation failures, the offending fields.
type Error struct {
	Kind       error
	Code       string
	Violations validation.Violations
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Code)
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func invalid(v validation.Violations) *Error {
	return &Error{Kind: ErrValidation, Code: "validation_failed", Violations: v}
}

func notFound(code string) *Error {
	return &Error{Kind: ErrNotFound, Code: code}
}

func conflict(code string, err error) *Error {
	return &Error{Kind: ErrConflict, Code: code, Err: err}
}

func storage(op string, err error) *Error {
	return &Error{Kind: ErrStorage, Code: "storage_error", Err: fmt.Errorf("%s: %w", op, err)}
}

// wrapDB classifies an error returned by gorm. Errors already classified
// by this package pass through unchanged.
func wrapDB(op string, err error) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return conflict("email_taken", err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return notFound("client_not_found")
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return &Error{Kind: ErrValidation, Code: "validation_failed", Err: err}
	}
	return storage(op, err)
}

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
