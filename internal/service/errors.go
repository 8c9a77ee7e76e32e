// Package service implements the film and user operations exposed over HTTP.
// It runs the validation gate and existence checks before any mutation and
// reports failures as *Error values tagged with a Kind.
package service

import (
	"errors"
	"fmt"

	"github.com/filmorate/backend/internal/metrics"
	"github.com/filmorate/backend/internal/validation"
)

// Kind classifies a rejected operation.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindDuplicate
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// MsgDuplicateEmail is returned when an email already belongs to another user.
const MsgDuplicateEmail = "Эта электронная почта уже используется"

// Error is a domain failure. Violations is populated for KindValidation only;
// Message always holds the first (or only) client-facing message.
type Error struct {
	Kind       Kind
	Message    string
	Violations []validation.Violation
}

func (e *Error) Error() string {
	return e.Message
}

// KindOf returns the kind of a domain error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind, true
	}
	return 0, false
}

// Invalid builds a validation error for a single field.
func Invalid(field, message string) *Error {
	return invalid([]validation.Violation{{Field: field, Message: message}})
}

func invalid(violations []validation.Violation) *Error {
	metrics.RecordServiceError(KindValidation.String())
	return &Error{Kind: KindValidation, Message: violations[0].Message, Violations: violations}
}

func filmNotFound(id int64) *Error {
	metrics.RecordServiceError(KindNotFound.String())
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("Фильм с id = %d не найден", id)}
}

func userNotFound(id int64) *Error {
	metrics.RecordServiceError(KindNotFound.String())
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("Пользователь с id=%d не найден", id)}
}

func duplicateEmail() *Error {
	metrics.RecordServiceError(KindDuplicate.String())
	return &Error{Kind: KindDuplicate, Message: MsgDuplicateEmail}
}
