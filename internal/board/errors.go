package board

import (
	"errors"
	"fmt"

	"github.com/roach88/hull/internal/ledger"
	"github.com/roach88/hull/internal/store"
)

// Code categorizes gateway errors.
type Code string

const (
	// CodeNotFound indicates the target id does not exist (or was deleted).
	CodeNotFound Code = "NOT_FOUND"

	// CodeValidation indicates malformed input, rejected before any transaction.
	CodeValidation Code = "VALIDATION"

	// CodePersistence indicates a storage or transaction failure; nothing was written.
	CodePersistence Code = "PERSISTENCE"

	// CodeDecode indicates a ledger payload that could not be decoded.
	CodeDecode Code = "DECODE"

	// CodeConflict indicates the mutation would break a referential rule.
	CodeConflict Code = "CONFLICT"

	// CodeMaintenance indicates a rewind or emergency blow is in progress.
	CodeMaintenance Code = "MAINTENANCE"
)

// Error is the error type returned by Gateway.
type Error struct {
	Code    Code
	Op      string // e.g. "item.update"
	Entity  string // "group", "item" or "worker"
	ID      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	switch {
	case e.Op != "" && e.ID != "":
		return fmt.Sprintf("%s: %s %s %s: %s", e.Op, e.Code, e.Entity, e.ID, msg)
	case e.Op != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
	default:
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the category of err. Errors that are not from this package
// map to DECODE, MAINTENANCE or PERSISTENCE. A nil error has no code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	switch {
	case ledger.IsDecodeError(err):
		return CodeDecode
	case errors.Is(err, store.ErrMaintenance):
		return CodeMaintenance
	default:
		return CodePersistence
	}
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return CodeOf(err) == CodeConflict }

// IsMaintenance reports whether err was caused by maintenance mode.
func IsMaintenance(err error) bool { return CodeOf(err) == CodeMaintenance }

func notFound(entity, id string) *Error {
	return &Error{Code: CodeNotFound, Entity: entity, ID: id, Message: "not found"}
}

func invalid(op, format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

func conflict(entity, id, format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Entity: entity, ID: id, Message: fmt.Sprintf(format, args...)}
}

// classify attaches op to err and turns foreign errors into gateway errors.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		if be.Op == "" {
			be.Op = op
		}
		return be
	}
	return &Error{Code: CodeOf(err), Op: op, Err: err}
}
